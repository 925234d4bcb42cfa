package normalize

import (
	"strconv"
	"strings"
)

var earningsReplacer = strings.NewReplacer(
	"$", "",
	"€", "",
	"£", "",
	"usd", "",
	"chf", "",
	",", "",
	" ", "",
)

// Earnings strips currency symbols and thousands separators and parses the
// remainder as a US dollar amount. Unparseable text yields 0.
func Earnings(text string) float64 {
	cleaned := earningsReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// Placing parses a numeric placing; 0 means no placing was present.
func Placing(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Faults parses a fault count, degrading to 0.
func Faults(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Seconds parses an elapsed time in seconds, degrading to 0.
func Seconds(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
