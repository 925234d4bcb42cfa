package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Unit is a height unit accepted by Height.
type Unit string

const (
	Centimeters Unit = "cm"
	Inches      Unit = "in"
	Hands       Unit = "hh"
)

const (
	cmPerInch = 2.54
	cmPerHand = 4 * cmPerInch // a hand is 4 inches
)

// Height converts a measurement to integer centimeters. Hands accept the
// equestrian point notation where the fraction digit is inches: 16.2 means
// 16 hands 2 inches. Results outside (0, 300) cm are unknown and yield 0.
func Height(value float64, unit Unit) int {
	if value <= 0 {
		return 0
	}

	var cm float64
	switch unit {
	case Centimeters:
		cm = value
	case Inches:
		cm = value * cmPerInch
	case Hands:
		whole, frac := math.Modf(value)
		inches := math.Round(frac * 10) // 16.2hh -> 2 extra inches
		cm = whole*cmPerHand + inches*cmPerInch
	default:
		return 0
	}

	rounded := int(math.Round(cm))
	if rounded <= 0 || rounded >= 300 {
		return 0
	}
	return rounded
}

var heightRe = regexp.MustCompile(`([\d.]+)\s*(cm|hh|hands?|in|inches|")?`)

// ParseHeight normalizes free-text height like "168 cm", "16.2hh" or
// `66"` to centimeters. Bare numbers are assumed to be centimeters when
// ≥ 50, hands otherwise. Unparseable text yields 0.
func ParseHeight(text string) int {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0
	}

	m := heightRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}

	switch m[2] {
	case "cm":
		return Height(value, Centimeters)
	case "in", "inches", `"`:
		return Height(value, Inches)
	case "hh", "hand", "hands":
		return Height(value, Hands)
	default:
		if value >= 50 {
			return Height(value, Centimeters)
		}
		return Height(value, Hands)
	}
}
