// Package normalize converts raw extracted field text into canonical types:
// ISO dates, centimeter heights, a closed status enumeration, and US dollar
// amounts. Every function is pure; unparseable input degrades to the zero
// value instead of erroring.
package normalize

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"02 Jan 2006",
	"January 2, 2006",
}

// Date converts MM/DD/YYYY or YYYY-MM-DD (plus common written forms) into an
// ISO date string. Unparseable text yields "".
func Date(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
