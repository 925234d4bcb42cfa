package normalize

import "strings"

// countryNames maps federation country spellings to IOC-style alpha-3 codes.
// Sources disagree on spelling far more than on the codes themselves.
var countryNames = map[string]string{
	"france":         "FRA",
	"germany":        "GER",
	"netherlands":    "NED",
	"holland":        "NED",
	"belgium":        "BEL",
	"great britain":  "GBR",
	"united kingdom": "GBR",
	"ireland":        "IRL",
	"switzerland":    "SUI",
	"sweden":         "SWE",
	"united states":  "USA",
	"usa":            "USA",
	"canada":         "CAN",
	"australia":      "AUS",
	"new zealand":    "NZL",
	"spain":          "ESP",
	"italy":          "ITA",
	"brazil":         "BRA",
	"argentina":      "ARG",
}

// Country normalizes a country field to an alpha-3 code. Three-letter input
// passes through uppercased; unknown names yield "".
func Country(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if code, ok := countryNames[strings.ToLower(text)]; ok {
		return code
	}
	if len(text) == 3 && isAlpha(text) {
		return strings.ToUpper(text)
	}
	return ""
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
