package normalize

import (
	"strings"

	"github.com/paddock-labs/equinet/internal/model"
)

// Status keyword tables. Withdrawal keywords mark a pre-start scratch: the
// row must be excluded from results entirely, never recorded as a placing
// of zero.
var (
	withdrawnKeywords  = []string{"wd", "withdrawn", "withdrew", "scratched", "scr", "dns", "did not start"}
	retiredKeywords    = []string{"ret", "retired", "rtd"}
	eliminatedKeywords = []string{"el", "elim", "eliminated"}
	didNotPlaceWords   = []string{"dnp", "did not place", "unplaced"}
)

// Status translates a raw status string into the closed status enum.
// The second return is true when the row must be excluded from results
// (pre-start withdrawal or scratch). hasPlacing decides the default branch:
// unrecognized text is Placed only when a numeric placing accompanied it.
func Status(text string, hasPlacing bool) (model.ResultStatus, bool) {
	token := strings.ToLower(strings.TrimSpace(text))
	token = strings.Trim(token, ".")

	switch {
	case matchKeyword(token, withdrawnKeywords):
		return model.StatusWithdrawn, true
	case matchKeyword(token, retiredKeywords):
		return model.StatusRetired, false
	case matchKeyword(token, eliminatedKeywords):
		return model.StatusEliminated, false
	case matchKeyword(token, didNotPlaceWords):
		return model.StatusDidNotPlace, false
	}

	if hasPlacing {
		return model.StatusPlaced, false
	}
	return model.StatusDidNotPlace, false
}

// matchKeyword matches whole tokens, so "1st place" never trips on "el".
func matchKeyword(token string, keywords []string) bool {
	for _, kw := range keywords {
		if token == kw {
			return true
		}
		if strings.Contains(kw, " ") && strings.Contains(token, kw) {
			return true
		}
	}
	return false
}
