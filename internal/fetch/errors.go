package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// EndpointFailure records why one endpoint in a fallback chain was given up on.
type EndpointFailure struct {
	Endpoint string `json:"endpoint"`
	Attempts int    `json:"attempts"`
	Reason   string `json:"reason"`
}

// SourceUnavailableError is returned when every endpoint in a source's
// fallback chain has been exhausted. It enumerates the per-endpoint failure
// reasons; a response body is never fabricated in its place.
type SourceUnavailableError struct {
	Source   string
	Failures []EndpointFailure
}

func (e *SourceUnavailableError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "source %s unavailable: all %d endpoints failed", e.Source, len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %s (%d attempts): %s", f.Endpoint, f.Attempts, f.Reason)
	}
	return b.String()
}

// IsSourceUnavailable reports whether err is a total fetch failure.
func IsSourceUnavailable(err error) bool {
	var su *SourceUnavailableError
	return errors.As(err, &su)
}
