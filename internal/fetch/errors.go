package fetch

import (
	"fmt"
	"net/http"
)

// TransportError reports a request that failed after exhausting its attempts:
// a network failure, a timeout, a non-2xx status or an undecodable body.
type TransportError struct {
	URL        string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: HTTP %d: %s (after %d attempts)", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Attempts)
	}
	return fmt.Sprintf("GET %s: %v (after %d attempts)", e.URL, e.Err, e.Attempts)
}

func (e *TransportError) Unwrap() error { return e.Err }

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, http.StatusText(e.code))
}
