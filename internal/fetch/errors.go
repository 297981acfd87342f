package fetch

import "fmt"

// TransportError describes a failed page fetch.
//
// Design decision: We use a structured error type rather than wrapped
// sentinel errors because callers need the failing address and, when
// available, the HTTP status to report the failure usefully. The crawler
// records these on the snapshot without aborting the crawl.
type TransportError struct {
	// Address is the address whose fetch failed.
	Address string

	// StatusCode is the HTTP status code when the server responded with
	// a non-success status. Zero when the request never completed.
	StatusCode int

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Address, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Address, e.Cause)
}

// Unwrap returns the underlying cause so errors.Is and errors.As work
// through the wrapper.
func (e *TransportError) Unwrap() error {
	return e.Cause
}
