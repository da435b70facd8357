package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedPagination is reported when a next-page URL carries no
	// parsable cursor. The window is then treated as exhausted.
	ErrMalformedPagination = errors.New("malformed pagination cursor")

	// ErrRateLimited matches a FetchError caused by an HTTP 429 response.
	ErrRateLimited = errors.New("rate limited by upstream")
)

// FetchError describes a page that could not be retrieved or decoded.
// It is fatal to the current community only.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrRateLimited) match 429 responses.
func (e *FetchError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}
