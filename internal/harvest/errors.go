package harvest

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport matches every *TransportError via errors.Is.
	ErrTransport = errors.New("transport failure")
	// ErrEmptyProfile is returned when a profile page yields no usable season rows.
	ErrEmptyProfile = errors.New("profile has no season rows")
	// ErrResumeMiss is returned when the last synced player is not in the roster index.
	ErrResumeMiss = errors.New("last synced player not in roster index")
	// ErrNotFound is returned by Store lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrMissingTeam rejects season records without a team.
	ErrMissingTeam = errors.New("season record has no team")
)

// TransportError reports a failed fetch: a network error or a non-2xx response.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d %s: %v", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTransport) match any TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
