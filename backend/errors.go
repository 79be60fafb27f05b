package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for ids the server does not know
	ErrNotFound = errors.New("not found")

	// ErrPopupBlocked is returned when the OAuth window could not be opened
	ErrPopupBlocked = errors.New("could not open login window")
)

// APIError is a request the server answered with success=false or a
// non-2xx status.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}
