package fetch

import (
	"errors"
	"fmt"
	"time"
)

// Validators carries the conditional-GET cache validators persisted from a
// prior pass.
type Validators struct {
	ETag         string
	LastModified string
}

// Result is the outcome of retrieving one URL.
type Result struct {
	// Body holds the retrieved bytes. Empty when NotModified is set.
	Body []byte

	// ContentType is the Content-Type reported by the server.
	ContentType string

	// ETag and LastModified are the validators to persist for the next pass.
	ETag         string
	LastModified string

	// NotModified reports that the server answered 304 for the supplied
	// validators and the prior pass's result can be reused.
	NotModified bool

	// FetchedAt is the time the response was received.
	FetchedAt time.Time
}

// Error is a classified fetch failure.
type Error struct {
	URL        string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch failure for %s: status %d", kind, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s fetch failure for %s: %v", kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a fetch failure that was retried and
// could have succeeded on another attempt.
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Transient
}
