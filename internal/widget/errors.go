package widget

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateLocation is returned when a widget for the location already exists.
	ErrDuplicateLocation = errors.New("widget for location already exists")

	// ErrNotFound is returned when the referenced widget is not in the collection.
	ErrNotFound = errors.New("widget not found")

	// ErrInvalidSelection is returned when selecting a location outside the current set.
	ErrInvalidSelection = errors.New("location is not in the current widget set")

	// ErrInvalidLocation is returned for empty location input.
	ErrInvalidLocation = errors.New("location must not be empty")
)

// RemoteError is an opaque failure of the remote gateway.
// Message is human readable and may be empty.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": remote error"
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NewRemoteError wraps err as a RemoteError unless it already is one.
func NewRemoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Op: op, Err: err}
}

// RemoteMessage returns the remote message carried by err, or fallback.
func RemoteMessage(err error, fallback string) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}
