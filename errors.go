package restfs

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrNotFound      = fs.ErrNotExist
	ErrAlreadyExists = fs.ErrExist
	ErrNotADirectory = errors.New("not a directory")
	ErrIsADirectory  = errors.New("is a directory")
	ErrInvalidPath   = errors.New("invalid path")

	ErrTransport            = errors.New("transport failure")
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrNotConnected         = errors.New("not connected")
	ErrConnecting           = errors.New("connect in progress")
)

// PathError records the tree operation and path that failed
type PathError = fs.PathError

// TransportError is returned for any remote request that could not complete
// or came back with a non-2xx status.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Op
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
