package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a database or snapshot id does not resolve.
var ErrNotFound = errors.New("not found")

// ConnectionError reports a failed probe of a remote database.
type ConnectionError struct {
	Database string
	Reason   string
}

func (e *ConnectionError) Error() string {
	return e.Reason
}

// BackupError reports a dump tool that failed to start or exited non-zero.
type BackupError struct {
	Database string
	Output   string
	Err      error
}

func (e *BackupError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" && e.Err != nil {
		output = e.Err.Error()
	}
	return fmt.Sprintf("Error while saving db: %s", output)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

// ErrInvalidInput marks a request rejected before touching any store.
var ErrInvalidInput = errors.New("invalid input")
