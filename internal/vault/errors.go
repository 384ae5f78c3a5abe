package vault

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failed vault call.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindHTTP      Kind = "http_status"
	KindMalformed Kind = "malformed_response"
	KindRejected  Kind = "rejected"
)

// Error is the failure returned by every Client operation.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("vault %s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("vault %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or "" when err is not a vault error.
func KindOf(err error) Kind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}
