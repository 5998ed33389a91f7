package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned by operations the client does not implement.
	ErrUnsupported = fmt.Errorf("graph: not supported yet: %w", errors.ErrUnsupported)

	// ErrDecode matches every *DecodeError via errors.Is.
	ErrDecode = errors.New("graph: decode failed")
)

// DecodeError reports a response body that could not be mapped to the expected shape.
type DecodeError struct {
	Err error
}

func newDecodeError(err error) *DecodeError {
	return &DecodeError{Err: err}
}

func (e *DecodeError) Error() string {
	return "error deserializing data from Facebook: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDecode) match any DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// TransportError is returned by transports when the HTTP call itself fails or
// the server answers with a non-2xx status.
type TransportError struct {
	Method     string
	URI        string
	StatusCode int
	Body       string

	// Populated from a Graph API error envelope when one is present.
	GraphMessage string
	GraphType    string
	GraphCode    int

	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("graph transport %s %s: %v", e.Method, e.URI, e.Err)
	}
	if e.GraphMessage != "" {
		return fmt.Sprintf("graph transport %s %s: status %d: %s (%s, code %d)",
			e.Method, e.URI, e.StatusCode, e.GraphMessage, e.GraphType, e.GraphCode)
	}
	return fmt.Sprintf("graph transport %s %s: status %d: %s", e.Method, e.URI, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }
