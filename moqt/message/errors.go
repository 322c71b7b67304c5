package message

import (
	"errors"
	"fmt"
)

var (
	ErrOversizedField     = errors.New("message: field exceeds maximum length")
	ErrUnsupportedVersion = errors.New("message: unsupported version")
	ErrStatusWithPayload  = errors.New("message: object carries both status and payload")
	ErrInvalidUTF8        = errors.New("message: invalid utf-8 string")
	ErrInvalidBoolean     = errors.New("message: invalid boolean value")
)

// EncodingError is returned when a value cannot be represented on the wire.
type EncodingError struct {
	Field string
	Value uint64
	Err   error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("message: cannot encode %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("message: cannot encode %s: value %d out of range", e.Field, e.Value)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// DecodingError reports the field that failed to decode.
type DecodingError struct {
	Field string
	Err   error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("message: decoding %s: %v", e.Field, e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// UnknownMessageTypeError is returned when a type tag is not recognized
// or not valid on the stream it was read from.
type UnknownMessageTypeError struct {
	Type MessageType
}

func (e *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("message: unknown message type 0x%x", uint64(e.Type))
}
