package quic

import (
	"github.com/quic-go/quic-go"
)

// TransportError represents a QUIC transport layer error.
type TransportError = quic.TransportError

// ApplicationError represents an application-level error in QUIC.
type ApplicationError = quic.ApplicationError

// IdleTimeoutError indicates that the connection timed out due to inactivity.
type IdleTimeoutError = quic.IdleTimeoutError

// HandshakeTimeoutError indicates that the handshake did not complete in time.
type HandshakeTimeoutError = quic.HandshakeTimeoutError

// Error codes for QUIC application and stream operations.
type (
	// ApplicationErrorCode identifies application-defined errors.
	ApplicationErrorCode = quic.ApplicationErrorCode
	// StreamErrorCode identifies stream-specific errors.
	StreamErrorCode = quic.StreamErrorCode
)

// A StreamError is used for Stream.CancelRead and Stream.CancelWrite.
// It is also returned from Stream.Read and Stream.Write if the peer canceled reading or writing.
type StreamError = quic.StreamError
