package moqt

import (
	"errors"
	"fmt"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/OkutaniDaichi0106/moqtransport/quic"
)

var (
	// ErrInvalidScheme is returned when a URL scheme is not supported.
	// Only "https" (for WebTransport) and "moqt" (for QUIC) schemes are valid.
	ErrInvalidScheme = errors.New("moqt: invalid scheme")

	// ErrClosedSession is returned when attempting to use a closed session.
	ErrClosedSession = errors.New("moqt: closed session")

	// ErrInvalidState is returned when the control stream is used in a state
	// that does not allow the operation.
	ErrInvalidState = errors.New("moqt: invalid control stream state")

	// ErrStreamClosed is returned when the peer ends a stream before a
	// complete message arrives.
	ErrStreamClosed = errors.New("moqt: stream closed")

	// ErrUnexpectedMessage is returned when a message arrives where the
	// protocol does not allow it.
	ErrUnexpectedMessage = errors.New("moqt: unexpected message")

	ErrUnsupportedVersion = message.ErrUnsupportedVersion

	// ErrNotPublisher is returned when objects are written before a successful Announce.
	ErrNotPublisher = errors.New("moqt: session has not announced")

	// ErrSubscriptionClosed is returned by a subscription that ended before it was resolved.
	ErrSubscriptionClosed = errors.New("moqt: subscription closed")

	ErrGroupMismatch = errors.New("moqt: object group does not match the stream")

	// ErrCertificateHashMismatch is returned when the server certificate does
	// not match Client.ServerCertificateHash.
	ErrCertificateHashMismatch = errors.New("moqt: server certificate hash mismatch")
)

// HandshakeError is returned when the setup exchange on the control stream fails.
// It is fatal to the session and never retried.
type HandshakeError struct {
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("moqt: handshake failed: %v", e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// ProtocolViolationError is returned when an object references a subscribe ID
// with no registered subscription.
type ProtocolViolationError struct {
	SubscribeID uint64
	StreamID    quic.StreamID
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("moqt: protocol violation: object for unknown subscribe id %d on stream %d", e.SubscribeID, e.StreamID)
}

/*
 * Subscribe Errors
 */
const (
	InternalSubscribeErrorCode     SubscribeErrorCode = 0x0
	InvalidRangeErrorCode          SubscribeErrorCode = 0x1
	RetryTrackAliasErrorCode       SubscribeErrorCode = 0x2
	TrackNotFoundErrorCode         SubscribeErrorCode = 0x3
	UnauthorizedSubscribeErrorCode SubscribeErrorCode = 0x4
	SubscribeTimeoutErrorCode      SubscribeErrorCode = 0x5
)

var SubscribeErrorCodeTexts = map[SubscribeErrorCode]string{
	InternalSubscribeErrorCode:     "moqt: internal error",
	InvalidRangeErrorCode:          "moqt: invalid range",
	RetryTrackAliasErrorCode:       "moqt: retry track alias",
	TrackNotFoundErrorCode:         "moqt: track does not exist",
	UnauthorizedSubscribeErrorCode: "moqt: unauthorized",
	SubscribeTimeoutErrorCode:      "moqt: timeout",
}

// SubscribeErrorCode is the error code carried by SUBSCRIBE_ERROR.
type SubscribeErrorCode uint64

func (code SubscribeErrorCode) String() string {
	if text, ok := SubscribeErrorCodeTexts[code]; ok {
		return text
	}
	return fmt.Sprintf("moqt: subscribe error 0x%x", uint64(code))
}

// SubscribeError is returned when the publisher rejects a subscription.
// It only affects the subscription it was sent for.
type SubscribeError struct {
	Code       SubscribeErrorCode
	Reason     string
	TrackAlias uint64
}

func (err *SubscribeError) Error() string {
	if err.Reason == "" {
		return err.Code.String()
	}
	return fmt.Sprintf("%s: %s", err.Code.String(), err.Reason)
}

/*
 * Subscribe Done Status
 */
const (
	UnsubscribedStatusCode      SubscribeDoneStatusCode = 0x0
	InternalErrorStatusCode     SubscribeDoneStatusCode = 0x1
	UnauthorizedStatusCode      SubscribeDoneStatusCode = 0x2
	TrackEndedStatusCode        SubscribeDoneStatusCode = 0x3
	SubscriptionEndedStatusCode SubscribeDoneStatusCode = 0x4
	GoingAwayStatusCode         SubscribeDoneStatusCode = 0x5
	ExpiredStatusCode           SubscribeDoneStatusCode = 0x6
)

var SubscribeDoneStatusCodeTexts = map[SubscribeDoneStatusCode]string{
	UnsubscribedStatusCode:      "moqt: unsubscribed",
	InternalErrorStatusCode:     "moqt: internal error",
	UnauthorizedStatusCode:      "moqt: unauthorized",
	TrackEndedStatusCode:        "moqt: track ended",
	SubscriptionEndedStatusCode: "moqt: subscription ended",
	GoingAwayStatusCode:         "moqt: going away",
	ExpiredStatusCode:           "moqt: expired",
}

// SubscribeDoneStatusCode is the status code carried by SUBSCRIBE_DONE.
type SubscribeDoneStatusCode uint64

func (code SubscribeDoneStatusCode) String() string {
	if text, ok := SubscribeDoneStatusCodeTexts[code]; ok {
		return text
	}
	return fmt.Sprintf("moqt: subscribe done status 0x%x", uint64(code))
}

/*
 * Announce Errors
 */
const (
	InternalAnnounceErrorCode     AnnounceErrorCode = 0x0
	UnauthorizedAnnounceErrorCode AnnounceErrorCode = 0x1
	DuplicatedAnnounceErrorCode   AnnounceErrorCode = 0x2
)

var AnnounceErrorCodeTexts = map[AnnounceErrorCode]string{
	InternalAnnounceErrorCode:     "moqt: internal error",
	UnauthorizedAnnounceErrorCode: "moqt: unauthorized",
	DuplicatedAnnounceErrorCode:   "moqt: duplicated namespace",
}

// AnnounceErrorCode is the error code carried by ANNOUNCE_ERROR.
type AnnounceErrorCode uint64

func (code AnnounceErrorCode) String() string {
	if text, ok := AnnounceErrorCodeTexts[code]; ok {
		return text
	}
	return fmt.Sprintf("moqt: announce error 0x%x", uint64(code))
}

/*
 * Session Error
 */
const (
	NoError SessionErrorCode = 0x0

	InternalSessionErrorCode         SessionErrorCode = 0x1
	UnauthorizedSessionErrorCode     SessionErrorCode = 0x2
	ProtocolViolationErrorCode       SessionErrorCode = 0x3
	DuplicateTrackAliasErrorCode     SessionErrorCode = 0x4
	ParameterLengthMismatchErrorCode SessionErrorCode = 0x5
	GoAwayTimeoutErrorCode           SessionErrorCode = 0x10
	UnsupportedVersionErrorCode      SessionErrorCode = 0x12

	SetupFailedErrorCode SessionErrorCode = 0x13
)

var SessionErrorCodeTexts = map[SessionErrorCode]string{
	NoError:                          "moqt: no error",
	InternalSessionErrorCode:         "moqt: internal error",
	UnauthorizedSessionErrorCode:     "moqt: unauthorized",
	ProtocolViolationErrorCode:       "moqt: protocol violation",
	DuplicateTrackAliasErrorCode:     "moqt: duplicate track alias",
	ParameterLengthMismatchErrorCode: "moqt: parameter length mismatch",
	GoAwayTimeoutErrorCode:           "moqt: goaway timeout",
	UnsupportedVersionErrorCode:      "moqt: unsupported version",
	SetupFailedErrorCode:             "moqt: setup failed",
}

// SessionErrorCode represents error codes for MOQ session operations.
// These codes are used at the connection level for protocol errors.
type SessionErrorCode quic.ApplicationErrorCode

func (code SessionErrorCode) String() string {
	if text, ok := SessionErrorCodeTexts[code]; ok {
		return text
	}
	return fmt.Sprintf("moqt: session error 0x%x", uint64(code))
}

// SessionError wraps a QUIC application error with session-specific error codes.
type SessionError struct{ *quic.ApplicationError }

func (err SessionError) Error() string {
	var role string
	if err.Remote {
		role = "remote"
	} else {
		role = "local"
	}
	return fmt.Sprintf("%s (%s)", err.SessionErrorCode().String(), role)
}

func (err SessionError) SessionErrorCode() SessionErrorCode {
	return SessionErrorCode(err.ErrorCode)
}

func (err SessionError) Unwrap() error {
	return err.ApplicationError
}

/*
 * Object Stream Errors
 */
const (
	InternalStreamErrorCode           StreamErrorCode = 0x00
	ProtocolViolationStreamErrorCode  StreamErrorCode = 0x01
	InvalidSubscribeIDStreamErrorCode StreamErrorCode = 0x02
	SubscriptionClosedStreamErrorCode StreamErrorCode = 0x03
	ClosedSessionStreamErrorCode      StreamErrorCode = 0x04
)

var StreamErrorCodeTexts = map[StreamErrorCode]string{
	InternalStreamErrorCode:           "moqt: internal error",
	ProtocolViolationStreamErrorCode:  "moqt: protocol violation",
	InvalidSubscribeIDStreamErrorCode: "moqt: invalid subscribe id",
	SubscriptionClosedStreamErrorCode: "moqt: subscription closed",
	ClosedSessionStreamErrorCode:      "moqt: session closed",
}

// StreamErrorCode is used to reset or stop a single object stream.
type StreamErrorCode quic.StreamErrorCode

func (code StreamErrorCode) String() string {
	if text, ok := StreamErrorCodeTexts[code]; ok {
		return text
	}
	return fmt.Sprintf("moqt: stream error 0x%x", uint64(code))
}

// sessionErrorCodeFor maps the error that ended a read loop to the code the
// connection is closed with.
func sessionErrorCodeFor(err error) SessionErrorCode {
	var (
		decErr  *message.DecodingError
		typeErr *message.UnknownMessageTypeError
	)
	switch {
	case err == nil:
		return NoError
	case errors.As(err, &decErr), errors.As(err, &typeErr), errors.Is(err, ErrUnexpectedMessage):
		return ProtocolViolationErrorCode
	case errors.Is(err, ErrUnsupportedVersion):
		return UnsupportedVersionErrorCode
	default:
		return InternalSessionErrorCode
	}
}
