package moqt

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/OkutaniDaichi0106/moqtransport/quic"
	"github.com/stretchr/testify/assert"
)

func TestStandardErrors(t *testing.T) {
	tests := map[string]struct {
		err    error
		expect string
	}{
		"invalid scheme": {
			err:    ErrInvalidScheme,
			expect: "moqt: invalid scheme",
		},
		"closed session": {
			err:    ErrClosedSession,
			expect: "moqt: closed session",
		},
		"not publisher": {
			err:    ErrNotPublisher,
			expect: "moqt: session has not announced",
		},
		"subscription closed": {
			err:    ErrSubscriptionClosed,
			expect: "moqt: subscription closed",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.expect)
		})
	}

	assert.ErrorIs(t, ErrUnsupportedVersion, message.ErrUnsupportedVersion)
}

func TestHandshakeError(t *testing.T) {
	err := &HandshakeError{Err: ErrStreamClosed}

	assert.EqualError(t, err, "moqt: handshake failed: moqt: stream closed")
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.ErrorIs(t, fmt.Errorf("dial: %w", err), ErrStreamClosed)
}

func TestSubscribeError(t *testing.T) {
	tests := map[string]struct {
		err    *SubscribeError
		expect string
	}{
		"with reason": {
			err:    &SubscribeError{Code: TrackNotFoundErrorCode, Reason: "unknown track"},
			expect: "moqt: track does not exist: unknown track",
		},
		"without reason": {
			err:    &SubscribeError{Code: UnauthorizedSubscribeErrorCode},
			expect: "moqt: unauthorized",
		},
		"unknown code": {
			err:    &SubscribeError{Code: SubscribeErrorCode(0x42)},
			expect: "moqt: subscribe error 0x42",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.expect)
		})
	}
}

func TestCodeStrings(t *testing.T) {
	assert.Equal(t, "moqt: track ended", TrackEndedStatusCode.String())
	assert.Equal(t, "moqt: subscribe done status 0x9", SubscribeDoneStatusCode(9).String())
	assert.Equal(t, "moqt: duplicated namespace", DuplicatedAnnounceErrorCode.String())
	assert.Equal(t, "moqt: announce error 0x9", AnnounceErrorCode(9).String())
	assert.Equal(t, "moqt: setup failed", SetupFailedErrorCode.String())
	assert.Equal(t, "moqt: session error 0x99", SessionErrorCode(0x99).String())
	assert.Equal(t, "moqt: invalid subscribe id", InvalidSubscribeIDStreamErrorCode.String())
	assert.Equal(t, "moqt: stream error 0x9", StreamErrorCode(9).String())
}

func TestSessionError(t *testing.T) {
	tests := map[string]struct {
		appErr *quic.ApplicationError
		expect string
	}{
		"remote": {
			appErr: &quic.ApplicationError{Remote: true, ErrorCode: quic.ApplicationErrorCode(ProtocolViolationErrorCode)},
			expect: "moqt: protocol violation (remote)",
		},
		"local": {
			appErr: &quic.ApplicationError{ErrorCode: quic.ApplicationErrorCode(NoError)},
			expect: "moqt: no error (local)",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := SessionError{ApplicationError: tt.appErr}
			assert.EqualError(t, err, tt.expect)
			assert.Equal(t, SessionErrorCode(tt.appErr.ErrorCode), err.SessionErrorCode())

			var appErr *quic.ApplicationError
			assert.ErrorAs(t, err, &appErr)
		})
	}
}

func TestSessionCause(t *testing.T) {
	appErr := &quic.ApplicationError{Remote: true, ErrorCode: quic.ApplicationErrorCode(GoAwayTimeoutErrorCode)}

	var sessErr SessionError
	assert.ErrorAs(t, sessionCause(fmt.Errorf("read: %w", appErr)), &sessErr)
	assert.Equal(t, GoAwayTimeoutErrorCode, sessErr.SessionErrorCode())

	assert.Equal(t, io.ErrClosedPipe, sessionCause(io.ErrClosedPipe))
}

func TestSessionErrorCodeFor(t *testing.T) {
	tests := map[string]struct {
		err    error
		expect SessionErrorCode
	}{
		"nil": {
			err:    nil,
			expect: NoError,
		},
		"decoding error": {
			err:    &message.DecodingError{Field: "track_name", Err: io.ErrUnexpectedEOF},
			expect: ProtocolViolationErrorCode,
		},
		"unknown message type": {
			err:    &message.UnknownMessageTypeError{Type: 0x3f},
			expect: ProtocolViolationErrorCode,
		},
		"unexpected message": {
			err:    fmt.Errorf("%w: SERVER_SETUP after setup", ErrUnexpectedMessage),
			expect: ProtocolViolationErrorCode,
		},
		"unsupported version": {
			err:    &HandshakeError{Err: ErrUnsupportedVersion},
			expect: UnsupportedVersionErrorCode,
		},
		"other": {
			err:    errors.New("boom"),
			expect: InternalSessionErrorCode,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expect, sessionErrorCodeFor(tt.err))
		})
	}
}

func TestProtocolViolationError(t *testing.T) {
	err := &ProtocolViolationError{SubscribeID: 9, StreamID: 14}
	assert.EqualError(t, err, "moqt: protocol violation: object for unknown subscribe id 9 on stream 14")
}
