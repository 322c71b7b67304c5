package moqt

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *message.Codec {
	t.Helper()
	codec, err := message.NewCodec(message.Draft05)
	require.NoError(t, err)
	return codec
}

func encodeMessages(t *testing.T, codec *message.Codec, msgs ...message.Message) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, msg := range msgs {
		require.NoError(t, codec.EncodeMessage(&buf, msg))
	}
	return buf.Bytes()
}

// newScriptedStream returns a stream that reads input and records writes.
func newScriptedStream(input []byte) (*MockQUICStream, *lockedBuffer) {
	written := &lockedBuffer{}
	r := bytes.NewReader(input)
	stream := &MockQUICStream{
		ReadFunc:  r.Read,
		WriteFunc: written.Write,
	}
	stream.On("SetReadDeadline", mock.Anything).Return(nil)
	return stream, written
}

type lockedBuffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func newTestControlStream(t *testing.T, input []byte) (*controlStream, *lockedBuffer) {
	stream, written := newScriptedStream(input)
	cs := newControlStream(stream, testCodec(t), slog.New(slog.DiscardHandler), nil)
	return cs, written
}

func TestControlStream_Handshake(t *testing.T) {
	codec := testCodec(t)

	tests := map[string]struct {
		reply     []byte
		wantErr   error
		wantState ControlState
	}{
		"server setup": {
			reply:     encodeMessages(t, codec, &message.ServerSetup{SelectedVersion: message.Draft05}),
			wantState: StateEstablished,
		},
		"first message is not server setup": {
			reply:     encodeMessages(t, codec, &message.SubscribeOk{SubscribeID: 0}),
			wantErr:   ErrUnexpectedMessage,
			wantState: StateClosed,
		},
		"stream closed before reply": {
			reply:     nil,
			wantErr:   ErrStreamClosed,
			wantState: StateClosed,
		},
		"unsupported version selected": {
			reply:     encodeMessages(t, codec, &message.ServerSetup{SelectedVersion: message.Draft04}),
			wantErr:   ErrUnsupportedVersion,
			wantState: StateClosed,
		},
		"truncated reply": {
			reply:     []byte{0x41},
			wantErr:   io.ErrUnexpectedEOF,
			wantState: StateClosed,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cs, written := newTestControlStream(t, tt.reply)

			ss, err := cs.handshake(context.Background(), nil)
			assert.Equal(t, tt.wantState, cs.State())

			if tt.wantErr != nil {
				var hsErr *HandshakeError
				require.ErrorAs(t, err, &hsErr)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ss)
			} else {
				require.NoError(t, err)
				assert.Equal(t, message.Draft05, ss.SelectedVersion)
			}

			// CLIENT_SETUP is sent in every case.
			msg, err := codec.DecodeControlMessage(bytes.NewReader(written.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, &message.ClientSetup{
				Versions: []message.Version{message.Draft05},
				Parameters: message.Parameters{
					{Type: message.RoleParameterType, Value: []byte{0x02}},
				},
			}, msg)
		})
	}
}

func TestControlStream_Handshake_ClientSetupBytes(t *testing.T) {
	cs, written := newTestControlStream(t, encodeMessages(t, testCodec(t), &message.ServerSetup{SelectedVersion: message.Draft05}))

	_, err := cs.handshake(context.Background(), nil)
	require.NoError(t, err)

	want := []byte{
		0x40, 0x40, // CLIENT_SETUP
		0x01,
		0xc0, 0x00, 0x00, 0x00, 0xff, 0x00, 0x00, 0x05,
		0x01,
		0x00, 0x01, 0x02, // role: subscriber
	}
	assert.Equal(t, want, written.Bytes())
	assert.Equal(t, 1, written.writes, "CLIENT_SETUP must be written at once")
}

func TestControlStream_Handshake_ExtraParameters(t *testing.T) {
	codec := testCodec(t)
	cs, written := newTestControlStream(t, encodeMessages(t, codec, &message.ServerSetup{SelectedVersion: message.Draft05}))

	_, err := cs.handshake(context.Background(), message.Parameters{{Type: message.PathParameterType, Value: []byte("/moq")}})
	require.NoError(t, err)

	msg, err := codec.DecodeControlMessage(bytes.NewReader(written.Bytes()))
	require.NoError(t, err)
	setup := msg.(*message.ClientSetup)
	path, ok := setup.Parameters.Get(message.PathParameterType)
	assert.True(t, ok)
	assert.Equal(t, []byte("/moq"), path)
}

func TestControlStream_Handshake_InvalidState(t *testing.T) {
	cs, _ := newTestControlStream(t, encodeMessages(t, testCodec(t), &message.ServerSetup{SelectedVersion: message.Draft05}))

	_, err := cs.handshake(context.Background(), nil)
	require.NoError(t, err)

	_, err = cs.handshake(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestControlStream_Handshake_Timeout(t *testing.T) {
	block := make(chan struct{})
	deadlines := make(chan time.Time, 4)

	stream := &MockQUICStream{
		ReadFunc: func(p []byte) (int, error) {
			<-block
			return 0, io.EOF
		},
		WriteFunc: func(p []byte) (int, error) {
			return len(p), nil
		},
	}
	stream.On("SetReadDeadline", mock.Anything).Run(func(args mock.Arguments) {
		deadlines <- args.Get(0).(time.Time)
		// A past deadline unblocks the pending read.
		if d := args.Get(0).(time.Time); !d.IsZero() && !d.After(time.Now()) {
			select {
			case <-block:
			default:
				close(block)
			}
		}
	}).Return(nil)

	cs := newControlStream(stream, testCodec(t), slog.New(slog.DiscardHandler), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := cs.handshake(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateClosed, cs.State())

	first := <-deadlines
	assert.False(t, first.IsZero(), "the context deadline is applied to the stream")
}

func TestControlStream_Handshake_CanceledDuringReply(t *testing.T) {
	codec := testCodec(t)
	reply := encodeMessages(t, codec, &message.ServerSetup{SelectedVersion: message.Draft05})

	tests := map[string]struct {
		callbackDelay time.Duration
	}{
		"callback runs at once": {},
		"callback runs late": {
			callbackDelay: 20 * time.Millisecond,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var mu sync.Mutex
			var deadlines []time.Time

			r := bytes.NewReader(reply)
			var once sync.Once
			stream := &MockQUICStream{
				ReadFunc: func(p []byte) (int, error) {
					once.Do(cancel)
					return r.Read(p)
				},
				WriteFunc: func(p []byte) (int, error) {
					return len(p), nil
				},
			}
			stream.On("SetReadDeadline", mock.Anything).Run(func(args mock.Arguments) {
				d := args.Get(0).(time.Time)
				if !d.IsZero() {
					time.Sleep(tt.callbackDelay)
				}
				mu.Lock()
				deadlines = append(deadlines, d)
				mu.Unlock()
			}).Return(nil)

			cs := newControlStream(stream, codec, slog.New(slog.DiscardHandler), nil)

			ss, err := cs.handshake(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, message.Draft05, ss.SelectedVersion)
			assert.Equal(t, StateEstablished, cs.State())

			mu.Lock()
			defer mu.Unlock()
			require.NotEmpty(t, deadlines)
			assert.True(t, deadlines[len(deadlines)-1].IsZero(), "the read deadline is cleared last")
		})
	}
}

func TestControlStream_ConcurrentSend(t *testing.T) {
	codec := testCodec(t)
	cs, written := newTestControlStream(t, nil)
	cs.state.Store(int32(StateEstablished))

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			assert.NoError(t, cs.send(&message.SubscribeError{
				SubscribeID:  id,
				ErrorCode:    uint64(TrackNotFoundErrorCode),
				ReasonPhrase: "no such track in this namespace",
				TrackAlias:   id,
			}))
		}(uint64(i))
	}
	wg.Wait()

	r := bytes.NewReader(written.Bytes())
	seen := make(map[uint64]bool, n)
	for i := 0; i < n; i++ {
		msg, err := codec.DecodeControlMessage(r)
		require.NoError(t, err)
		se, ok := msg.(*message.SubscribeError)
		require.True(t, ok)
		assert.Equal(t, se.SubscribeID, se.TrackAlias)
		seen[se.SubscribeID] = true
	}
	assert.Len(t, seen, n)

	_, err := codec.DecodeControlMessage(r)
	assert.Equal(t, io.EOF, err)
}

func TestControlStream_Send_InvalidState(t *testing.T) {
	cs, written := newTestControlStream(t, nil)

	err := cs.send(&message.Unsubscribe{SubscribeID: 1})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, written.Bytes())
}

func TestControlStream_ReadLoop(t *testing.T) {
	codec := testCodec(t)

	t.Run("dispatches in order and ends cleanly", func(t *testing.T) {
		input := encodeMessages(t, codec,
			&message.SubscribeOk{SubscribeID: 0},
			&message.AnnounceOk{TrackNamespace: "live"},
			&message.SubscribeDone{SubscribeID: 0, StatusCode: uint64(TrackEndedStatusCode)},
		)
		cs, _ := newTestControlStream(t, input)
		cs.state.Store(int32(StateEstablished))

		var got []message.MessageType
		err := cs.readLoop(func(msg message.Message) error {
			got = append(got, msg.Type())
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []message.MessageType{
			message.SubscribeOkType,
			message.AnnounceOkType,
			message.SubscribeDoneType,
		}, got)
		assert.Equal(t, StateClosed, cs.State())
	})

	t.Run("decode error ends the loop", func(t *testing.T) {
		input := append(encodeMessages(t, codec, &message.AnnounceOk{TrackNamespace: "live"}), 0x3f)
		cs, _ := newTestControlStream(t, input)
		cs.state.Store(int32(StateEstablished))

		calls := 0
		err := cs.readLoop(func(msg message.Message) error {
			calls++
			return nil
		})
		var typeErr *message.UnknownMessageTypeError
		require.ErrorAs(t, err, &typeErr)
		assert.Equal(t, 1, calls)
		assert.Equal(t, StateClosed, cs.State())
	})

	t.Run("partial message is an error", func(t *testing.T) {
		cs, _ := newTestControlStream(t, []byte{0x04, 0x01})
		cs.state.Store(int32(StateEstablished))

		err := cs.readLoop(func(msg message.Message) error { return nil })
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("handler error ends the loop", func(t *testing.T) {
		handlerErr := assert.AnError
		input := encodeMessages(t, codec, &message.GoAway{NewSessionURI: "https://other"}, &message.AnnounceOk{})
		cs, _ := newTestControlStream(t, input)
		cs.state.Store(int32(StateEstablished))

		err := cs.readLoop(func(msg message.Message) error { return handlerErr })
		assert.ErrorIs(t, err, handlerErr)
	})
}

func TestControlState_String(t *testing.T) {
	assert.Equal(t, "unconnected", StateUnconnected.String())
	assert.Equal(t, "handshaking", StateHandshaking.String())
	assert.Equal(t, "established", StateEstablished.String())
	assert.Equal(t, "closed", StateClosed.String())
}
