package moqt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/OkutaniDaichi0106/moqtransport/quic"
)

// ControlState is the state of the control stream.
type ControlState int32

const (
	StateUnconnected ControlState = iota
	StateHandshaking
	StateEstablished
	StateClosed
)

func (s ControlState) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("ControlState(%d)", int32(s))
	}
}

// controlStream owns the bidirectional control stream.
// Reads happen on a single goroutine; writes are serialized by mu.
type controlStream struct {
	stream  quic.Stream
	reader  *bufio.Reader
	codec   *message.Codec
	logger  *slog.Logger
	metrics *Metrics

	mu    sync.Mutex
	state atomic.Int32
}

func newControlStream(stream quic.Stream, codec *message.Codec, logger *slog.Logger, metrics *Metrics) *controlStream {
	return &controlStream{
		stream:  stream,
		reader:  bufio.NewReader(stream),
		codec:   codec,
		logger:  logger,
		metrics: metrics,
	}
}

func (cs *controlStream) State() ControlState {
	return ControlState(cs.state.Load())
}

// handshake sends CLIENT_SETUP and reads the peer's first message, which must
// be a SERVER_SETUP selecting the advertised version.
// The read is abandoned when ctx is done.
func (cs *controlStream) handshake(ctx context.Context, params message.Parameters) (*message.ServerSetup, error) {
	if !cs.state.CompareAndSwap(int32(StateUnconnected), int32(StateHandshaking)) {
		return nil, ErrInvalidState
	}

	ss, err := cs.exchangeSetup(ctx, params)
	if err != nil {
		cs.state.Store(int32(StateClosed))
		return nil, &HandshakeError{Err: err}
	}

	cs.state.Store(int32(StateEstablished))
	return ss, nil
}

func (cs *controlStream) exchangeSetup(ctx context.Context, params message.Parameters) (*message.ServerSetup, error) {
	if deadline, ok := ctx.Deadline(); ok {
		cs.stream.SetReadDeadline(deadline)
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		cs.stream.SetReadDeadline(time.Now())
		close(fired)
	})
	defer func() {
		// The reset must come after the cancel callback so the read loop
		// never inherits an expired deadline.
		if !stop() {
			<-fired
		}
		cs.stream.SetReadDeadline(time.Time{})
	}()

	setup := &message.ClientSetup{
		Versions: []message.Version{cs.codec.Version()},
		Parameters: append(message.Parameters{
			{Type: message.RoleParameterType, Value: []byte{message.RoleSubscriber}},
		}, params...),
	}
	if err := cs.send(setup); err != nil {
		return nil, err
	}

	msg, err := cs.codec.DecodeControlMessage(cs.reader)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == io.EOF {
			return nil, ErrStreamClosed
		}
		return nil, err
	}
	cs.metrics.controlMessage("received", msg.Type())

	switch m := msg.(type) {
	case *message.ServerSetup:
		if m.SelectedVersion != cs.codec.Version() {
			cs.logger.Error("server selected an unsupported version",
				"selected_version", m.SelectedVersion.String(),
				"advertised_version", cs.codec.Version().String(),
			)
			return nil, ErrUnsupportedVersion
		}
		cs.logger.Debug("received SERVER_SETUP", "selected_version", m.SelectedVersion.String())
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Type())
	}
}

// readLoop decodes control messages and passes them to handle in arrival order.
// It returns nil when the peer ends the stream between messages.
func (cs *controlStream) readLoop(handle func(message.Message) error) error {
	for {
		msg, err := cs.codec.DecodeControlMessage(cs.reader)
		if err != nil {
			if err == io.EOF {
				cs.state.Store(int32(StateClosed))
				cs.logger.Debug("control stream closed by peer")
				return nil
			}
			cs.state.Store(int32(StateClosed))
			return err
		}

		cs.metrics.controlMessage("received", msg.Type())
		cs.logger.Debug("received control message", "type", msg.Type().String())

		if err := handle(msg); err != nil {
			cs.state.Store(int32(StateClosed))
			return err
		}
	}
}

// send writes msg as one unit.
func (cs *controlStream) send(msg message.Message) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	switch cs.State() {
	case StateHandshaking, StateEstablished:
	default:
		return ErrInvalidState
	}

	if err := cs.codec.EncodeMessage(cs.stream, msg); err != nil {
		return err
	}

	cs.metrics.controlMessage("sent", msg.Type())
	cs.logger.Debug("sent control message", "type", msg.Type().String())

	return nil
}

func (cs *controlStream) close() error {
	cs.state.Store(int32(StateClosed))
	return cs.stream.Close()
}
