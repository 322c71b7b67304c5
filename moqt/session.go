package moqt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/OkutaniDaichi0106/moqtransport/quic"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// newSession starts the background loops of an established session.
func newSession(conn quic.Connection, control *controlStream, codec *message.Codec, config *Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancelCause(context.Background())

	sess := &Session{
		ctx:           ctx,
		cancel:        cancel,
		conn:          conn,
		control:       control,
		codec:         codec,
		config:        config,
		logger:        logger,
		metrics:       config.metrics(),
		tracer:        config.tracer(),
		handler:       config.handler(),
		subscriptions: make(map[uint64]*Subscription),
	}

	sess.eg.Go(sess.handleControlStream)
	sess.eg.Go(sess.handleUniStreams)

	return sess
}

// Session is an established MOQ Transport session.
// It owns the control stream and the registry of subscriptions made on it.
type Session struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	eg errgroup.Group

	conn    quic.Connection
	control *controlStream
	codec   *message.Codec
	config  *Config

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	handler Handler

	subscribeIDCounter atomic.Uint64

	subscriptions map[uint64]*Subscription
	mu            sync.RWMutex

	announced     atomic.Bool
	isTerminating atomic.Bool
}

// Context is canceled when the session ends.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Err returns the reason the session ended, or nil while it is running.
func (s *Session) Err() error {
	return context.Cause(s.ctx)
}

// Wait blocks until the background loops of the session have returned.
// It returns the error that ended the control stream, if any.
func (s *Session) Wait() error {
	return s.eg.Wait()
}

// Version returns the negotiated draft version.
func (s *Session) Version() message.Version {
	return s.codec.Version()
}

func (s *Session) terminating() bool {
	return s.isTerminating.Load()
}

// Close closes the session with NoError.
func (s *Session) Close() error {
	return s.CloseWithError(NoError, "")
}

// CloseWithError closes the connection with code. Pending reads on every
// stream are unblocked and all subscriptions end with ErrClosedSession.
func (s *Session) CloseWithError(code SessionErrorCode, msg string) error {
	return s.terminate(code, msg, ErrClosedSession)
}

func (s *Session) terminate(code SessionErrorCode, msg string, cause error) error {
	if !s.isTerminating.CompareAndSwap(false, true) {
		s.logger.Debug("termination already in progress")
		return nil
	}

	s.logger.Info("terminating session",
		"code", code.String(),
		"message", msg,
	)

	s.cancel(cause)

	err := s.conn.CloseWithError(quic.ApplicationErrorCode(code), msg)

	s.mu.Lock()
	subs := s.subscriptions
	s.subscriptions = make(map[uint64]*Subscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.close(ErrClosedSession)
		s.metrics.subscriptionRemoved()
	}

	s.metrics.sessionClosed()

	if err != nil {
		s.logger.Debug("closing connection failed", "error", err)
		return err
	}

	return nil
}

// sessionCause converts a connection error into the error reported by Err.
func sessionCause(err error) error {
	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) {
		return SessionError{ApplicationError: appErr}
	}
	return err
}

func (s *Session) handleControlStream() error {
	err := s.control.readLoop(s.handleControlMessage)
	if s.terminating() {
		return nil
	}

	if err == nil {
		s.logger.Info("control stream closed by peer")
		s.terminate(NoError, "control stream closed", ErrStreamClosed)
		return nil
	}

	cause := sessionCause(err)
	s.logger.Error("control stream failed", "error", cause)
	s.terminate(sessionErrorCodeFor(err), err.Error(), cause)

	return cause
}

func (s *Session) handleControlMessage(msg message.Message) error {
	switch m := msg.(type) {
	case *message.SubscribeOk:
		sub, ok := s.lookup(m.SubscribeID)
		if !ok {
			s.logger.Debug("SUBSCRIBE_OK for unknown subscription", "subscribe_id", m.SubscribeID)
			return nil
		}
		if !sub.resolve(m) {
			s.logger.Debug("ignoring duplicate SUBSCRIBE_OK", "subscribe_id", m.SubscribeID)
			return nil
		}
		s.metrics.subscribeResult("ok")
		return nil
	case *message.SubscribeError:
		sub, ok := s.lookup(m.SubscribeID)
		if !ok {
			s.logger.Debug("SUBSCRIBE_ERROR for unknown subscription", "subscribe_id", m.SubscribeID)
			return nil
		}
		err := &SubscribeError{
			Code:       SubscribeErrorCode(m.ErrorCode),
			Reason:     m.ReasonPhrase,
			TrackAlias: m.TrackAlias,
		}
		if !sub.reject(err) {
			s.logger.Debug("ignoring SUBSCRIBE_ERROR for resolved subscription", "subscribe_id", m.SubscribeID)
			return nil
		}
		s.remove(m.SubscribeID)
		s.metrics.subscribeResult("error")
		return nil
	case *message.SubscribeDone:
		sub, ok := s.remove(m.SubscribeID)
		if !ok {
			s.logger.Debug("SUBSCRIBE_DONE for unknown subscription", "subscribe_id", m.SubscribeID)
			return nil
		}
		s.logger.Debug("subscription done",
			"subscribe_id", m.SubscribeID,
			"status", SubscribeDoneStatusCode(m.StatusCode).String(),
			"reason", m.ReasonPhrase,
		)
		sub.close(io.EOF)
		return nil
	case *message.AnnounceOk, *message.AnnounceError, *message.GoAway,
		*message.Subscribe, *message.SubscribeUpdate, *message.Unsubscribe,
		*message.Announce, *message.Unannounce:
		if g, ok := m.(*message.GoAway); ok {
			s.logger.Info("received GOAWAY", "new_session_uri", g.NewSessionURI)
		}
		if s.handler == nil {
			s.logger.Debug("no handler for control message", "type", msg.Type().String())
			return nil
		}
		return s.handler.HandleMessage(s, m)
	case *message.ClientSetup, *message.ServerSetup:
		return fmt.Errorf("%w: %s after setup", ErrUnexpectedMessage, msg.Type())
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Type())
	}
}

func (s *Session) handleUniStreams() error {
	for {
		stream, err := s.conn.AcceptUniStream(s.ctx)
		if err != nil {
			if s.terminating() {
				return nil
			}
			s.logger.Debug("failed to accept unidirectional stream, handler stopping",
				"error", err,
			)
			s.terminate(InternalSessionErrorCode, "connection closed", sessionCause(err))
			return nil
		}

		streamLogger := s.logger.With("stream_id", stream.StreamID())
		streamLogger.Debug("accepted unidirectional stream")

		s.eg.Go(func() error {
			s.handleObjectStream(stream, streamLogger)
			return nil
		})
	}
}

// handleObjectStream routes every object of stream to its subscription.
// Errors end only this stream.
func (s *Session) handleObjectStream(stream quic.ReceiveStream, logger *slog.Logger) {
	reader := newObjectStreamReader(bufio.NewReader(stream), s.codec)

	for {
		obj, err := reader.ReadObject()
		if err != nil {
			if err == io.EOF {
				logger.Debug("object stream ended")
				return
			}
			if s.terminating() {
				return
			}

			code := InternalStreamErrorCode
			var (
				decErr  *message.DecodingError
				typeErr *message.UnknownMessageTypeError
			)
			if errors.As(err, &decErr) || errors.As(err, &typeErr) {
				code = ProtocolViolationStreamErrorCode
			}
			logger.Warn("failed to read object", "error", err)
			stream.CancelRead(quic.StreamErrorCode(code))
			return
		}

		sub, ok := s.lookup(obj.SubscribeID)
		if !ok {
			violation := &ProtocolViolationError{
				SubscribeID: obj.SubscribeID,
				StreamID:    stream.StreamID(),
			}
			logger.Warn("aborting object stream", "error", violation, "subscribe_id", obj.SubscribeID)
			s.metrics.protocolViolation()
			stream.CancelRead(quic.StreamErrorCode(InvalidSubscribeIDStreamErrorCode))
			return
		}

		if err := sub.deliver(s.ctx, obj); err != nil {
			code := SubscriptionClosedStreamErrorCode
			if s.terminating() {
				code = ClosedSessionStreamErrorCode
			}
			logger.Debug("subscription no longer accepts objects",
				"subscribe_id", obj.SubscribeID,
				"reason", err,
			)
			stream.CancelRead(quic.StreamErrorCode(code))
			return
		}

		s.metrics.objectReceived(obj)
	}
}

func (s *Session) nextSubscribeID() uint64 {
	return s.subscribeIDCounter.Add(1) - 1
}

func (s *Session) lookup(id uint64) (*Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[id]
	return sub, ok
}

func (s *Session) add(sub *Subscription) {
	s.mu.Lock()
	s.subscriptions[sub.id] = sub
	s.mu.Unlock()
	s.metrics.subscriptionAdded()
}

func (s *Session) remove(id uint64) (*Subscription, bool) {
	s.mu.Lock()
	sub, ok := s.subscriptions[id]
	if ok {
		delete(s.subscriptions, id)
	}
	s.mu.Unlock()
	if ok {
		s.metrics.subscriptionRemoved()
	}
	return sub, ok
}

func (s *Session) send(msg message.Message) error {
	if s.terminating() {
		return ErrClosedSession
	}
	if err := s.control.send(msg); err != nil {
		if s.terminating() {
			return ErrClosedSession
		}
		return err
	}
	return nil
}

// Subscribe requests the track and waits for the publisher's answer.
// The wait is bounded by ctx and Config.SubscribeTimeout; when it expires
// the request is withdrawn with UNSUBSCRIBE and the context error is returned.
func (s *Session) Subscribe(ctx context.Context, namespace, trackName string, opts ...SubscribeOption) (*Subscription, error) {
	sub, err := s.SubscribeAsync(namespace, trackName, opts...)
	if err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, s.tracer, "moqt.subscribe",
		attribute.Int64("moqt.subscribe_id", int64(sub.ID())),
		attribute.String("moqt.track_namespace", namespace),
		attribute.String("moqt.track_name", trackName),
	)

	if timeout := s.config.subscribeTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err = sub.Wait(ctx)
	if ctxErr := ctx.Err(); err != nil && err == ctxErr {
		select {
		case <-sub.resolved:
			err = sub.err
		default:
			s.logger.Warn("subscription not answered in time",
				"subscribe_id", sub.ID(),
				"error", ctxErr,
			)
			s.metrics.subscribeResult("timeout")
			if unsubErr := s.Unsubscribe(sub.ID()); unsubErr != nil {
				s.logger.Debug("failed to withdraw subscription", "subscribe_id", sub.ID(), "error", unsubErr)
			}
			endSpan(span, ctxErr)
			return nil, ctxErr
		}
	}
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// SubscribeAsync sends SUBSCRIBE and returns the pending subscription without waiting.
// The subscribe ID is used as the track alias.
func (s *Session) SubscribeAsync(namespace, trackName string, opts ...SubscribeOption) (*Subscription, error) {
	if s.terminating() {
		return nil, ErrClosedSession
	}

	cfg := defaultSubscribeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := s.nextSubscribeID()
	sub := newSubscription(s, id, id, namespace, trackName, s.config.subscriptionBuffer())
	s.add(sub)

	err := s.send(&message.Subscribe{
		SubscribeID:        id,
		TrackAlias:         id,
		TrackNamespace:     namespace,
		TrackName:          trackName,
		SubscriberPriority: cfg.priority,
		GroupOrder:         cfg.groupOrder,
		Filter:             cfg.filter,
		Range:              cfg.locations,
		Parameters:         cfg.params,
	})
	if err != nil {
		s.remove(id)
		sub.close(err)
		s.logger.Error("failed to send SUBSCRIBE", "subscribe_id", id, "error", err)
		return nil, err
	}

	s.logger.Debug("subscribing",
		"subscribe_id", id,
		"track_namespace", namespace,
		"track_name", trackName,
	)

	return sub, nil
}

// Unsubscribe sends UNSUBSCRIBE and ends the local subscription, if any.
// Objects already buffered are still readable before io.EOF.
func (s *Session) Unsubscribe(id uint64) error {
	if sub, ok := s.remove(id); ok {
		sub.close(io.EOF)
	}
	return s.send(&message.Unsubscribe{SubscribeID: id})
}

// Announce sends ANNOUNCE. After it succeeds the session may write objects.
func (s *Session) Announce(namespace string, params ...message.Parameter) error {
	err := s.send(&message.Announce{
		TrackNamespace: namespace,
		Parameters:     params,
	})
	if err != nil {
		return err
	}
	s.announced.Store(true)
	return nil
}

func (s *Session) AnnounceOk(namespace string) error {
	return s.send(&message.AnnounceOk{TrackNamespace: namespace})
}

func (s *Session) AnnounceError(namespace string, code AnnounceErrorCode, reason string) error {
	return s.send(&message.AnnounceError{
		TrackNamespace: namespace,
		ErrorCode:      uint64(code),
		ReasonPhrase:   reason,
	})
}

func (s *Session) Unannounce(namespace string) error {
	return s.send(&message.Unannounce{TrackNamespace: namespace})
}

// SubscribeOk accepts a subscription made by the peer.
// The largest group and object are sent only when contentExists is true.
func (s *Session) SubscribeOk(id uint64, expires time.Duration, groupOrder uint8, contentExists bool, largestGroup, largestObject uint64) error {
	return s.send(&message.SubscribeOk{
		SubscribeID:     id,
		Expires:         uint64(expires.Milliseconds()),
		GroupOrder:      groupOrder,
		ContentExists:   contentExists,
		LargestGroupID:  largestGroup,
		LargestObjectID: largestObject,
	})
}

func (s *Session) SubscribeError(id uint64, code SubscribeErrorCode, reason string, trackAlias uint64) error {
	return s.send(&message.SubscribeError{
		SubscribeID:  id,
		ErrorCode:    uint64(code),
		ReasonPhrase: reason,
		TrackAlias:   trackAlias,
	})
}

func (s *Session) SubscribeDone(id uint64, status SubscribeDoneStatusCode, reason string, contentExists bool, finalGroup, finalObject uint64) error {
	return s.send(&message.SubscribeDone{
		SubscribeID:   id,
		StatusCode:    uint64(status),
		ReasonPhrase:  reason,
		ContentExists: contentExists,
		FinalGroup:    finalGroup,
		FinalObject:   finalObject,
	})
}
