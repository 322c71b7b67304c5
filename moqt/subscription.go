package moqt

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
)

// SubscriptionState is the lifecycle state of a Subscription.
type SubscriptionState int32

const (
	SubscriptionPending SubscriptionState = iota
	SubscriptionActive
	SubscriptionClosed
	SubscriptionErrored
)

func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionPending:
		return "pending"
	case SubscriptionActive:
		return "active"
	case SubscriptionClosed:
		return "closed"
	case SubscriptionErrored:
		return "errored"
	default:
		return fmt.Sprintf("SubscriptionState(%d)", int32(s))
	}
}

// Subscription is one SUBSCRIBE request and the objects delivered for it.
//
// It is resolved at most once: by SUBSCRIBE_OK, by SUBSCRIBE_ERROR, or by
// being closed while pending. Objects are buffered in arrival order; when the
// buffer is full the stream delivering them waits.
type Subscription struct {
	session *Session

	id        uint64
	alias     uint64
	namespace string
	trackName string

	state atomic.Int32

	resolveOnce sync.Once
	resolved    chan struct{}
	ok          *message.SubscribeOk
	err         error

	objects chan ObjectMessage

	closeOnce sync.Once
	done      chan struct{}
	closeErr  error
}

func newSubscription(sess *Session, id, alias uint64, namespace, trackName string, buffer int) *Subscription {
	return &Subscription{
		session:   sess,
		id:        id,
		alias:     alias,
		namespace: namespace,
		trackName: trackName,
		resolved:  make(chan struct{}),
		objects:   make(chan ObjectMessage, buffer),
		done:      make(chan struct{}),
	}
}

func (s *Subscription) ID() uint64 {
	return s.id
}

func (s *Subscription) TrackAlias() uint64 {
	return s.alias
}

func (s *Subscription) Namespace() string {
	return s.namespace
}

func (s *Subscription) TrackName() string {
	return s.trackName
}

func (s *Subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// SubscribeOk returns the accepted SUBSCRIBE_OK, or nil before the subscription is active.
func (s *Subscription) SubscribeOk() *message.SubscribeOk {
	select {
	case <-s.resolved:
		return s.ok
	default:
		return nil
	}
}

// Wait blocks until the subscription is resolved or ctx is done.
// It returns nil once SUBSCRIBE_OK has been received.
func (s *Subscription) Wait(ctx context.Context) error {
	select {
	case <-s.resolved:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when no more objects will be delivered.
// Objects buffered before that are still returned by ReadObject.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// ReadObject returns the next object.
// After the subscription ends and the buffer is drained it returns io.EOF,
// or the error that closed the subscription.
func (s *Subscription) ReadObject(ctx context.Context) (ObjectMessage, error) {
	select {
	case obj := <-s.objects:
		return obj, nil
	default:
	}

	select {
	case obj := <-s.objects:
		return obj, nil
	case <-s.done:
		select {
		case obj := <-s.objects:
			return obj, nil
		default:
			return ObjectMessage{}, s.closeErr
		}
	case <-ctx.Done():
		return ObjectMessage{}, ctx.Err()
	}
}

// Read returns the payload of the next object.
func (s *Subscription) Read(ctx context.Context) ([]byte, error) {
	obj, err := s.ReadObject(ctx)
	if err != nil {
		return nil, err
	}
	return obj.Payload, nil
}

// Unsubscribe sends UNSUBSCRIBE and ends the subscription.
func (s *Subscription) Unsubscribe() error {
	return s.session.Unsubscribe(s.id)
}

// resolve marks the subscription active. It reports false if it was already resolved.
func (s *Subscription) resolve(ok *message.SubscribeOk) bool {
	resolved := false
	s.resolveOnce.Do(func() {
		s.ok = ok
		s.state.Store(int32(SubscriptionActive))
		close(s.resolved)
		resolved = true
	})
	return resolved
}

// reject fails a pending subscription. It reports false if it was already resolved.
func (s *Subscription) reject(err error) bool {
	rejected := s.fail(err)
	if rejected {
		s.finish(err)
	}
	return rejected
}

func (s *Subscription) fail(err error) bool {
	failed := false
	s.resolveOnce.Do(func() {
		s.err = err
		s.state.Store(int32(SubscriptionErrored))
		close(s.resolved)
		failed = true
	})
	return failed
}

// close ends the subscription. Readers see err after the buffer is drained;
// pass io.EOF for a normal end. A pending Wait sees ErrSubscriptionClosed
// instead of io.EOF.
func (s *Subscription) close(err error) {
	waitErr := err
	if err == io.EOF {
		waitErr = ErrSubscriptionClosed
	}
	s.fail(waitErr)
	s.finish(err)
}

func (s *Subscription) finish(err error) {
	s.closeOnce.Do(func() {
		s.closeErr = err
		s.state.CompareAndSwap(int32(SubscriptionActive), int32(SubscriptionClosed))
		close(s.done)
	})
}

// deliver queues obj for the reader, waiting while the buffer is full.
func (s *Subscription) deliver(ctx context.Context, obj ObjectMessage) error {
	select {
	case <-s.done:
		return s.closeErr
	default:
	}

	select {
	case s.objects <- obj:
		return nil
	case <-s.done:
		return s.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}
