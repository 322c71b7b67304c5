package moqt

import (
	"context"
	"fmt"
	"sync"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/OkutaniDaichi0106/moqtransport/quic"
)

// WriteObject sends obj as a single OBJECT_STREAM message on a new
// unidirectional stream. The session must have announced first.
func (s *Session) WriteObject(ctx context.Context, obj ObjectMessage) error {
	if !s.announced.Load() {
		return ErrNotPublisher
	}

	stream, err := s.openUniStream(ctx)
	if err != nil {
		return err
	}

	err = s.codec.EncodeMessage(stream, &message.ObjectStream{
		SubscribeID:       obj.SubscribeID,
		TrackAlias:        obj.TrackAlias,
		GroupID:           obj.GroupID,
		ObjectID:          obj.ObjectID,
		PublisherPriority: obj.PublisherPriority,
		ObjectStatus:      obj.ObjectStatus,
		Payload:           obj.Payload,
	})
	if err != nil {
		s.logger.Error("failed to write object",
			"stream_id", stream.StreamID(),
			"subscribe_id", obj.SubscribeID,
			"error", err,
		)
		stream.CancelWrite(quic.StreamErrorCode(InternalStreamErrorCode))
		return err
	}

	s.metrics.objectSent(ForwardingObject)

	return stream.Close()
}

// OpenTrackStream opens a unidirectional stream carrying objects of any group
// of one track. The session must have announced first.
func (s *Session) OpenTrackStream(ctx context.Context, subscribeID, trackAlias, priority uint64) (*ObjectStreamWriter, error) {
	return s.openObjectStream(ctx, &message.StreamHeaderTrack{
		SubscribeID:       subscribeID,
		TrackAlias:        trackAlias,
		PublisherPriority: priority,
	})
}

// OpenGroupStream opens a unidirectional stream carrying the objects of one group.
// The session must have announced first.
func (s *Session) OpenGroupStream(ctx context.Context, subscribeID, trackAlias, groupID, priority uint64) (*ObjectStreamWriter, error) {
	return s.openObjectStream(ctx, &message.StreamHeaderGroup{
		SubscribeID:       subscribeID,
		TrackAlias:        trackAlias,
		GroupID:           groupID,
		PublisherPriority: priority,
	})
}

func (s *Session) openObjectStream(ctx context.Context, header message.Message) (*ObjectStreamWriter, error) {
	if !s.announced.Load() {
		return nil, ErrNotPublisher
	}

	stream, err := s.openUniStream(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.codec.EncodeMessage(stream, header); err != nil {
		stream.CancelWrite(quic.StreamErrorCode(InternalStreamErrorCode))
		return nil, err
	}

	w := &ObjectStreamWriter{
		stream:  stream,
		codec:   s.codec,
		metrics: s.metrics,
	}
	switch h := header.(type) {
	case *message.StreamHeaderTrack:
		w.forwarding = ForwardingTrack
	case *message.StreamHeaderGroup:
		w.forwarding = ForwardingGroup
		w.groupID = h.GroupID
	default:
		stream.CancelWrite(quic.StreamErrorCode(InternalStreamErrorCode))
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessage, header.Type())
	}

	s.logger.Debug("opened object stream",
		"stream_id", stream.StreamID(),
		"forwarding", w.forwarding.String(),
	)

	return w, nil
}

func (s *Session) openUniStream(ctx context.Context) (quic.SendStream, error) {
	if s.terminating() {
		return nil, ErrClosedSession
	}

	stream, err := s.conn.OpenUniStreamSync(ctx)
	if err != nil {
		s.logger.Error("failed to open unidirectional stream", "error", err)
		if s.terminating() {
			return nil, ErrClosedSession
		}
		return nil, err
	}

	return stream, nil
}

// ObjectStreamWriter writes objects after a track or group header.
// It is safe for concurrent use; each record is written as one unit.
type ObjectStreamWriter struct {
	stream     quic.SendStream
	codec      *message.Codec
	metrics    *Metrics
	forwarding Forwarding
	groupID    uint64

	mu sync.Mutex
}

// WriteObject writes an object with a payload.
// On a group stream groupID must be the group of the stream.
func (w *ObjectStreamWriter) WriteObject(groupID, objectID uint64, payload []byte) error {
	return w.write(groupID, objectID, message.ObjectStatusNormal, payload)
}

// WriteStatus writes a zero-length object carrying status.
func (w *ObjectStreamWriter) WriteStatus(groupID, objectID uint64, status message.ObjectStatus) error {
	return w.write(groupID, objectID, status, nil)
}

func (w *ObjectStreamWriter) write(groupID, objectID uint64, status message.ObjectStatus, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	switch w.forwarding {
	case ForwardingTrack:
		err = w.codec.EncodeTrackObject(w.stream, message.TrackObject{
			GroupID:      groupID,
			ObjectID:     objectID,
			ObjectStatus: status,
			Payload:      payload,
		})
	case ForwardingGroup:
		if groupID != w.groupID {
			return fmt.Errorf("%w: got group %d on stream for group %d", ErrGroupMismatch, groupID, w.groupID)
		}
		err = w.codec.EncodeGroupObject(w.stream, message.GroupObject{
			ObjectID:     objectID,
			ObjectStatus: status,
			Payload:      payload,
		})
	}
	if err != nil {
		return err
	}

	w.metrics.objectSent(w.forwarding)
	return nil
}

func (w *ObjectStreamWriter) StreamID() quic.StreamID {
	return w.stream.StreamID()
}

// Close ends the stream. The peer sees a clean end of the object sequence.
func (w *ObjectStreamWriter) Close() error {
	return w.stream.Close()
}

// CancelWrite abandons the stream.
func (w *ObjectStreamWriter) CancelWrite(code StreamErrorCode) {
	w.stream.CancelWrite(quic.StreamErrorCode(code))
}
