package moqt

import (
	"fmt"
	"io"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
)

// Forwarding is the wire layout an object arrived in.
type Forwarding int

const (
	ForwardingObject Forwarding = iota
	ForwardingDatagram
	ForwardingTrack
	ForwardingGroup
)

func (f Forwarding) String() string {
	switch f {
	case ForwardingObject:
		return "object"
	case ForwardingDatagram:
		return "datagram"
	case ForwardingTrack:
		return "track"
	case ForwardingGroup:
		return "group"
	default:
		return fmt.Sprintf("Forwarding(%d)", int(f))
	}
}

// ObjectMessage is one object, independent of the layout that carried it.
type ObjectMessage struct {
	SubscribeID       uint64
	TrackAlias        uint64
	GroupID           uint64
	ObjectID          uint64
	PublisherPriority uint64
	ObjectStatus      message.ObjectStatus
	Payload           []byte

	// Forwarding is informational and not used for routing.
	Forwarding Forwarding
}

type demuxState int

const (
	demuxInit demuxState = iota
	demuxTrackStream
	demuxGroupStream
	demuxDone
)

// objectStreamReader decodes the objects of one unidirectional stream.
// The first message selects the layout: a single ObjectStream record, or a
// track or group header followed by compact records until the stream ends.
type objectStreamReader struct {
	r     io.Reader
	codec *message.Codec
	state demuxState

	track message.StreamHeaderTrack
	group message.StreamHeaderGroup
}

func newObjectStreamReader(r io.Reader, codec *message.Codec) *objectStreamReader {
	return &objectStreamReader{
		r:     r,
		codec: codec,
	}
}

// ReadObject returns the next object of the stream.
// It returns io.EOF when the stream ended between objects.
func (or *objectStreamReader) ReadObject() (ObjectMessage, error) {
	switch or.state {
	case demuxInit:
		return or.readHeader()
	case demuxTrackStream:
		obj, err := or.codec.DecodeTrackObject(or.r)
		if err != nil {
			or.state = demuxDone
			return ObjectMessage{}, err
		}
		return ObjectMessage{
			SubscribeID:       or.track.SubscribeID,
			TrackAlias:        or.track.TrackAlias,
			GroupID:           obj.GroupID,
			ObjectID:          obj.ObjectID,
			PublisherPriority: or.track.PublisherPriority,
			ObjectStatus:      obj.ObjectStatus,
			Payload:           obj.Payload,
			Forwarding:        ForwardingTrack,
		}, nil
	case demuxGroupStream:
		obj, err := or.codec.DecodeGroupObject(or.r)
		if err != nil {
			or.state = demuxDone
			return ObjectMessage{}, err
		}
		return ObjectMessage{
			SubscribeID:       or.group.SubscribeID,
			TrackAlias:        or.group.TrackAlias,
			GroupID:           or.group.GroupID,
			ObjectID:          obj.ObjectID,
			PublisherPriority: or.group.PublisherPriority,
			ObjectStatus:      obj.ObjectStatus,
			Payload:           obj.Payload,
			Forwarding:        ForwardingGroup,
		}, nil
	default:
		return ObjectMessage{}, io.EOF
	}
}

func (or *objectStreamReader) readHeader() (ObjectMessage, error) {
	msg, err := or.codec.DecodeObjectHeader(or.r)
	if err != nil {
		or.state = demuxDone
		return ObjectMessage{}, err
	}

	switch m := msg.(type) {
	case *message.ObjectStream:
		or.state = demuxDone
		forwarding := ForwardingObject
		if m.Datagram {
			forwarding = ForwardingDatagram
		}
		return ObjectMessage{
			SubscribeID:       m.SubscribeID,
			TrackAlias:        m.TrackAlias,
			GroupID:           m.GroupID,
			ObjectID:          m.ObjectID,
			PublisherPriority: m.PublisherPriority,
			ObjectStatus:      m.ObjectStatus,
			Payload:           m.Payload,
			Forwarding:        forwarding,
		}, nil
	case *message.StreamHeaderTrack:
		or.track = *m
		or.state = demuxTrackStream
		return or.ReadObject()
	case *message.StreamHeaderGroup:
		or.group = *m
		or.state = demuxGroupStream
		return or.ReadObject()
	default:
		or.state = demuxDone
		return ObjectMessage{}, &message.UnknownMessageTypeError{Type: msg.Type()}
	}
}
