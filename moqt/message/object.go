package message

import (
	"fmt"
	"io"
)

// ObjectStatus is carried opaquely; the named values are the ones defined by the drafts.
type ObjectStatus uint64

const (
	ObjectStatusNormal       ObjectStatus = 0x0
	ObjectStatusDoesNotExist ObjectStatus = 0x1
	ObjectStatusEndOfGroup   ObjectStatus = 0x3
	ObjectStatusEndOfTrack   ObjectStatus = 0x4
)

func (s ObjectStatus) String() string {
	switch s {
	case ObjectStatusNormal:
		return "Normal"
	case ObjectStatusDoesNotExist:
		return "DoesNotExist"
	case ObjectStatusEndOfGroup:
		return "EndOfGroup"
	case ObjectStatusEndOfTrack:
		return "EndOfTrack"
	default:
		return fmt.Sprintf("ObjectStatus(0x%x)", uint64(s))
	}
}

func (e *encoder) priority(v uint64) {
	if e.l.publisherPriority {
		e.byte("publisher_priority", v)
	} else {
		e.varint("object_send_order", v)
	}
}

func (d *decoder) priority() uint64 {
	if d.l.publisherPriority {
		return d.byte("publisher_priority")
	}
	return d.varint("object_send_order")
}

func (e *encoder) checkStatus(status ObjectStatus, payload []byte) {
	if status != ObjectStatusNormal && len(payload) > 0 {
		e.fail(ErrStatusWithPayload)
		return
	}
	if status != ObjectStatusNormal && !e.l.objectStatus {
		e.fail(&EncodingError{Field: "object_status", Value: uint64(status)})
	}
}

/*
 * OBJECT_STREAM / OBJECT_DATAGRAM Message {
 *   Subscribe ID (varint),
 *   Track Alias (varint),
 *   Group ID (varint),
 *   Object ID (varint),
 *   Publisher Priority (8),         Draft05
 *   Object Send Order (varint),     Draft03, Draft04
 *   Object Status (varint),         Draft04+
 *   Object Payload (..),
 * }
 *
 * The payload runs to the end of the stream or datagram.
 */
type ObjectStream struct {
	Datagram bool

	SubscribeID uint64
	TrackAlias  uint64
	GroupID     uint64
	ObjectID    uint64
	// PublisherPriority holds the object send order on drafts before Draft05.
	PublisherPriority uint64
	ObjectStatus      ObjectStatus
	Payload           []byte
}

func (m *ObjectStream) Type() MessageType {
	if m.Datagram {
		return ObjectDatagramType
	}
	return ObjectStreamType
}

func (m *ObjectStream) append(e *encoder) {
	e.checkStatus(m.ObjectStatus, m.Payload)
	e.varint("subscribe_id", m.SubscribeID)
	e.varint("track_alias", m.TrackAlias)
	e.varint("group_id", m.GroupID)
	e.varint("object_id", m.ObjectID)
	e.priority(m.PublisherPriority)
	if e.l.objectStatus {
		e.varint("object_status", uint64(m.ObjectStatus))
	}
	e.raw(m.Payload)
}

func (m *ObjectStream) decode(d *decoder) {
	m.SubscribeID = d.varint("subscribe_id")
	m.TrackAlias = d.varint("track_alias")
	m.GroupID = d.varint("group_id")
	m.ObjectID = d.varint("object_id")
	m.PublisherPriority = d.priority()
	if d.l.objectStatus {
		m.ObjectStatus = ObjectStatus(d.varint("object_status"))
	}
	m.Payload = d.rest("object_payload")
}

/*
 * STREAM_HEADER_TRACK Message {
 *   Subscribe ID (varint),
 *   Track Alias (varint),
 *   Publisher Priority (8),         Draft05
 *   Object Send Order (varint),     Draft03, Draft04
 * }
 */
type StreamHeaderTrack struct {
	SubscribeID       uint64
	TrackAlias        uint64
	PublisherPriority uint64
}

func (*StreamHeaderTrack) Type() MessageType {
	return StreamHeaderTrackType
}

func (m *StreamHeaderTrack) append(e *encoder) {
	e.varint("subscribe_id", m.SubscribeID)
	e.varint("track_alias", m.TrackAlias)
	e.priority(m.PublisherPriority)
}

func (m *StreamHeaderTrack) decode(d *decoder) {
	m.SubscribeID = d.varint("subscribe_id")
	m.TrackAlias = d.varint("track_alias")
	m.PublisherPriority = d.priority()
}

/*
 * STREAM_HEADER_GROUP Message {
 *   Subscribe ID (varint),
 *   Track Alias (varint),
 *   Group ID (varint),
 *   Publisher Priority (8),         Draft05
 *   Object Send Order (varint),     Draft03, Draft04
 * }
 */
type StreamHeaderGroup struct {
	SubscribeID       uint64
	TrackAlias        uint64
	GroupID           uint64
	PublisherPriority uint64
}

func (*StreamHeaderGroup) Type() MessageType {
	return StreamHeaderGroupType
}

func (m *StreamHeaderGroup) append(e *encoder) {
	e.varint("subscribe_id", m.SubscribeID)
	e.varint("track_alias", m.TrackAlias)
	e.varint("group_id", m.GroupID)
	e.priority(m.PublisherPriority)
}

func (m *StreamHeaderGroup) decode(d *decoder) {
	m.SubscribeID = d.varint("subscribe_id")
	m.TrackAlias = d.varint("track_alias")
	m.GroupID = d.varint("group_id")
	m.PublisherPriority = d.priority()
}

/*
 * Track Object {
 *   Group ID (varint),
 *   Object ID (varint),
 *   Object Payload Length (varint),
 *   [Object Status (varint)],       Draft04+, when the length is zero
 *   Object Payload (..),
 * }
 */
type TrackObject struct {
	GroupID      uint64
	ObjectID     uint64
	ObjectStatus ObjectStatus
	Payload      []byte
}

/*
 * Group Object {
 *   Object ID (varint),
 *   Object Payload Length (varint),
 *   [Object Status (varint)],       Draft04+, when the length is zero
 *   Object Payload (..),
 * }
 */
type GroupObject struct {
	ObjectID     uint64
	ObjectStatus ObjectStatus
	Payload      []byte
}

func (e *encoder) objectBody(status ObjectStatus, payload []byte) {
	e.checkStatus(status, payload)
	e.varint("object_payload_length", uint64(len(payload)))
	if len(payload) == 0 {
		if e.l.objectStatus {
			e.varint("object_status", uint64(status))
		}
		return
	}
	e.raw(payload)
}

func (d *decoder) objectBody() (ObjectStatus, []byte) {
	n := d.varint("object_payload_length")
	if d.err != nil {
		return 0, nil
	}
	if n == 0 {
		if d.l.objectStatus {
			return ObjectStatus(d.varint("object_status")), nil
		}
		return ObjectStatusNormal, nil
	}
	return ObjectStatusNormal, d.read("object_payload", n)
}

func (c *Codec) AppendTrackObject(b []byte, obj TrackObject) ([]byte, error) {
	e := encoder{b: b, l: c.layout}
	e.varint("group_id", obj.GroupID)
	e.varint("object_id", obj.ObjectID)
	e.objectBody(obj.ObjectStatus, obj.Payload)
	if e.err != nil {
		return b, e.err
	}
	return e.b, nil
}

func (c *Codec) AppendGroupObject(b []byte, obj GroupObject) ([]byte, error) {
	e := encoder{b: b, l: c.layout}
	e.varint("object_id", obj.ObjectID)
	e.objectBody(obj.ObjectStatus, obj.Payload)
	if e.err != nil {
		return b, e.err
	}
	return e.b, nil
}

// EncodeTrackObject writes one track object record to w with a single Write call.
func (c *Codec) EncodeTrackObject(w io.Writer, obj TrackObject) error {
	p := getBytes()
	defer putBytes(p)

	b, err := c.AppendTrackObject(*p, obj)
	if err != nil {
		return err
	}
	*p = b

	_, err = w.Write(b)
	return err
}

// EncodeGroupObject writes one group object record to w with a single Write call.
func (c *Codec) EncodeGroupObject(w io.Writer, obj GroupObject) error {
	p := getBytes()
	defer putBytes(p)

	b, err := c.AppendGroupObject(*p, obj)
	if err != nil {
		return err
	}
	*p = b

	_, err = w.Write(b)
	return err
}

// DecodeTrackObject reads the next record of a track stream.
// It returns io.EOF if r ends cleanly before the record.
func (c *Codec) DecodeTrackObject(r io.Reader) (TrackObject, error) {
	groupID, err := ReadVarint(r)
	if err != nil {
		if err == io.EOF {
			return TrackObject{}, io.EOF
		}
		return TrackObject{}, &DecodingError{Field: "group_id", Err: err}
	}

	d := decoder{r: r, l: c.layout, max: c.maxFieldLength}
	obj := TrackObject{GroupID: groupID}
	obj.ObjectID = d.varint("object_id")
	obj.ObjectStatus, obj.Payload = d.objectBody()
	if d.err != nil {
		return TrackObject{}, d.err
	}

	return obj, nil
}

// DecodeGroupObject reads the next record of a group stream.
// It returns io.EOF if r ends cleanly before the record.
func (c *Codec) DecodeGroupObject(r io.Reader) (GroupObject, error) {
	objectID, err := ReadVarint(r)
	if err != nil {
		if err == io.EOF {
			return GroupObject{}, io.EOF
		}
		return GroupObject{}, &DecodingError{Field: "object_id", Err: err}
	}

	d := decoder{r: r, l: c.layout, max: c.maxFieldLength}
	obj := GroupObject{ObjectID: objectID}
	obj.ObjectStatus, obj.Payload = d.objectBody()
	if d.err != nil {
		return GroupObject{}, d.err
	}

	return obj, nil
}
