package message

import (
	"io"
	"unicode/utf8"
)

// DefaultMaxFieldLength is the default bound on any length-prefixed field
// and on the trailing payload of an ObjectStream message.
const DefaultMaxFieldLength = 1 << 20

// maxListLength bounds the element count of version and parameter lists.
const maxListLength = 1 << 10

// Codec encodes and decodes messages using the field layout of one draft version.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	version        Version
	layout         layout
	maxFieldLength uint64
}

type CodecOption func(*Codec)

// WithMaxFieldLength sets the maximum accepted length of a length-prefixed field.
func WithMaxFieldLength(n uint64) CodecOption {
	return func(c *Codec) {
		if n > 0 {
			c.maxFieldLength = n
		}
	}
}

// NewCodec returns a Codec for v.
func NewCodec(v Version, opts ...CodecOption) (*Codec, error) {
	l, ok := layouts[v]
	if !ok {
		return nil, ErrUnsupportedVersion
	}

	c := &Codec{
		version:        v,
		layout:         l,
		maxFieldLength: DefaultMaxFieldLength,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Codec) Version() Version {
	return c.version
}

func (c *Codec) MaxFieldLength() uint64 {
	return c.maxFieldLength
}

// AppendMessage appends the type tag and the fields of m to b.
func (c *Codec) AppendMessage(b []byte, m Message) ([]byte, error) {
	e := encoder{b: b, l: c.layout}
	e.varint("type", uint64(m.Type()))
	m.append(&e)
	if e.err != nil {
		return b, e.err
	}
	return e.b, nil
}

// EncodeMessage writes m to w with a single Write call.
func (c *Codec) EncodeMessage(w io.Writer, m Message) error {
	p := getBytes()
	defer putBytes(p)

	b, err := c.AppendMessage(*p, m)
	if err != nil {
		return err
	}
	*p = b

	_, err = w.Write(b)
	return err
}

// DecodeControlMessage reads one control message from r.
// It returns io.EOF if r ends before the type tag.
func (c *Codec) DecodeControlMessage(r io.Reader) (Message, error) {
	t, err := ReadVarint(r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &DecodingError{Field: "type", Err: err}
	}

	m := newControlMessage(MessageType(t))
	if m == nil {
		return nil, &UnknownMessageTypeError{Type: MessageType(t)}
	}

	if err := c.decode(r, m); err != nil {
		return nil, err
	}

	return m, nil
}

// DecodeObjectHeader reads the first message of a unidirectional stream.
// The result is an *ObjectStream, a *StreamHeaderTrack or a *StreamHeaderGroup.
func (c *Codec) DecodeObjectHeader(r io.Reader) (Message, error) {
	t, err := ReadVarint(r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &DecodingError{Field: "type", Err: err}
	}

	var m Message
	switch MessageType(t) {
	case ObjectStreamType:
		m = &ObjectStream{}
	case ObjectDatagramType:
		m = &ObjectStream{Datagram: true}
	case StreamHeaderTrackType:
		m = &StreamHeaderTrack{}
	case StreamHeaderGroupType:
		m = &StreamHeaderGroup{}
	default:
		return nil, &UnknownMessageTypeError{Type: MessageType(t)}
	}

	if err := c.decode(r, m); err != nil {
		return nil, err
	}

	return m, nil
}

func (c *Codec) decode(r io.Reader, m Message) error {
	d := decoder{r: r, l: c.layout, max: c.maxFieldLength}
	m.decode(&d)
	return d.err
}

/*
 * encoder appends fields to b and keeps the first error.
 */
type encoder struct {
	b   []byte
	l   layout
	err error
}

func (e *encoder) varint(field string, v uint64) {
	if e.err != nil {
		return
	}
	if v > MaxVarint8 {
		e.err = &EncodingError{Field: field, Value: v}
		return
	}
	e.b, _ = AppendVarint(e.b, v)
}

func (e *encoder) byte(field string, v uint64) {
	if e.err != nil {
		return
	}
	if v > 0xff {
		e.err = &EncodingError{Field: field, Value: v}
		return
	}
	e.b = append(e.b, byte(v))
}

func (e *encoder) bool(field string, v bool) {
	if v {
		e.varint(field, 1)
	} else {
		e.varint(field, 0)
	}
}

func (e *encoder) bytes(field string, v []byte) {
	e.varint(field, uint64(len(v)))
	if e.err != nil {
		return
	}
	e.b = append(e.b, v...)
}

func (e *encoder) string(field string, v string) {
	e.varint(field, uint64(len(v)))
	if e.err != nil {
		return
	}
	e.b = append(e.b, v...)
}

func (e *encoder) raw(v []byte) {
	if e.err != nil {
		return
	}
	e.b = append(e.b, v...)
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

/*
 * decoder reads fields from r and keeps the first error.
 * Every field after the type tag is mid-message, so a clean end of r is
 * reported as io.ErrUnexpectedEOF.
 */
type decoder struct {
	r   io.Reader
	l   layout
	max uint64
	err error
}

func (d *decoder) fail(field string, err error) {
	if d.err != nil {
		return
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	d.err = &DecodingError{Field: field, Err: err}
}

func (d *decoder) varint(field string) uint64 {
	if d.err != nil {
		return 0
	}
	v, err := ReadVarint(d.r)
	if err != nil {
		d.fail(field, err)
		return 0
	}
	return v
}

func (d *decoder) byte(field string) uint64 {
	if d.err != nil {
		return 0
	}
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		d.fail(field, err)
		return 0
	}
	return uint64(b[0])
}

func (d *decoder) bool(field string) bool {
	v := d.varint(field)
	if d.err != nil {
		return false
	}
	switch v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail(field, ErrInvalidBoolean)
		return false
	}
}

// read reads exactly n bytes after checking n against the field bound.
func (d *decoder) read(field string, n uint64) []byte {
	if d.err != nil {
		return nil
	}
	if n > d.max {
		d.fail(field, ErrOversizedField)
		return nil
	}
	if n == 0 {
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.fail(field, err)
		return nil
	}
	return b
}

func (d *decoder) bytes(field string) []byte {
	n := d.varint(field)
	return d.read(field, n)
}

func (d *decoder) string(field string) string {
	b := d.bytes(field)
	if d.err != nil {
		return ""
	}
	if !utf8.Valid(b) {
		d.fail(field, ErrInvalidUTF8)
		return ""
	}
	return string(b)
}

func (d *decoder) count(field string) uint64 {
	n := d.varint(field)
	if d.err != nil {
		return 0
	}
	if n > maxListLength {
		d.fail(field, ErrOversizedField)
		return 0
	}
	return n
}

// rest reads everything up to the end of the stream.
func (d *decoder) rest(field string) []byte {
	if d.err != nil {
		return nil
	}
	b, err := io.ReadAll(io.LimitReader(d.r, int64(d.max)+1))
	if err != nil {
		d.fail(field, err)
		return nil
	}
	if uint64(len(b)) > d.max {
		d.fail(field, ErrOversizedField)
		return nil
	}
	if len(b) == 0 {
		return nil
	}
	return b
}
