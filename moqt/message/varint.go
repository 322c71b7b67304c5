package message

import (
	"bytes"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

const (
	MaxVarint1 uint64 = 63
	MaxVarint2 uint64 = 16383
	MaxVarint4 uint64 = 1073741823
	MaxVarint8 uint64 = quicvarint.Max
)

// AppendVarint appends v to b in the shortest of the four width classes.
func AppendVarint(b []byte, v uint64) ([]byte, error) {
	if v > MaxVarint8 {
		return b, &EncodingError{Field: "varint", Value: v}
	}
	return quicvarint.Append(b, v), nil
}

// VarintLen returns the encoded width of v, or 0 if v cannot be encoded.
func VarintLen(v uint64) int {
	if v > MaxVarint8 {
		return 0
	}
	return quicvarint.Len(v)
}

// ReadVarint reads one varint from r.
// The width is taken from the first byte and the rest of the integer is read
// as a single unit. It returns io.EOF if r ends before the first byte and
// io.ErrUnexpectedEOF if r ends inside the integer.
func ReadVarint(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}

	l := 1 << (buf[0] >> 6)
	if l > 1 {
		if _, err := io.ReadFull(r, buf[1:l]); err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
	}

	return quicvarint.Read(bytes.NewReader(buf[:l]))
}
