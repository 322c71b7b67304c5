package message

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_ObjectHeaderRoundTrip(t *testing.T) {
	tests := map[string]struct {
		version Version
		msg     Message
	}{
		"object stream draft 05": {
			version: Draft05,
			msg: &ObjectStream{
				SubscribeID:       1,
				TrackAlias:        1,
				GroupID:           2,
				ObjectID:          3,
				PublisherPriority: 200,
				Payload:           []byte("hello"),
			},
		},
		"object stream with status": {
			version: Draft05,
			msg: &ObjectStream{
				SubscribeID:  1,
				TrackAlias:   1,
				GroupID:      2,
				ObjectID:     3,
				ObjectStatus: ObjectStatusEndOfTrack,
			},
		},
		"object datagram draft 04": {
			version: Draft04,
			msg: &ObjectStream{
				Datagram:          true,
				SubscribeID:       7,
				TrackAlias:        8,
				GroupID:           9,
				ObjectID:          10,
				PublisherPriority: 1 << 20,
				Payload:           []byte{0x00, 0x01},
			},
		},
		"object stream draft 03": {
			version: Draft03,
			msg: &ObjectStream{
				SubscribeID:       1,
				TrackAlias:        2,
				PublisherPriority: 70000,
				Payload:           []byte("draft03"),
			},
		},
		"track header": {
			version: Draft05,
			msg:     &StreamHeaderTrack{SubscribeID: 5, TrackAlias: 5, PublisherPriority: 10},
		},
		"track header draft 03": {
			version: Draft03,
			msg:     &StreamHeaderTrack{SubscribeID: 5, TrackAlias: 5, PublisherPriority: 300},
		},
		"group header": {
			version: Draft05,
			msg:     &StreamHeaderGroup{SubscribeID: 1, TrackAlias: 1, GroupID: 16384, PublisherPriority: 0},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := mustCodec(t, tt.version)

			var buf bytes.Buffer
			require.NoError(t, c.EncodeMessage(&buf, tt.msg))

			got, err := c.DecodeObjectHeader(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestCodec_DecodeObjectHeader_Errors(t *testing.T) {
	c := mustCodec(t, Draft05, WithMaxFieldLength(4))

	t.Run("control message", func(t *testing.T) {
		_, err := c.DecodeObjectHeader(bytes.NewReader([]byte{0x04, 0x00}))
		var typeErr *UnknownMessageTypeError
		require.ErrorAs(t, err, &typeErr)
		assert.Equal(t, SubscribeOkType, typeErr.Type)
	})

	t.Run("empty stream", func(t *testing.T) {
		_, err := c.DecodeObjectHeader(bytes.NewReader(nil))
		assert.Equal(t, io.EOF, err)
	})

	t.Run("oversized trailing payload", func(t *testing.T) {
		input := []byte{0x00, 0x01, 0x01, 0x00, 0x00, 0x80, 0x00, 'a', 'b', 'c', 'd', 'e'}
		_, err := c.DecodeObjectHeader(bytes.NewReader(input))
		assert.ErrorIs(t, err, ErrOversizedField)
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := c.DecodeObjectHeader(bytes.NewReader([]byte{0x40, 0x51, 0x01, 0x01}))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestCodec_TrackObjects(t *testing.T) {
	c := mustCodec(t, Draft05)

	objects := []TrackObject{
		{GroupID: 0, ObjectID: 0, Payload: []byte("first")},
		{GroupID: 0, ObjectID: 1, Payload: []byte("second")},
		{GroupID: 1, ObjectID: 0, ObjectStatus: ObjectStatusEndOfTrack},
	}

	var buf bytes.Buffer
	for _, obj := range objects {
		require.NoError(t, c.EncodeTrackObject(&buf, obj))
	}

	for _, want := range objects {
		got, err := c.DecodeTrackObject(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := c.DecodeTrackObject(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestCodec_GroupObject_ZeroLengthStatus(t *testing.T) {
	c := mustCodec(t, Draft05)

	got, err := c.DecodeGroupObject(bytes.NewReader([]byte{0x04, 0x00, 0x01}))
	require.NoError(t, err)
	assert.Equal(t, GroupObject{ObjectID: 4, ObjectStatus: ObjectStatusDoesNotExist}, got)
	assert.Empty(t, got.Payload)
}

func TestCodec_GroupObject_Draft03HasNoStatus(t *testing.T) {
	c := mustCodec(t, Draft03)

	b, err := c.AppendGroupObject(nil, GroupObject{ObjectID: 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x00}, b)

	r := bytes.NewReader(append(b, 0x05, 0x01, 'x'))
	got, err := c.DecodeGroupObject(r)
	require.NoError(t, err)
	assert.Equal(t, GroupObject{ObjectID: 4}, got)

	got, err = c.DecodeGroupObject(r)
	require.NoError(t, err)
	assert.Equal(t, GroupObject{ObjectID: 5, Payload: []byte("x")}, got)
}

func TestCodec_DecodeObjectRecord_Errors(t *testing.T) {
	c := mustCodec(t, Draft05, WithMaxFieldLength(4))

	tests := map[string]struct {
		input []byte
		track bool
		err   error
	}{
		"partial track record": {
			input: []byte{0x01, 0x02, 0x04, 'a', 'b'},
			track: true,
			err:   io.ErrUnexpectedEOF,
		},
		"partial group record": {
			input: []byte{0x01},
			err:   io.ErrUnexpectedEOF,
		},
		"truncated first varint": {
			input: []byte{0x40},
			track: true,
			err:   io.ErrUnexpectedEOF,
		},
		"oversized payload": {
			input: []byte{0x01, 0x05, 'a', 'b', 'c', 'd', 'e'},
			err:   ErrOversizedField,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var err error
			if tt.track {
				_, err = c.DecodeTrackObject(bytes.NewReader(tt.input))
			} else {
				_, err = c.DecodeGroupObject(bytes.NewReader(tt.input))
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.NotEqual(t, io.EOF, err)
		})
	}
}

func TestCodec_AppendTrackObject_StatusWithPayload(t *testing.T) {
	c := mustCodec(t, Draft05)

	_, err := c.AppendTrackObject(nil, TrackObject{ObjectStatus: ObjectStatusEndOfGroup, Payload: []byte{1}})
	assert.ErrorIs(t, err, ErrStatusWithPayload)
}
