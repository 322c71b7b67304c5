package quicgo

import (
	"time"

	"github.com/OkutaniDaichi0106/moqtransport/quic"
	quicgo_quicgo "github.com/quic-go/quic-go"
)

var _ quic.Stream = (*rawQuicStream)(nil)

type rawQuicStream struct {
	stream quicgo_quicgo.Stream
}

func (wrapper rawQuicStream) StreamID() quic.StreamID {
	return wrapper.stream.StreamID()
}

func (wrapper rawQuicStream) Read(b []byte) (int, error) {
	return wrapper.stream.Read(b)
}

func (wrapper rawQuicStream) Write(b []byte) (int, error) {
	return wrapper.stream.Write(b)
}

func (wrapper rawQuicStream) CancelRead(code quic.StreamErrorCode) {
	wrapper.stream.CancelRead(code)
}

func (wrapper rawQuicStream) CancelWrite(code quic.StreamErrorCode) {
	wrapper.stream.CancelWrite(code)
}

func (wrapper rawQuicStream) SetDeadline(t time.Time) error {
	return wrapper.stream.SetDeadline(t)
}

func (wrapper rawQuicStream) SetReadDeadline(t time.Time) error {
	return wrapper.stream.SetReadDeadline(t)
}

func (wrapper rawQuicStream) SetWriteDeadline(t time.Time) error {
	return wrapper.stream.SetWriteDeadline(t)
}

func (wrapper rawQuicStream) Close() error {
	return wrapper.stream.Close()
}

/*
 *
 */
var _ quic.ReceiveStream = (*rawQuicReceiveStream)(nil)

type rawQuicReceiveStream struct {
	stream quicgo_quicgo.ReceiveStream
}

func (wrapper rawQuicReceiveStream) StreamID() quic.StreamID {
	return wrapper.stream.StreamID()
}

func (wrapper rawQuicReceiveStream) Read(b []byte) (int, error) {
	return wrapper.stream.Read(b)
}

func (wrapper rawQuicReceiveStream) CancelRead(code quic.StreamErrorCode) {
	wrapper.stream.CancelRead(code)
}

func (wrapper rawQuicReceiveStream) SetReadDeadline(t time.Time) error {
	return wrapper.stream.SetReadDeadline(t)
}

/*
 *
 */
var _ quic.SendStream = (*rawQuicSendStream)(nil)

type rawQuicSendStream struct {
	stream quicgo_quicgo.SendStream
}

func (wrapper rawQuicSendStream) StreamID() quic.StreamID {
	return wrapper.stream.StreamID()
}

func (wrapper rawQuicSendStream) Write(b []byte) (int, error) {
	return wrapper.stream.Write(b)
}

func (wrapper rawQuicSendStream) CancelWrite(code quic.StreamErrorCode) {
	wrapper.stream.CancelWrite(code)
}

func (wrapper rawQuicSendStream) SetWriteDeadline(t time.Time) error {
	return wrapper.stream.SetWriteDeadline(t)
}

func (wrapper rawQuicSendStream) Close() error {
	return wrapper.stream.Close()
}
