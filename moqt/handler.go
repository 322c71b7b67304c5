package moqt

import "github.com/OkutaniDaichi0106/moqtransport/moqt/message"

// Handler receives the control messages a Session does not consume itself:
// ANNOUNCE_OK, ANNOUNCE_ERROR, GOAWAY, SUBSCRIBE, SUBSCRIBE_UPDATE,
// UNSUBSCRIBE, ANNOUNCE and UNANNOUNCE.
//
// HandleMessage runs on the control stream reader, so later control messages
// wait until it returns. A non-nil error closes the session.
type Handler interface {
	HandleMessage(sess *Session, msg message.Message) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as Handler.
type HandlerFunc func(sess *Session, msg message.Message) error

func (f HandlerFunc) HandleMessage(sess *Session, msg message.Message) error {
	return f(sess, msg)
}
