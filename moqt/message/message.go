package message

import "fmt"

// MessageType is the varint tag that starts every message.
type MessageType uint64

const (
	ObjectStreamType      MessageType = 0x00
	ObjectDatagramType    MessageType = 0x01
	SubscribeUpdateType   MessageType = 0x02
	SubscribeType         MessageType = 0x03
	SubscribeOkType       MessageType = 0x04
	SubscribeErrorType    MessageType = 0x05
	AnnounceType          MessageType = 0x06
	AnnounceOkType        MessageType = 0x07
	AnnounceErrorType     MessageType = 0x08
	UnannounceType        MessageType = 0x09
	UnsubscribeType       MessageType = 0x0a
	SubscribeDoneType     MessageType = 0x0b
	GoAwayType            MessageType = 0x10
	ClientSetupType       MessageType = 0x40
	ServerSetupType       MessageType = 0x41
	StreamHeaderTrackType MessageType = 0x50
	StreamHeaderGroupType MessageType = 0x51
)

var messageTypeNames = map[MessageType]string{
	ObjectStreamType:      "OBJECT_STREAM",
	ObjectDatagramType:    "OBJECT_DATAGRAM",
	SubscribeUpdateType:   "SUBSCRIBE_UPDATE",
	SubscribeType:         "SUBSCRIBE",
	SubscribeOkType:       "SUBSCRIBE_OK",
	SubscribeErrorType:    "SUBSCRIBE_ERROR",
	AnnounceType:          "ANNOUNCE",
	AnnounceOkType:        "ANNOUNCE_OK",
	AnnounceErrorType:     "ANNOUNCE_ERROR",
	UnannounceType:        "UNANNOUNCE",
	UnsubscribeType:       "UNSUBSCRIBE",
	SubscribeDoneType:     "SUBSCRIBE_DONE",
	GoAwayType:            "GOAWAY",
	ClientSetupType:       "CLIENT_SETUP",
	ServerSetupType:       "SERVER_SETUP",
	StreamHeaderTrackType: "STREAM_HEADER_TRACK",
	StreamHeaderGroupType: "STREAM_HEADER_GROUP",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(0x%x)", uint64(t))
}

// Message is implemented only by the message types of this package.
// Consumers should switch on the concrete type.
type Message interface {
	Type() MessageType

	append(e *encoder)
	decode(d *decoder)
}

func newControlMessage(t MessageType) Message {
	switch t {
	case ClientSetupType:
		return &ClientSetup{}
	case ServerSetupType:
		return &ServerSetup{}
	case SubscribeType:
		return &Subscribe{}
	case SubscribeUpdateType:
		return &SubscribeUpdate{}
	case SubscribeOkType:
		return &SubscribeOk{}
	case SubscribeErrorType:
		return &SubscribeError{}
	case SubscribeDoneType:
		return &SubscribeDone{}
	case UnsubscribeType:
		return &Unsubscribe{}
	case AnnounceType:
		return &Announce{}
	case AnnounceOkType:
		return &AnnounceOk{}
	case AnnounceErrorType:
		return &AnnounceError{}
	case UnannounceType:
		return &Unannounce{}
	case GoAwayType:
		return &GoAway{}
	default:
		return nil
	}
}
