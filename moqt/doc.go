// Package moqt implements the client side of Media over QUIC Transport
// (draft-ietf-moq-transport-03 through -05).
//
// A Client dials a relay over WebTransport ("https" URLs) or raw QUIC
// ("moqt" URLs), exchanges CLIENT_SETUP and SERVER_SETUP on the control
// stream and returns an established Session. Wire encoding lives in the
// message subpackage; the draft version selected in Config decides which
// fields are present on the wire.
//
// # Basic Usage
//
//	client := &moqt.Client{
//	    TLSConfig: tlsConfig,
//	}
//	sess, err := client.Dial(ctx, "https://relay.example:4443/moq")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	sub, err := sess.Subscribe(ctx, "live", "video")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    obj, err := sub.ReadObject(ctx)
//	    if err != nil {
//	        break
//	    }
//	    handle(obj.GroupID, obj.ObjectID, obj.Payload)
//	}
//
// # Core Components
//
//   - Client: dials and tracks sessions
//   - Session: owns the control stream and routes incoming object streams
//   - Subscription: one SUBSCRIBE request and its buffered objects
//   - ObjectStreamWriter: writes objects after a track or group header
//
// Objects arriving on a stream whose subscribe ID is unknown abort only that
// stream. Malformed control messages close the whole session.
package moqt
