// Package webtransport provides the WebTransport dialing abstraction used by the moqt package.
//
// A WebTransport session exposes the same stream model as a raw QUIC
// connection, so the moqt package consumes it through the quic.Connection
// interface. The webtransportgo subpackage implements it on top of
// github.com/quic-go/webtransport-go.
//
// # Basic Usage
//
//	rsp, conn, err := webtransportgo.Dial(ctx, "https://relay.example.com:4433/moq", http.Header{}, tlsConfig)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.CloseWithError(0, "done")
//
// For more information about WebTransport, see:
// https://www.w3.org/TR/webtransport/
package webtransport
