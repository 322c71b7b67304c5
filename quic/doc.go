// Package quic provides the QUIC transport abstraction used by the moqt package.
//
// The interfaces mirror the subset of github.com/quic-go/quic-go that a MOQT
// client needs: one reliable ordered bidirectional stream for control and a
// source of reliable ordered unidirectional streams for objects. Connection
// establishment, certificate validation and congestion control are left to
// the implementation.
//
// # Implementations
//
//   - quicgo subpackage: raw QUIC over github.com/quic-go/quic-go
//   - webtransport/webtransportgo: WebTransport over github.com/quic-go/webtransport-go
//
// # Basic Usage
//
//	conn, err := quicgo.DialAddr(ctx, "localhost:4433", tlsConfig, quicConfig)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.CloseWithError(0, "done")
//
//	stream, err := conn.OpenStreamSync(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For more information about QUIC, see RFC 9000:
// https://datatracker.ietf.org/doc/html/rfc9000
package quic
