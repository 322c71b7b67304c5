package quicgo

import (
	"context"
	"crypto/tls"

	"github.com/OkutaniDaichi0106/moqtransport/quic"
	quicgo_quicgo "github.com/quic-go/quic-go"
)

var _ quic.DialAddrFunc = DialAddr

// DialAddr establishes a raw QUIC connection to addr.
func DialAddr(ctx context.Context, addr string, tlsConfig *tls.Config, quicConfig *quic.Config) (quic.Connection, error) {
	conn, err := quicgo_quicgo.DialAddr(ctx, addr, tlsConfig, quicConfig)
	if err != nil {
		return nil, err
	}

	return wrapConnection(conn), nil
}
