package webtransportgo

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/OkutaniDaichi0106/moqtransport/quic"
	"github.com/OkutaniDaichi0106/moqtransport/webtransport"
	quicgo_webtransportgo "github.com/quic-go/webtransport-go"
)

var _ webtransport.DialAddrFunc = Dial

// Dial establishes a WebTransport session to url and returns it as a quic.Connection.
func Dial(ctx context.Context, url string, header http.Header, tlsConfig *tls.Config) (*http.Response, quic.Connection, error) {
	d := quicgo_webtransportgo.Dialer{
		TLSClientConfig: tlsConfig,
	}
	rsp, wtsess, err := d.Dial(ctx, url, header)
	if err != nil {
		return rsp, nil, err
	}

	return rsp, wrapSession(wtsess), nil
}
