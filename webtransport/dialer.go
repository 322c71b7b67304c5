package webtransport

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/OkutaniDaichi0106/moqtransport/quic"
)

// DialAddrFunc is a function type for establishing a WebTransport connection.
// It returns the HTTP response, the underlying session as a quic.Connection, and any error.
type DialAddrFunc func(ctx context.Context, url string, header http.Header, tlsConfig *tls.Config) (*http.Response, quic.Connection, error)
