package moqt

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/OkutaniDaichi0106/moqtransport/quic"
	"github.com/OkutaniDaichi0106/moqtransport/quic/quicgo"
	"github.com/OkutaniDaichi0106/moqtransport/webtransport"
	"github.com/OkutaniDaichi0106/moqtransport/webtransport/webtransportgo"
	"go.opentelemetry.io/otel/attribute"
)

// NextProtoMOQ is the ALPN protocol used for MOQ over raw QUIC.
const NextProtoMOQ = "moq-00"

// ErrClientClosed is returned when dialing from a closed Client.
var ErrClientClosed = errors.New("moqt: client closed")

// Client establishes MOQ sessions.
// It supports WebTransport ("https" URLs) and raw QUIC ("moqt" URLs).
//
// Sessions dialed by a Client are tracked until they end. Close terminates
// every active session.
type Client struct {
	/*
	 * TLS configuration
	 */
	TLSConfig *tls.Config

	/*
	 * QUIC configuration
	 */
	QUICConfig *quic.Config

	/*
	 * MOQ Configuration
	 */
	Config *Config

	// ServerCertificateHash pins the server certificate to the base64
	// encoded SHA-256 digest of its DER encoding. When set, the certificate
	// chain is not verified against the system roots.
	ServerCertificateHash string

	/*
	 * Dial QUIC function
	 */
	DialQUICFunc quic.DialAddrFunc

	/*
	 * Dial WebTransport function
	 */
	DialWebTransportFunc webtransport.DialAddrFunc

	/*
	 * Logger
	 */
	Logger *slog.Logger

	initOnce sync.Once

	sessMu     sync.Mutex
	activeSess map[*Session]struct{}

	inShutdown atomic.Bool
}

// Dial connects to urlStr with a zero Client.
func Dial(ctx context.Context, urlStr string) (*Session, error) {
	var c Client
	return c.Dial(ctx, urlStr)
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		c.activeSess = make(map[*Session]struct{})
	})
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Dial establishes a session with the server at urlStr.
// The transport is chosen by the URL scheme. Connecting and the setup
// exchange together are bounded by Config.SetupTimeout.
func (c *Client) Dial(ctx context.Context, urlStr string) (*Session, error) {
	logger := c.logger()

	if c.shuttingDown() {
		logger.Warn("dial rejected: client shutting down")
		return nil, ErrClientClosed
	}
	c.init()

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		logger.Error("URL parsing failed", "error", err)
		return nil, err
	}

	switch parsedURL.Scheme {
	case "https":
		return c.DialWebTransport(ctx, parsedURL.String())
	case "moqt":
		return c.DialQUIC(ctx, parsedURL.Host, parsedURL.Path)
	default:
		logger.Error("unsupported URL scheme", "scheme", parsedURL.Scheme)
		return nil, ErrInvalidScheme
	}
}

// DialWebTransport establishes a session over a WebTransport session at urlStr.
func (c *Client) DialWebTransport(ctx context.Context, urlStr string) (*Session, error) {
	clientLogger := c.logger().With("url", urlStr)

	if c.shuttingDown() {
		clientLogger.Warn("WebTransport dial rejected: client shutting down")
		return nil, ErrClientClosed
	}
	c.init()

	tlsConfig, err := c.tlsConfig(nil)
	if err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, c.Config.tracer(), "moqt.dial",
		attribute.String("moqt.transport", "webtransport"),
		attribute.String("moqt.url", urlStr),
	)

	start := time.Now()
	dialCtx, cancelDial := context.WithTimeout(ctx, c.Config.setupTimeout())
	defer cancelDial()

	clientLogger.Debug("dialing WebTransport")

	var conn quic.Connection
	if c.DialWebTransportFunc != nil {
		_, conn, err = c.DialWebTransportFunc(dialCtx, urlStr, http.Header{}, tlsConfig)
	} else {
		_, conn, err = webtransportgo.Dial(dialCtx, urlStr, http.Header{}, tlsConfig)
	}
	if err != nil {
		clientLogger.Error("WebTransport dial failed", "error", err)
		endSpan(span, err)
		return nil, err
	}

	connLogger := clientLogger.With(
		"transport", "webtransport",
		"local_address", conn.LocalAddr(),
		"remote_address", conn.RemoteAddr(),
	)
	connLogger.Info("WebTransport connection established")

	sess, err := c.establish(dialCtx, conn, nil, connLogger, start)
	endSpan(span, err)
	return sess, err
}

// DialQUIC establishes a session over a raw QUIC connection to addr.
// The path is sent to the server as a setup parameter.
func (c *Client) DialQUIC(ctx context.Context, addr, path string) (*Session, error) {
	clientLogger := c.logger().With("address", addr)

	if c.shuttingDown() {
		clientLogger.Warn("QUIC dial rejected: client shutting down")
		return nil, ErrClientClosed
	}
	c.init()

	tlsConfig, err := c.tlsConfig([]string{NextProtoMOQ})
	if err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, c.Config.tracer(), "moqt.dial",
		attribute.String("moqt.transport", "quic"),
		attribute.String("moqt.address", addr),
	)

	start := time.Now()
	dialCtx, cancelDial := context.WithTimeout(ctx, c.Config.setupTimeout())
	defer cancelDial()

	var conn quic.Connection
	if c.DialQUICFunc != nil {
		clientLogger.Debug("using custom QUIC dial function")
		conn, err = c.DialQUICFunc(dialCtx, addr, tlsConfig, c.QUICConfig)
	} else {
		clientLogger.Debug("using default QUIC dial function")
		conn, err = quicgo.DialAddr(dialCtx, addr, tlsConfig, c.QUICConfig)
	}
	if err != nil {
		clientLogger.Error("QUIC connection failed", "error", err)
		endSpan(span, err)
		return nil, err
	}

	connLogger := clientLogger.With(
		"transport", "quic",
		"local_address", conn.LocalAddr(),
		"remote_address", conn.RemoteAddr(),
	)
	connLogger.Info("QUIC connection established")

	var params message.Parameters
	if path != "" {
		params = append(params, message.Parameter{Type: message.PathParameterType, Value: []byte(path)})
	}

	sess, err := c.establish(dialCtx, conn, params, connLogger, start)
	endSpan(span, err)
	return sess, err
}

// establish opens the control stream and runs the setup exchange on conn.
// On failure the connection is closed and no Session is returned.
func (c *Client) establish(ctx context.Context, conn quic.Connection, params message.Parameters, connLogger *slog.Logger, start time.Time) (*Session, error) {
	metrics := c.Config.metrics()

	codec, err := c.Config.codec()
	if err != nil {
		conn.CloseWithError(quic.ApplicationErrorCode(InternalSessionErrorCode), err.Error())
		return nil, err
	}

	connLogger.Debug("opening control stream")

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		connLogger.Error("failed to open control stream", "error", err)
		conn.CloseWithError(quic.ApplicationErrorCode(InternalSessionErrorCode), "failed to open control stream")
		return nil, err
	}

	streamLogger := connLogger.With("stream_id", stream.StreamID())
	control := newControlStream(stream, codec, streamLogger, metrics)

	_, err = control.handshake(ctx, params)
	if err != nil {
		streamLogger.Error("setup failed", "error", err)
		metrics.handshakeFailed()
		conn.CloseWithError(quic.ApplicationErrorCode(SetupFailedErrorCode), SetupFailedErrorCode.String())
		return nil, err
	}

	metrics.sessionOpened(time.Since(start))

	sess := newSession(conn, control, codec, c.Config, connLogger.With("version", codec.Version().String()))
	c.addSession(sess)
	context.AfterFunc(sess.Context(), func() {
		c.removeSession(sess)
	})

	connLogger.Info("established a new session", "version", codec.Version().String())

	return sess, nil
}

// tlsConfig returns the TLS configuration for a dial.
func (c *Client) tlsConfig(nextProtos []string) (*tls.Config, error) {
	var conf *tls.Config
	if c.TLSConfig != nil {
		conf = c.TLSConfig.Clone()
	} else {
		conf = &tls.Config{}
	}

	if len(nextProtos) > 0 && len(conf.NextProtos) == 0 {
		conf.NextProtos = nextProtos
	}

	if c.ServerCertificateHash != "" {
		verify, err := verifyCertificateHash(c.ServerCertificateHash)
		if err != nil {
			return nil, err
		}
		conf.InsecureSkipVerify = true
		conf.VerifyPeerCertificate = verify
	}

	return conf, nil
}

func verifyCertificateHash(hash string) (func([][]byte, [][]*x509.Certificate) error, error) {
	want, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return nil, fmt.Errorf("moqt: invalid server certificate hash: %w", err)
	}
	if len(want) != sha256.Size {
		return nil, fmt.Errorf("moqt: invalid server certificate hash: %d bytes", len(want))
	}

	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return ErrCertificateHashMismatch
		}
		got := sha256.Sum256(rawCerts[0])
		if subtle.ConstantTimeCompare(got[:], want) != 1 {
			return ErrCertificateHashMismatch
		}
		return nil
	}, nil
}

func (c *Client) addSession(sess *Session) {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()

	c.activeSess[sess] = struct{}{}

	c.logger().Debug("session added",
		"total_active_sessions", len(c.activeSess),
	)
}

func (c *Client) removeSession(sess *Session) {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()

	delete(c.activeSess, sess)
}

func (c *Client) shuttingDown() bool {
	return c.inShutdown.Load()
}

// Close terminates every active session and rejects further dials.
func (c *Client) Close() error {
	c.inShutdown.Store(true)
	c.init()

	c.logger().Info("initiating client shutdown")

	c.sessMu.Lock()
	sessions := make([]*Session, 0, len(c.activeSess))
	for sess := range c.activeSess {
		sessions = append(sessions, sess)
	}
	c.sessMu.Unlock()

	for _, sess := range sessions {
		sess.CloseWithError(NoError, NoError.String())
	}

	for _, sess := range sessions {
		sess.Wait()
	}

	c.logger().Info("client shutdown completed")

	return nil
}
