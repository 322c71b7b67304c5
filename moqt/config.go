package moqt

import (
	"time"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Config contains configuration options for MOQ sessions.
type Config struct {
	// SetupTimeout is the maximum time to wait for the transport connection
	// and the setup exchange to complete.
	// If zero, a default timeout of 5 seconds is used.
	SetupTimeout time.Duration

	// SubscribeTimeout bounds how long Subscribe waits for SUBSCRIBE_OK or
	// SUBSCRIBE_ERROR. If zero, a default timeout of 10 seconds is used.
	// A negative value leaves the wait bounded only by the caller's context.
	SubscribeTimeout time.Duration

	// SubscriptionBuffer is the number of objects buffered per subscription
	// before the stream delivering them is paused. If zero, 64 is used.
	SubscriptionBuffer int

	// MaxFieldLength bounds every length-prefixed field and object payload
	// accepted from the peer. If zero, 1 MiB is used.
	MaxFieldLength uint64

	// Version is the draft version advertised in CLIENT_SETUP.
	// If zero, message.CurrentVersion is used.
	Version message.Version

	// Handler receives control messages that do not resolve a subscription.
	Handler Handler

	// Metrics records session activity. If nil, nothing is recorded.
	Metrics *Metrics

	// TracerProvider is used to create spans for dial, setup and subscribe.
	// If nil, the global provider is used.
	TracerProvider trace.TracerProvider
}

func (c *Config) setupTimeout() time.Duration {
	if c != nil && c.SetupTimeout > 0 {
		return c.SetupTimeout
	}
	return 5 * time.Second
}

func (c *Config) subscribeTimeout() time.Duration {
	if c != nil && c.SubscribeTimeout != 0 {
		return c.SubscribeTimeout
	}
	return 10 * time.Second
}

func (c *Config) subscriptionBuffer() int {
	if c != nil && c.SubscriptionBuffer > 0 {
		return c.SubscriptionBuffer
	}
	return 64
}

func (c *Config) maxFieldLength() uint64 {
	if c != nil && c.MaxFieldLength > 0 {
		return c.MaxFieldLength
	}
	return message.DefaultMaxFieldLength
}

func (c *Config) version() message.Version {
	if c != nil && c.Version != 0 {
		return c.Version
	}
	return message.CurrentVersion
}

func (c *Config) handler() Handler {
	if c != nil {
		return c.Handler
	}
	return nil
}

func (c *Config) metrics() *Metrics {
	if c != nil {
		return c.Metrics
	}
	return nil
}

func (c *Config) tracer() trace.Tracer {
	tp := otel.GetTracerProvider()
	if c != nil && c.TracerProvider != nil {
		tp = c.TracerProvider
	}
	return tp.Tracer(tracerName)
}

// codec builds the message codec for the configured version.
func (c *Config) codec() (*message.Codec, error) {
	return message.NewCodec(c.version(), message.WithMaxFieldLength(c.maxFieldLength()))
}

// Clone creates a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	return &Config{
		SetupTimeout:       c.SetupTimeout,
		SubscribeTimeout:   c.SubscribeTimeout,
		SubscriptionBuffer: c.SubscriptionBuffer,
		MaxFieldLength:     c.MaxFieldLength,
		Version:            c.Version,
		Handler:            c.Handler,
		Metrics:            c.Metrics,
		TracerProvider:     c.TracerProvider,
	}
}
