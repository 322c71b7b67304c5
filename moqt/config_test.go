package moqt

import (
	"testing"
	"time"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestConfig_Defaults(t *testing.T) {
	tests := map[string]*Config{
		"nil":   nil,
		"empty": {},
	}

	for name, config := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, 5*time.Second, config.setupTimeout())
			assert.Equal(t, 10*time.Second, config.subscribeTimeout())
			assert.Equal(t, 64, config.subscriptionBuffer())
			assert.Equal(t, uint64(message.DefaultMaxFieldLength), config.maxFieldLength())
			assert.Equal(t, message.CurrentVersion, config.version())
			assert.Nil(t, config.handler())
			assert.Nil(t, config.metrics())
			assert.NotNil(t, config.tracer())

			codec, err := config.codec()
			require.NoError(t, err)
			assert.Equal(t, message.CurrentVersion, codec.Version())
		})
	}
}

func TestConfig_Overrides(t *testing.T) {
	config := &Config{
		SetupTimeout:       time.Second,
		SubscribeTimeout:   -1,
		SubscriptionBuffer: 8,
		MaxFieldLength:     512,
		Version:            message.Draft04,
		TracerProvider:     noop.NewTracerProvider(),
	}

	assert.Equal(t, time.Second, config.setupTimeout())
	assert.Negative(t, config.subscribeTimeout())
	assert.Equal(t, 8, config.subscriptionBuffer())

	codec, err := config.codec()
	require.NoError(t, err)
	assert.Equal(t, message.Draft04, codec.Version())
	assert.Equal(t, uint64(512), codec.MaxFieldLength())
}

func TestConfig_UnsupportedVersion(t *testing.T) {
	config := &Config{Version: message.Version(0xff000001)}

	_, err := config.codec()
	assert.ErrorIs(t, err, message.ErrUnsupportedVersion)
}

func TestConfig_Clone(t *testing.T) {
	handler := HandlerFunc(func(*Session, message.Message) error { return nil })
	config := &Config{
		SetupTimeout:     time.Second,
		SubscribeTimeout: 2 * time.Second,
		Version:          message.Draft03,
		Handler:          handler,
	}

	clone := config.Clone()
	require.NotNil(t, clone)
	assert.Equal(t, config.SetupTimeout, clone.SetupTimeout)
	assert.Equal(t, config.SubscribeTimeout, clone.SubscribeTimeout)
	assert.Equal(t, config.Version, clone.Version)
	assert.NotNil(t, clone.Handler)

	clone.SetupTimeout = time.Minute
	assert.Equal(t, time.Second, config.SetupTimeout)

	var nilConfig *Config
	assert.Nil(t, nilConfig.Clone())
}
