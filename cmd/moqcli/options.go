package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/OkutaniDaichi0106/moqtransport/moqt"
	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel      string
	metricsAddr   string
	insecure      bool
	certHash      string
	draft         int
	setupTimeout  time.Duration
	subscribeWait time.Duration
}

func (o *rootOptions) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.BoolVar(&o.insecure, "insecure", false, "skip server certificate verification")
	flags.StringVar(&o.certHash, "cert-hash", "", "base64 SHA-256 of the server certificate to pin")
	flags.IntVar(&o.draft, "draft", 5, "draft version to offer (3, 4 or 5)")
	flags.DurationVar(&o.setupTimeout, "setup-timeout", 5*time.Second, "bound on connecting and the setup exchange")
	flags.DurationVar(&o.subscribeWait, "subscribe-timeout", 10*time.Second, "bound on waiting for SUBSCRIBE_OK")
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func (o *rootOptions) logger() (*slog.Logger, error) {
	level, err := parseLogLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func draftVersion(n int) (message.Version, error) {
	switch n {
	case 3:
		return message.Draft03, nil
	case 4:
		return message.Draft04, nil
	case 5:
		return message.Draft05, nil
	default:
		return 0, fmt.Errorf("unsupported draft %d", n)
	}
}

// client builds a Client from the flags. When metrics are enabled it also
// starts the metrics server, which stops with ctx.
func (o *rootOptions) client(ctx context.Context, handler moqt.Handler) (*moqt.Client, error) {
	logger, err := o.logger()
	if err != nil {
		return nil, err
	}

	v, err := draftVersion(o.draft)
	if err != nil {
		return nil, err
	}

	config := &moqt.Config{
		SetupTimeout:     o.setupTimeout,
		SubscribeTimeout: o.subscribeWait,
		Version:          v,
		Handler:          handler,
	}

	if o.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		config.Metrics = moqt.NewMetrics(reg)
		go func() {
			if err := serveMetrics(ctx, o.metricsAddr, reg, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	return &moqt.Client{
		TLSConfig:             &tls.Config{InsecureSkipVerify: o.insecure},
		ServerCertificateHash: o.certHash,
		Config:                config,
		Logger:                logger,
	}, nil
}
