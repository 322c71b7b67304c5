package quic

import "github.com/quic-go/quic-go"

// Config contains configuration options for a QUIC connection.
// See github.com/quic-go/quic-go.Config for available options.
type Config = quic.Config
