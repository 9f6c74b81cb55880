package facilitator

import (
	"github.com/vitwit/x402-solana/identity"
	"github.com/vitwit/x402-solana/logger"
	"github.com/vitwit/x402-solana/metrics"
	"github.com/vitwit/x402-solana/registry"
)

type Option func(*Facilitator)

func WithLogger(l logger.Logger) Option {
	return func(f *Facilitator) {
		f.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(f *Facilitator) {
		f.metrics = r
	}
}

// WithRegistry replaces the default connection registry. Tests use this to
// inject fake RPC clients.
func WithRegistry(reg *registry.Registry) Option {
	return func(f *Facilitator) {
		f.registry = reg
	}
}

// WithIdentity replaces the configured signing identity.
func WithIdentity(id *identity.Identity) Option {
	return func(f *Facilitator) {
		f.identity = id
	}
}
