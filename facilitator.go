// Package facilitator settles off-chain x402 payment claims against the
// Solana ledger: it verifies signed payment artifacts, broadcasts or confirms
// them, and can construct sponsored transactions whose network fees it pays
// on behalf of the payer.
package facilitator

import (
	"context"
	"time"

	"github.com/vitwit/x402-solana/builder"
	"github.com/vitwit/x402-solana/identity"
	"github.com/vitwit/x402-solana/logger"
	"github.com/vitwit/x402-solana/metrics"
	"github.com/vitwit/x402-solana/registry"
	"github.com/vitwit/x402-solana/settlement"
	"github.com/vitwit/x402-solana/types"
	"github.com/vitwit/x402-solana/verification"
)

// Config holds the construction-time configuration. The facilitator identity
// and the network connections are read-only after New returns; both are safe
// to share across concurrently executing requests.
type Config struct {
	// Endpoints maps each supported network to its RPC URL. Defaults to the
	// public endpoints for all known networks when empty.
	Endpoints map[types.Network]string

	// SecretKey is the facilitator's base58-encoded signing key. When empty
	// (and KeygenFile is unset) an ephemeral key is generated at startup.
	SecretKey string

	// KeygenFile is the path to a Solana keygen JSON file, an alternative to
	// SecretKey.
	KeygenFile string

	// Timeout bounds each settlement attempt's confirmation polling.
	Timeout time.Duration

	// PollInterval is the fixed interval between confirmation status queries.
	PollInterval time.Duration
}

// Facilitator is the composed verification/settlement/construction engine.
type Facilitator struct {
	registry     *registry.Registry
	identity     *identity.Identity
	builder      *builder.Builder
	verification *verification.Service
	settlement   *settlement.Service
	log          logger.Logger
	metrics      metrics.Recorder
	started      time.Time
}

// New creates a Facilitator from the given configuration.
func New(config *Config, opts ...Option) (*Facilitator, error) {
	if config == nil {
		config = &Config{}
	}

	timeout := 30 * time.Second
	if config.Timeout > 0 {
		timeout = config.Timeout
	}
	pollInterval := 3 * time.Second
	if config.PollInterval > 0 {
		pollInterval = config.PollInterval
	}

	f := &Facilitator{
		log:     logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.identity == nil {
		id, err := buildIdentity(config)
		if err != nil {
			return nil, err
		}
		f.identity = id
	}

	if f.registry == nil {
		endpoints := config.Endpoints
		if len(endpoints) == 0 {
			endpoints = registry.DefaultEndpoints()
		}
		reg, err := registry.New(endpoints)
		if err != nil {
			return nil, err
		}
		f.registry = reg
	}

	f.builder = builder.New(f.registry, f.identity, f.log)
	f.verification = verification.NewService(f.registry, f.identity, timeout, f.log, f.metrics)
	f.settlement = settlement.NewService(f.registry, pollInterval, timeout, f.log, f.metrics)

	f.log.Info("facilitator initialized", map[string]any{
		"publicKey": f.identity.PublicKey().String(),
		"networks":  f.registry.Networks(),
	})

	return f, nil
}

func buildIdentity(config *Config) (*identity.Identity, error) {
	switch {
	case config.SecretKey != "":
		return identity.FromBase58(config.SecretKey)
	case config.KeygenFile != "":
		return identity.FromKeygenFile(config.KeygenFile)
	default:
		return identity.Ephemeral()
	}
}

// Verify verifies a payment against requirements. It never mutates ledger
// state.
func (f *Facilitator) Verify(
	ctx context.Context,
	payload *types.PaymentPayload,
	requirements *types.PaymentRequirements,
) (*types.VerificationResult, error) {
	return f.verification.Verify(ctx, payload, requirements)
}

// Settle settles a payment: broadcasting an embedded transaction or
// confirming an already-submitted one.
func (f *Facilitator) Settle(
	ctx context.Context,
	payload *types.PaymentPayload,
	requirements *types.PaymentRequirements,
) (*types.SettlementResult, error) {
	return f.settlement.Settle(ctx, payload, requirements)
}

// CreateSponsoredTransaction builds a partially signed transfer with the
// facilitator as fee payer. The client must add the payer's signature and
// re-submit the result through Verify/Settle.
func (f *Facilitator) CreateSponsoredTransaction(
	ctx context.Context,
	payerPublicKey string,
	requirements *types.PaymentRequirements,
) (*types.SponsoredTransaction, error) {
	return f.builder.Build(ctx, payerPublicKey, requirements)
}

// BatchVerify verifies multiple payments concurrently
func (f *Facilitator) BatchVerify(
	ctx context.Context,
	payloads []*types.PaymentPayload,
	requirements []*types.PaymentRequirements,
) ([]*types.VerificationResult, error) {
	return f.verification.BatchVerify(ctx, payloads, requirements)
}

// BatchSettle settles multiple payments concurrently
func (f *Facilitator) BatchSettle(
	ctx context.Context,
	payloads []*types.PaymentPayload,
	requirements []*types.PaymentRequirements,
) ([]*types.SettlementResult, error) {
	return f.settlement.BatchSettle(ctx, payloads, requirements)
}

// Supported reports the payment kinds the facilitator accepts, one per
// configured network.
func (f *Facilitator) Supported() *types.SupportedResponse {
	networks := f.registry.Networks()
	kinds := make([]types.SupportedItem, 0, len(networks))
	for _, network := range networks {
		kinds = append(kinds, types.SupportedItem{
			X402Version:          int(types.X402Version1),
			Scheme:               string(types.SchemeExact),
			Network:              network.String(),
			FacilitatorPaysGas:   true,
			FacilitatorPublicKey: f.identity.PublicKey().String(),
		})
	}
	return &types.SupportedResponse{Kinds: kinds}
}

// HealthStatus reports process liveness and the static facilitator identity.
type HealthStatus struct {
	Status               string   `json:"status"`
	UptimeSeconds        int64    `json:"uptimeSeconds"`
	Networks             []string `json:"networks"`
	FacilitatorPublicKey string   `json:"facilitatorPublicKey"`
}

// Health returns the current health snapshot.
func (f *Facilitator) Health() *HealthStatus {
	networks := f.registry.Networks()
	names := make([]string, 0, len(networks))
	for _, n := range networks {
		names = append(names, n.String())
	}
	return &HealthStatus{
		Status:               "ok",
		UptimeSeconds:        int64(time.Since(f.started).Seconds()),
		Networks:             names,
		FacilitatorPublicKey: f.identity.PublicKey().String(),
	}
}

// IsNetworkSupported checks if a network is supported
func (f *Facilitator) IsNetworkSupported(network types.Network) bool {
	return f.registry.IsSupported(network)
}

// PublicKey returns the facilitator's fee-payer public key.
func (f *Facilitator) PublicKey() string {
	return f.identity.PublicKey().String()
}

// Version information
const (
	Version         = "1.0.0"
	ProtocolVersion = 1
)
