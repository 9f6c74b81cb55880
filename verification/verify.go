// Package verification decides whether a payment artifact is valid without
// mutating ledger state. Verification never broadcasts.
package verification

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/vitwit/x402-solana/identity"
	"github.com/vitwit/x402-solana/logger"
	"github.com/vitwit/x402-solana/metrics"
	"github.com/vitwit/x402-solana/normalize"
	"github.com/vitwit/x402-solana/registry"
	"github.com/vitwit/x402-solana/types"
	"github.com/vitwit/x402-solana/utils"
)

// Verifier interface defines the contract for payment verification
type Verifier interface {
	Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.VerificationResult, error)
}

// Service verifies payment payloads against a network registry and the
// facilitator identity.
type Service struct {
	registry *registry.Registry
	identity *identity.Identity
	timeout  time.Duration
	log      logger.Logger
	metrics  metrics.Recorder
}

var _ Verifier = (*Service)(nil)

// NewService creates a verification service. A nil logger or recorder
// defaults to the noop implementation.
func NewService(reg *registry.Registry, id *identity.Identity, timeout time.Duration, log logger.Logger, rec metrics.Recorder) *Service {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Service{
		registry: reg,
		identity: id,
		timeout:  timeout,
		log:      log,
		metrics:  rec,
	}
}

// Verify classifies the payload and runs the per-kind validity checks.
// Every rejection carries a specific human-readable reason; acceptance
// reports the resolved payer and whether the facilitator sponsors gas.
func (s *Service) Verify(
	ctx context.Context,
	payload *types.PaymentPayload,
	requirements *types.PaymentRequirements,
) (*types.VerificationResult, error) {
	started := time.Now()

	verifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Format rejections happen before any network call.
	if payload == nil || len(payload.Payload) == 0 {
		return s.invalid(requirements, "Invalid payload format: payment payload is missing"), nil
	}
	if requirements == nil {
		return s.invalid(requirements, "Invalid payload format: payment requirements are missing"), nil
	}
	if err := requirements.Validate(); err != nil {
		return s.invalid(requirements, fmt.Sprintf("invalid requirements: %v", err)), nil
	}

	if payload.Network != "" && payload.Network != requirements.Network {
		return s.invalid(requirements, "payload network does not match requirements network"), nil
	}

	network := types.Network(requirements.Network)
	if !network.IsSolana() {
		return s.invalid(requirements, fmt.Sprintf("unsupported network: %s", network)), nil
	}

	normalized, err := normalize.Normalize(payload)
	if err != nil {
		return s.invalid(requirements, fmt.Sprintf("Invalid payload format: %v", err)), nil
	}

	client, err := s.registry.Resolve(network)
	if err != nil {
		return s.invalid(requirements, err.Error()), nil
	}

	var result *types.VerificationResult
	switch normalized.Kind {
	case types.KindFacilitatorSponsored:
		result = s.verifySponsored(verifyCtx, client, normalized)
	case types.KindFull, types.KindMinimal:
		result = s.verifyEmbedded(verifyCtx, client, normalized, requirements)
	case types.KindAuthorizationOnly:
		result = s.verifyAuthorizationOnly(verifyCtx, client, normalized)
	default:
		result = &types.VerificationResult{
			IsValid:       false,
			InvalidReason: fmt.Sprintf("unrecognized payload kind: %s", normalized.Kind),
		}
	}

	outcome := "verify_invalid"
	if result.IsValid {
		outcome = "verify_valid"
	}
	s.metrics.IncCounter(outcome, map[string]string{"network": network.String()})
	s.metrics.ObserveLatency("verify", time.Since(started), map[string]string{"network": network.String()})

	if !result.IsValid {
		s.log.Debug("payment rejected", map[string]any{
			"network": network.String(),
			"kind":    string(normalized.Kind),
			"reason":  result.InvalidReason,
		})
	}

	return result, nil
}

// verifySponsored checks a facilitator-built transaction: the fee payer must
// be the facilitator's key, and the transaction must simulate cleanly.
func (s *Service) verifySponsored(
	ctx context.Context,
	client registry.RPCClient,
	normalized *types.NormalizedTransaction,
) *types.VerificationResult {
	tx, reason := decodeTransaction(normalized.Transaction)
	if reason != "" {
		return &types.VerificationResult{IsValid: false, InvalidReason: reason}
	}

	if len(tx.Message.AccountKeys) == 0 {
		return &types.VerificationResult{
			IsValid:       false,
			InvalidReason: "transaction has no accounts",
		}
	}

	facilitatorKey := s.identity.PublicKey()
	feePayer := tx.Message.AccountKeys[0]
	if !feePayer.Equals(facilitatorKey) {
		return &types.VerificationResult{
			IsValid: false,
			InvalidReason: fmt.Sprintf("fee payer mismatch: transaction fee payer %s is not the facilitator %s",
				feePayer, facilitatorKey),
		}
	}

	if reason := s.simulate(ctx, client, tx); reason != "" {
		return &types.VerificationResult{IsValid: false, InvalidReason: reason}
	}

	return &types.VerificationResult{
		IsValid:                   true,
		Payer:                     facilitatorKey.String(),
		GasSponsoredByFacilitator: true,
	}
}

// verifyEmbedded checks the full and minimal kinds: the embedded transaction
// must simulate cleanly, and the claimed signature must be absent on chain.
// Absence is the accepting condition for replay protection.
func (s *Service) verifyEmbedded(
	ctx context.Context,
	client registry.RPCClient,
	normalized *types.NormalizedTransaction,
	requirements *types.PaymentRequirements,
) *types.VerificationResult {
	tx, reason := decodeTransaction(normalized.Transaction)
	if reason != "" {
		return &types.VerificationResult{IsValid: false, InvalidReason: reason}
	}

	if reason := s.simulate(ctx, client, tx); reason != "" {
		return &types.VerificationResult{IsValid: false, InvalidReason: reason}
	}

	if normalized.Kind == types.KindFull {
		if reason := crossCheck(normalized, requirements); reason != "" {
			return &types.VerificationResult{IsValid: false, InvalidReason: reason}
		}
	}

	if err := utils.ValidateSignature(normalized.Signature); err != nil {
		return &types.VerificationResult{
			IsValid:       false,
			InvalidReason: fmt.Sprintf("invalid signature encoding: %v", err),
		}
	}

	sig, err := solana.SignatureFromBase58(normalized.Signature)
	if err != nil {
		return &types.VerificationResult{
			IsValid:       false,
			InvalidReason: fmt.Sprintf("invalid signature encoding: %v", err),
		}
	}

	statuses, err := client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return &types.VerificationResult{
			IsValid:       false,
			InvalidReason: fmt.Sprintf("failed to check signature status: %v", err),
		}
	}
	if len(statuses.Value) > 0 && statuses.Value[0] != nil {
		return &types.VerificationResult{
			IsValid:       false,
			InvalidReason: fmt.Sprintf("transaction %s was already executed on chain", normalized.Signature),
		}
	}

	payer := normalized.Payer
	if payer == "" {
		payer = "unknown"
	}

	return &types.VerificationResult{
		IsValid: true,
		Payer:   payer,
	}
}

// verifyAuthorizationOnly checks a payment the payer already broadcast: the
// claimed signature must be found on chain, error-free.
func (s *Service) verifyAuthorizationOnly(
	ctx context.Context,
	client registry.RPCClient,
	normalized *types.NormalizedTransaction,
) *types.VerificationResult {
	if err := utils.ValidateSignature(normalized.Signature); err != nil {
		return &types.VerificationResult{
			IsValid:       false,
			InvalidReason: fmt.Sprintf("invalid signature encoding: %v", err),
		}
	}

	sig, err := solana.SignatureFromBase58(normalized.Signature)
	if err != nil {
		return &types.VerificationResult{
			IsValid:       false,
			InvalidReason: fmt.Sprintf("invalid signature encoding: %v", err),
		}
	}

	out, err := client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil || out == nil {
		return &types.VerificationResult{
			IsValid:       false,
			InvalidReason: fmt.Sprintf("payment transaction %s not found on chain", normalized.Signature),
		}
	}

	if out.Meta != nil && out.Meta.Err != nil {
		return &types.VerificationResult{
			IsValid:       false,
			InvalidReason: fmt.Sprintf("payment transaction failed on chain: %v", out.Meta.Err),
		}
	}

	return &types.VerificationResult{
		IsValid: true,
		Payer:   normalized.Payer,
	}
}

// simulate dry-runs the transaction against current ledger state. A non-empty
// return is the rejection reason.
func (s *Service) simulate(ctx context.Context, client registry.RPCClient, tx *solana.Transaction) string {
	out, err := client.SimulateTransaction(ctx, tx)
	if err != nil {
		return fmt.Sprintf("simulation failed: %v", err)
	}
	if out.Value != nil && out.Value.Err != nil {
		return fmt.Sprintf("simulation error: %v", out.Value.Err)
	}
	return ""
}

// crossCheck compares the transfer details a full payload asserts against the
// caller-supplied requirements.
func crossCheck(normalized *types.NormalizedTransaction, requirements *types.PaymentRequirements) string {
	if normalized.Recipient != "" && normalized.Recipient != requirements.PayTo {
		return fmt.Sprintf("recipient %s does not match required payTo %s",
			normalized.Recipient, requirements.PayTo)
	}

	if normalized.Amount != "" {
		amount, err := decimal.NewFromString(normalized.Amount)
		if err != nil {
			return fmt.Sprintf("invalid amount %q: %v", normalized.Amount, err)
		}
		required, err := decimal.NewFromString(requirements.MaxAmountRequired)
		if err != nil {
			return fmt.Sprintf("invalid required amount %q: %v", requirements.MaxAmountRequired, err)
		}
		if amount.LessThan(required) {
			return fmt.Sprintf("amount %s is less than required %s", amount, required)
		}
	}

	return ""
}

func decodeTransaction(encoded string) (*solana.Transaction, string) {
	if encoded == "" {
		return nil, "payload has no embedded transaction"
	}

	txBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Sprintf("invalid transaction base64: %v", err)
	}

	tx, err := solana.TransactionFromDecoder(binary.NewBinDecoder(txBytes))
	if err != nil {
		return nil, fmt.Sprintf("failed to decode transaction: %v", err)
	}

	return tx, ""
}

func (s *Service) invalid(requirements *types.PaymentRequirements, reason string) *types.VerificationResult {
	network := ""
	if requirements != nil {
		network = requirements.Network
	}
	s.metrics.IncCounter("verify_invalid", map[string]string{"network": network})
	return &types.VerificationResult{
		IsValid:       false,
		InvalidReason: reason,
	}
}

// BatchVerify verifies multiple payloads concurrently against the same
// requirements slice. Results are positional.
func (s *Service) BatchVerify(
	ctx context.Context,
	payloads []*types.PaymentPayload,
	requirements []*types.PaymentRequirements,
) ([]*types.VerificationResult, error) {
	if len(payloads) != len(requirements) {
		return nil, types.NewError(types.ErrFormat,
			"number of payloads must match number of requirements")
	}

	results := make([]*types.VerificationResult, len(payloads))

	type verificationResult struct {
		index  int
		result *types.VerificationResult
		err    error
	}

	resultChan := make(chan verificationResult, len(payloads))

	for i, payload := range payloads {
		go func(index int, p *types.PaymentPayload, r *types.PaymentRequirements) {
			result, err := s.Verify(ctx, p, r)
			resultChan <- verificationResult{
				index:  index,
				result: result,
				err:    err,
			}
		}(i, payload, requirements[i])
	}

	for i := 0; i < len(payloads); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-resultChan:
			if res.err != nil {
				return nil, res.err
			}
			results[res.index] = res.result
		}
	}

	return results, nil
}
