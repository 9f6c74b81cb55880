// Package settlement broadcasts verified payment transactions and polls the
// ledger to a terminal confirmation state. It is the only component permitted
// to broadcast.
package settlement

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/vitwit/x402-solana/logger"
	"github.com/vitwit/x402-solana/metrics"
	"github.com/vitwit/x402-solana/normalize"
	"github.com/vitwit/x402-solana/registry"
	"github.com/vitwit/x402-solana/types"
	"github.com/vitwit/x402-solana/utils"
)

// maxBroadcastRetries bounds RPC-level resubmission of one broadcast attempt.
// Not caller-configurable.
const maxBroadcastRetries uint = 3

// Settler interface defines the contract for payment settlement
type Settler interface {
	Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.SettlementResult, error)
}

// Service settles payments against a network registry. Poll interval and
// overall timeout are constructor parameters so tests can run with fakes.
type Service struct {
	registry     *registry.Registry
	pollInterval time.Duration
	timeout      time.Duration
	inflight     *inflightTable
	log          logger.Logger
	metrics      metrics.Recorder
}

var _ Settler = (*Service)(nil)

// NewService creates a settlement service. A nil logger or recorder defaults
// to the noop implementation.
func NewService(reg *registry.Registry, pollInterval, timeout time.Duration, log logger.Logger, rec metrics.Recorder) *Service {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Service{
		registry:     reg,
		pollInterval: pollInterval,
		timeout:      timeout,
		inflight:     newInflightTable(),
		log:          log,
		metrics:      rec,
	}
}

// Settle performs or confirms exactly one broadcast-equivalent action for the
// payload: kinds with an embedded transaction are broadcast and polled to a
// terminal state; authorization_only payments are re-fetched by signature.
// Malformed payloads and unsupported networks are rejected before any
// broadcast is attempted.
func (s *Service) Settle(
	ctx context.Context,
	payload *types.PaymentPayload,
	requirements *types.PaymentRequirements,
) (*types.SettlementResult, error) {
	started := time.Now()

	if payload == nil || len(payload.Payload) == 0 {
		return failure("", types.ErrFormat, "Invalid payload format: payment payload is missing"), nil
	}
	if requirements == nil {
		return failure("", types.ErrFormat, "Invalid payload format: payment requirements are missing"), nil
	}
	if err := requirements.Validate(); err != nil {
		return failure(requirements.Network, types.ErrFormat, fmt.Sprintf("invalid requirements: %v", err)), nil
	}

	network := types.Network(requirements.Network)
	if !network.IsSolana() {
		return failure(requirements.Network, types.ErrUnsupportedNetwork,
			fmt.Sprintf("unsupported network: %s", network)), nil
	}

	normalized, err := normalize.Normalize(payload)
	if err != nil {
		return failure(requirements.Network, types.ErrFormat,
			fmt.Sprintf("Invalid payload format: %v", err)), nil
	}

	client, err := s.registry.Resolve(network)
	if err != nil {
		return failure(requirements.Network, types.ErrUnsupportedNetwork, err.Error()), nil
	}

	var result *types.SettlementResult
	switch normalized.Kind {
	case types.KindAuthorizationOnly:
		result = s.settleExisting(ctx, client, network, normalized)
	default:
		result = s.settleBroadcast(ctx, client, network, normalized)
	}

	outcome := "settle_failed"
	if result.Success {
		outcome = "settle_confirmed"
	}
	s.metrics.IncCounter(outcome, map[string]string{"network": network.String()})
	s.metrics.ObserveLatency("settle", time.Since(started), map[string]string{"network": network.String()})

	return result, nil
}

// settleBroadcast decodes, broadcasts, and polls an embedded transaction to a
// terminal state.
func (s *Service) settleBroadcast(
	ctx context.Context,
	client registry.RPCClient,
	network types.Network,
	normalized *types.NormalizedTransaction,
) *types.SettlementResult {
	txBytes, err := base64.StdEncoding.DecodeString(normalized.Transaction)
	if err != nil {
		return failure(network.String(), types.ErrFormat,
			fmt.Sprintf("invalid transaction base64: %v", err))
	}

	tx, err := solana.TransactionFromDecoder(binary.NewBinDecoder(txBytes))
	if err != nil {
		return failure(network.String(), types.ErrFormat,
			fmt.Sprintf("failed to decode transaction: %v", err))
	}

	// Reject a concurrent settlement of the same claimed signature while the
	// first attempt is still in flight.
	if !s.inflight.acquire(normalized.Signature) {
		return failure(network.String(), types.ErrReplayInFlight,
			fmt.Sprintf("settlement of %s is already in flight", normalized.Signature))
	}
	defer s.inflight.release(normalized.Signature)

	retries := maxBroadcastRetries
	sig, err := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentProcessed,
		MaxRetries:          &retries,
	})
	if err != nil {
		// An execution error at submission is fatal to this attempt.
		return failure(network.String(), types.ErrBroadcast,
			fmt.Sprintf("broadcast failed: %v", err))
	}

	s.log.Info("transaction broadcast", map[string]any{
		"network":   network.String(),
		"signature": sig.String(),
	})

	lastStatus := types.ConfirmationProcessed
	var chainErr error

	confirmed, pollErr := pollUntil(ctx, s.pollInterval, s.timeout, func(pollCtx context.Context) (bool, error) {
		statuses, err := client.GetSignatureStatuses(pollCtx, false, sig)
		if err != nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
			// Transient; keep polling until the deadline.
			return false, nil
		}

		status := statuses.Value[0]
		if status.Err != nil {
			chainErr = fmt.Errorf("transaction failed on chain: %v", status.Err)
			return false, chainErr
		}

		lastStatus = confirmationStatus(status.ConfirmationStatus)
		return lastStatus.Terminal(), nil
	})

	payer := normalized.Payer
	gasSponsored := normalized.Kind == types.KindFacilitatorSponsored
	if gasSponsored {
		payer = normalized.UserPublicKey
	}

	if pollErr != nil && chainErr != nil {
		return &types.SettlementResult{
			Success: false,
			Receipt: &types.SettlementReceipt{
				Signature:          sig.String(),
				Confirmed:          false,
				ConfirmationStatus: lastStatus,
			},
			Network:      network.String(),
			Payer:        payer,
			GasSponsored: gasSponsored,
			ErrorCode:    types.ErrBroadcast,
			ErrorReason:  chainErr.Error(),
		}
	}

	if pollErr != nil {
		// Caller canceled while the attempt was still undecided; not a
		// deadline expiry, so the configured timeout is not reported.
		return &types.SettlementResult{
			Success: false,
			Receipt: &types.SettlementReceipt{
				Signature:          sig.String(),
				Confirmed:          false,
				ConfirmationStatus: lastStatus,
			},
			Network:      network.String(),
			Payer:        payer,
			GasSponsored: gasSponsored,
			ErrorCode:    types.ErrTimeout,
			ErrorReason:  fmt.Sprintf("confirmation aborted before a terminal state: %v", pollErr),
		}
	}

	if !confirmed {
		// Undecided, not definitively rejected: the transaction may still
		// land. The signature is surfaced so the caller can re-query.
		return &types.SettlementResult{
			Success: false,
			Receipt: &types.SettlementReceipt{
				Signature:          sig.String(),
				Confirmed:          false,
				ConfirmationStatus: lastStatus,
			},
			Network:      network.String(),
			Payer:        payer,
			GasSponsored: gasSponsored,
			ErrorCode:    types.ErrTimeout,
			ErrorReason: fmt.Sprintf("confirmation timed out after %s; last observed status %s",
				s.timeout, lastStatus),
		}
	}

	receipt := &types.SettlementReceipt{
		Signature:          sig.String(),
		Confirmed:          true,
		ConfirmationStatus: lastStatus,
	}
	s.enrich(ctx, client, sig, receipt)

	return &types.SettlementResult{
		Success:      true,
		Receipt:      receipt,
		Network:      network.String(),
		Payer:        payer,
		GasSponsored: gasSponsored,
	}
}

// settleExisting confirms a payment the payer already broadcast. No broadcast
// occurs.
func (s *Service) settleExisting(
	ctx context.Context,
	client registry.RPCClient,
	network types.Network,
	normalized *types.NormalizedTransaction,
) *types.SettlementResult {
	if err := utils.ValidateSignature(normalized.Signature); err != nil {
		return failure(network.String(), types.ErrFormat,
			fmt.Sprintf("invalid signature encoding: %v", err))
	}

	sig, err := solana.SignatureFromBase58(normalized.Signature)
	if err != nil {
		return failure(network.String(), types.ErrFormat,
			fmt.Sprintf("invalid signature encoding: %v", err))
	}

	out, err := client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil || out == nil {
		return failure(network.String(), types.ErrNotFound,
			fmt.Sprintf("payment transaction %s not found on chain", normalized.Signature))
	}

	if out.Meta != nil && out.Meta.Err != nil {
		return failure(network.String(), types.ErrValidation,
			fmt.Sprintf("payment transaction failed on chain: %v", out.Meta.Err))
	}

	receipt := &types.SettlementReceipt{
		Signature:          normalized.Signature,
		Confirmed:          true,
		ConfirmationStatus: types.ConfirmationConfirmed,
		Slot:               out.Slot,
	}
	if out.BlockTime != nil {
		blockTime := out.BlockTime.Time()
		receipt.BlockTime = &blockTime
	}
	if out.Meta != nil {
		fee := out.Meta.Fee
		receipt.FeesPaid = &fee
	}

	return &types.SettlementResult{
		Success: true,
		Receipt: receipt,
		Network: network.String(),
		Payer:   normalized.Payer,
	}
}

// enrich fetches slot, block time and fee for a confirmed receipt. Failures
// leave the receipt valid but unenriched.
func (s *Service) enrich(ctx context.Context, client registry.RPCClient, sig solana.Signature, receipt *types.SettlementReceipt) {
	out, err := client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil || out == nil {
		s.log.Debug("receipt enrichment skipped", map[string]any{
			"signature": sig.String(),
			"error":     fmt.Sprint(err),
		})
		return
	}

	receipt.Slot = out.Slot
	if out.BlockTime != nil {
		blockTime := out.BlockTime.Time()
		receipt.BlockTime = &blockTime
	}
	if out.Meta != nil {
		fee := out.Meta.Fee
		receipt.FeesPaid = &fee
	}
}

func confirmationStatus(status rpc.ConfirmationStatusType) types.ConfirmationStatus {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return types.ConfirmationFinalized
	case rpc.ConfirmationStatusConfirmed:
		return types.ConfirmationConfirmed
	default:
		return types.ConfirmationProcessed
	}
}

func failure(network, code, reason string) *types.SettlementResult {
	return &types.SettlementResult{
		Success:     false,
		Network:     network,
		ErrorCode:   code,
		ErrorReason: reason,
	}
}

// BatchSettle settles multiple payments concurrently. Individual failures are
// recorded in the result objects.
func (s *Service) BatchSettle(
	ctx context.Context,
	payloads []*types.PaymentPayload,
	requirements []*types.PaymentRequirements,
) ([]*types.SettlementResult, error) {
	if len(payloads) != len(requirements) {
		return nil, types.NewError(types.ErrFormat,
			"number of payloads must match number of requirements")
	}

	results := make([]*types.SettlementResult, len(payloads))

	type settlementResult struct {
		index  int
		result *types.SettlementResult
		err    error
	}

	resultChan := make(chan settlementResult, len(payloads))

	for i, payload := range payloads {
		go func(index int, p *types.PaymentPayload, r *types.PaymentRequirements) {
			result, err := s.Settle(ctx, p, r)
			resultChan <- settlementResult{index: index, result: result, err: err}
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
