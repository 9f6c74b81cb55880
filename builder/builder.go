// Package builder constructs sponsored transfer transactions: the facilitator
// is the fee payer, the payer is the transfer authority. The returned
// transaction is partially signed and must round-trip through the client for
// the payer's signature before re-submission through verify/settle.
package builder

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/vitwit/x402-solana/identity"
	"github.com/vitwit/x402-solana/logger"
	"github.com/vitwit/x402-solana/registry"
	"github.com/vitwit/x402-solana/types"
	"github.com/vitwit/x402-solana/utils"
)

// Builder assembles sponsored transactions against a resolved network
// connection.
type Builder struct {
	registry *registry.Registry
	identity *identity.Identity
	log      logger.Logger
}

// New creates a sponsored transaction builder.
func New(reg *registry.Registry, id *identity.Identity, log logger.Logger) *Builder {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Builder{
		registry: reg,
		identity: id,
		log:      log,
	}
}

// Build constructs a partially signed token transfer moving
// requirements.MaxAmountRequired units from the payer's token account to the
// recipient's, with the facilitator as fee payer. Failures are typed
// construction errors, never partial transactions.
func (b *Builder) Build(
	ctx context.Context,
	payerPublicKey string,
	requirements *types.PaymentRequirements,
) (*types.SponsoredTransaction, error) {
	if requirements == nil {
		return nil, types.NewError(types.ErrConstruction, "payment requirements are missing")
	}

	network := types.Network(requirements.Network)
	if !network.IsSolana() {
		return nil, types.NewError(types.ErrUnsupportedNetwork,
			fmt.Sprintf("unsupported network: %s", network))
	}

	client, err := b.registry.Resolve(network)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateAddress(payerPublicKey); err != nil {
		return nil, types.NewError(types.ErrConstruction,
			fmt.Sprintf("malformed payer public key: %v", err))
	}

	payer, err := solana.PublicKeyFromBase58(payerPublicKey)
	if err != nil {
		return nil, types.NewError(types.ErrConstruction,
			fmt.Sprintf("malformed payer public key: %v", err))
	}

	mint, err := solana.PublicKeyFromBase58(requirements.Asset)
	if err != nil {
		return nil, types.NewError(types.ErrConstruction,
			fmt.Sprintf("malformed asset mint: %v", err))
	}

	recipient, err := solana.PublicKeyFromBase58(requirements.PayTo)
	if err != nil {
		return nil, types.NewError(types.ErrConstruction,
			fmt.Sprintf("malformed recipient address: %v", err))
	}

	amount, err := strconv.ParseUint(requirements.MaxAmountRequired, 10, 64)
	if err != nil {
		return nil, types.NewError(types.ErrConstruction,
			fmt.Sprintf("invalid amount %q: %v", requirements.MaxAmountRequired, err))
	}

	recent, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, types.NewError(types.ErrConstruction,
			fmt.Sprintf("connection unavailable: failed to fetch blockhash: %v", err))
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, types.NewError(types.ErrConstruction,
			fmt.Sprintf("failed to derive payer token account: %v", err))
	}

	destATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, types.NewError(types.ErrConstruction,
			fmt.Sprintf("failed to derive recipient token account: %v", err))
	}

	transfer := token.NewTransferInstructionBuilder().
		SetAmount(amount).
		SetSourceAccount(sourceATA).
		SetDestinationAccount(destATA).
		SetOwnerAccount(payer).
		Build()

	feePayer := b.identity.PublicKey()

	state := newTxState(feePayer, recent.Value.Blockhash)
	state.addInstruction(transfer)
	state.requireSigner(feePayer)
	state.requireSigner(payer)

	// The payer's slot is the only one left unsigned.
	if pending := state.pendingSigners(b.identity.Signer()); len(pending) != 1 || !pending[0].Equals(payer) {
		return nil, types.NewError(types.ErrConstruction,
			fmt.Sprintf("unexpected pending signer set: %v", pending))
	}

	tx, err := state.finalize(b.identity.Signer())
	if err != nil {
		return nil, types.NewError(types.ErrConstruction, err.Error())
	}

	encoded, err := tx.ToBase64()
	if err != nil {
		return nil, types.NewError(types.ErrConstruction,
			fmt.Sprintf("failed to encode transaction: %v", err))
	}

	b.log.Info("built sponsored transaction", map[string]any{
		"network":   network.String(),
		"payer":     payer.String(),
		"recipient": recipient.String(),
		"amount":    amount,
	})

	return &types.SponsoredTransaction{
		Transaction:          encoded,
		FacilitatorPublicKey: feePayer.String(),
		Blockhash:            recent.Value.Blockhash.String(),
		LastValidBlockHeight: recent.Value.LastValidBlockHeight,
	}, nil
}
