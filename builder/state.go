package builder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// txState accumulates instructions and required signers before any signature
// is produced. Required signers and collected signatures are tracked
// separately; only finalize assembles the transaction and attaches
// signatures, so no placeholder entries are ever pushed into a signature
// list.
type txState struct {
	feePayer     solana.PublicKey
	blockhash    solana.Hash
	instructions []solana.Instruction
	required     []solana.PublicKey
}

func newTxState(feePayer solana.PublicKey, blockhash solana.Hash) *txState {
	return &txState{
		feePayer:  feePayer,
		blockhash: blockhash,
	}
}

func (s *txState) addInstruction(inst solana.Instruction) {
	s.instructions = append(s.instructions, inst)
}

// requireSigner registers a public key whose signature the finished
// transaction needs. Duplicates are ignored.
func (s *txState) requireSigner(key solana.PublicKey) {
	for _, existing := range s.required {
		if existing.Equals(key) {
			return
		}
	}
	s.required = append(s.required, key)
}

// finalize assembles the transaction and signs it with whatever keys the
// provider can supply. Required signers without an available key keep an
// empty signature slot; the transaction is encodable but not broadcastable
// until those slots are filled. The fee payer's signature must be collected
// here, otherwise finalize fails.
func (s *txState) finalize(provider func(key solana.PublicKey) *solana.PrivateKey) (*solana.Transaction, error) {
	if len(s.instructions) == 0 {
		return nil, fmt.Errorf("no instructions to finalize")
	}

	tx, err := solana.NewTransaction(
		s.instructions,
		s.blockhash,
		solana.TransactionPayer(s.feePayer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble transaction: %w", err)
	}

	if _, err := tx.PartialSign(provider); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	// Slot 0 belongs to the fee payer.
	if len(tx.Signatures) == 0 || tx.Signatures[0] == (solana.Signature{}) {
		return nil, fmt.Errorf("fee payer signature was not collected")
	}

	return tx, nil
}

// pendingSigners returns the required signers the provider could not sign
// for. For a sponsored transaction this is exactly the payer.
func (s *txState) pendingSigners(provider func(key solana.PublicKey) *solana.PrivateKey) []solana.PublicKey {
	var pending []solana.PublicKey
	for _, key := range s.required {
		if provider(key) == nil {
			pending = append(pending, key)
		}
	}
	return pending
}
