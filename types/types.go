// Package types defines the shared data model of the x402 Solana facilitator:
// payment requirements, raw and normalized payment payloads, verification
// verdicts, and settlement receipts.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// X402Version represents the version of the x402 protocol
type X402Version int

const (
	X402Version1 X402Version = 1
)

// PaymentScheme represents supported payment schemes
type PaymentScheme string

const (
	SchemeExact PaymentScheme = "exact"
)

// SupportedItem describes one network the facilitator can settle on.
type SupportedItem struct {
	X402Version          int    `json:"x402Version"`
	Scheme               string `json:"scheme"`
	Network              string `json:"network"`
	FacilitatorPaysGas   bool   `json:"facilitatorPaysGas"`
	FacilitatorPublicKey string `json:"facilitatorPublicKey"`
}

type SupportedResponse struct {
	Kinds []SupportedItem `json:"kinds"`
}

// PaymentRequirements defines what the protected-resource side accepts as
// payment. It is supplied by the caller, never by the payer, and is treated
// as immutable.
type PaymentRequirements struct {
	// Scheme of the payment protocol to use (only "exact" is supported).
	Scheme string `json:"scheme" validate:"required"`

	// Network of the blockchain to send payment on (e.g., "solana-devnet").
	Network string `json:"network" validate:"required"`

	// Maximum amount required to pay for the resource in atomic units of the
	// asset. Represented as a string because Go does not support uint256.
	MaxAmountRequired string `json:"maxAmountRequired" validate:"required"`

	// URL of the resource to pay for.
	Resource string `json:"resource,omitempty"`

	// Description of the resource being purchased.
	Description string `json:"description,omitempty"`

	// MIME type of the resource response.
	MimeType string `json:"mimeType,omitempty"`

	// Address to which the payment must be sent.
	PayTo string `json:"payTo" validate:"required"`

	// Maximum time in seconds for the resource server to respond.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds,omitempty"`

	// SPL token mint of the asset being paid.
	Asset string `json:"asset" validate:"required"`

	// Extra information about payment details specific to the scheme.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// Validate checks that the PaymentRequirements contain all required fields.
func (pr *PaymentRequirements) Validate() error {
	if pr.Scheme == "" {
		return fmt.Errorf("paymentRequirements.scheme is required")
	}

	if pr.Network == "" {
		return fmt.Errorf("paymentRequirements.network is required")
	}

	if pr.MaxAmountRequired == "" {
		return fmt.Errorf("paymentRequirements.maxAmountRequired is required")
	}

	if pr.PayTo == "" {
		return fmt.Errorf("paymentRequirements.payTo is required")
	}

	if pr.Asset == "" {
		return fmt.Errorf("paymentRequirements.asset is required")
	}

	return nil
}

// PaymentPayload is the raw payment artifact supplied by the client. The
// inner document is caller-controlled and not schema-fixed; the normalize
// package is the only place that inspects it.
type PaymentPayload struct {
	// Version of the x402 payment protocol.
	X402Version int `json:"x402Version,omitempty"`

	Scheme string `json:"scheme,omitempty"`

	Network string `json:"network"`

	// Opaque inner document. Shape varies by client.
	Payload json.RawMessage `json:"payload"`
}

// PayloadKind tags the recognized payment-payload encodings. Classification
// assigns exactly one kind per payload.
type PayloadKind string

const (
	// KindFacilitatorSponsored carries a transaction pre-built by the
	// facilitator, signed by the user, with the facilitator as fee payer.
	KindFacilitatorSponsored PayloadKind = "facilitator_sponsored"

	// KindMinimal carries only a claimed signature and an encoded transaction.
	KindMinimal PayloadKind = "minimal"

	// KindFull carries the encoded transaction plus the transfer details the
	// client asserts it contains.
	KindFull PayloadKind = "full"

	// KindAuthorizationOnly references a payment the payer already broadcast
	// independently; there is no embedded transaction.
	KindAuthorizationOnly PayloadKind = "authorization_only"
)

// NormalizedTransaction is the canonical record extracted from a raw payment
// payload. Exactly one Kind applies; downstream components switch on Kind and
// never re-inspect raw fields.
type NormalizedTransaction struct {
	Kind PayloadKind `json:"kind"`

	// Claimed transaction signature. For facilitator_sponsored this is the
	// user's authorization signature.
	Signature string `json:"signature,omitempty"`

	// Base64-encoded wire transaction. For facilitator_sponsored this is the
	// facilitator-built transaction; unset for authorization_only.
	Transaction string `json:"transaction,omitempty"`

	// Base58 public key of the user, facilitator_sponsored only.
	UserPublicKey string `json:"userPublicKey,omitempty"`

	Payer     string `json:"payer,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Mint      string `json:"mint,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Blockhash string `json:"blockhash,omitempty"`
	Memo      string `json:"memo,omitempty"`
}

// ConfirmationStatus is the ledger's tiered assurance level for a submitted
// transaction.
type ConfirmationStatus string

const (
	ConfirmationProcessed ConfirmationStatus = "processed"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationFinalized ConfirmationStatus = "finalized"
)

// Terminal reports whether the status is a terminal confirmation state.
func (c ConfirmationStatus) Terminal() bool {
	return c == ConfirmationConfirmed || c == ConfirmationFinalized
}

// SettlementReceipt records the outcome of one settlement attempt. It is
// produced once and never mutated afterward. Slot, BlockTime and FeesPaid are
// best-effort enrichments; their absence does not invalidate an otherwise
// confirmed receipt.
type SettlementReceipt struct {
	Signature          string             `json:"signature"`
	Confirmed          bool               `json:"confirmed"`
	ConfirmationStatus ConfirmationStatus `json:"confirmationStatus"`
	Slot               uint64             `json:"slot,omitempty"`
	BlockTime          *time.Time         `json:"blockTime,omitempty"`
	FeesPaid           *uint64            `json:"feesPaid,omitempty"`
}

// VerificationResult contains the verdict of payment verification.
type VerificationResult struct {
	IsValid                   bool   `json:"isValid"`
	InvalidReason             string `json:"invalidReason,omitempty"`
	Payer                     string `json:"payer,omitempty"`
	GasSponsoredByFacilitator bool   `json:"gasSponsoredByFacilitator"`
}

// SettlementResult contains the outcome of payment settlement as reported to
// the caller. Receipt is present whenever a signature is known, including on
// timeout, so the caller can re-query the attempt.
type SettlementResult struct {
	Success      bool               `json:"success"`
	Receipt      *SettlementReceipt `json:"receipt,omitempty"`
	Network      string             `json:"network,omitempty"`
	Payer        string             `json:"payer,omitempty"`
	GasSponsored bool               `json:"gasSponsoredByFacilitator"`
	ErrorCode    string             `json:"errorCode,omitempty"`
	ErrorReason  string             `json:"errorReason,omitempty"`
}

// SponsoredTransaction is a partially signed transaction built by the
// facilitator for a payer who does not pay network fees. It is not yet
// broadcastable: the payer's signature slot is still pending.
type SponsoredTransaction struct {
	// Base64 encoding of the wire transaction, facilitator-signed only.
	Transaction string `json:"transaction"`

	FacilitatorPublicKey string `json:"facilitatorPublicKey"`
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight,omitempty"`
}
