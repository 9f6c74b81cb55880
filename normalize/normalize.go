// Package normalize classifies raw payment payloads into the fixed set of
// recognized encodings and extracts a canonical record. It is pure: no I/O,
// deterministic output for a given input.
package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vitwit/x402-solana/types"
)

// Normalize inspects field presence on the payload's inner document in a
// fixed priority order (facilitator_sponsored, minimal, full,
// authorization_only) and returns the canonical record for the first matching
// shape. A payload matching no shape yields a FORMAT_ERROR whose message
// enumerates the fields actually present; that message is part of the
// observable contract.
func Normalize(payload *types.PaymentPayload) (*types.NormalizedTransaction, error) {
	if payload == nil || len(payload.Payload) == 0 {
		return nil, types.NewError(types.ErrFormat, "payment payload is missing")
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload.Payload, &doc); err != nil {
		return nil, types.NewError(types.ErrFormat,
			fmt.Sprintf("payment payload is not a JSON object: %v", err))
	}

	userSignature := stringField(doc, "userSignature")
	facilitatorTx := stringField(doc, "facilitatorTransaction")
	userPublicKey := stringField(doc, "userPublicKey")
	signature := stringField(doc, "signature")
	transaction := stringField(doc, "transaction")
	payer := stringField(doc, "payer")

	switch {
	case userSignature != "" && facilitatorTx != "" && userPublicKey != "":
		return &types.NormalizedTransaction{
			Kind:          types.KindFacilitatorSponsored,
			Signature:     userSignature,
			Transaction:   facilitatorTx,
			UserPublicKey: userPublicKey,
		}, nil

	// A document carrying a payer field is never minimal; without this the
	// full shape would be unreachable behind minimal in the priority order.
	case signature != "" && transaction != "" && payer == "":
		return &types.NormalizedTransaction{
			Kind:        types.KindMinimal,
			Signature:   signature,
			Transaction: transaction,
		}, nil

	case signature != "" && transaction != "" && payer != "":
		return &types.NormalizedTransaction{
			Kind:        types.KindFull,
			Signature:   signature,
			Transaction: transaction,
			Payer:       payer,
			Amount:      stringField(doc, "amount"),
			Mint:        stringField(doc, "mint"),
			Recipient:   stringField(doc, "recipient"),
			Blockhash:   stringField(doc, "blockhash"),
			Memo:        stringField(doc, "memo"),
		}, nil

	case signature != "" && payer != "" && transaction == "":
		return &types.NormalizedTransaction{
			Kind:      types.KindAuthorizationOnly,
			Signature: signature,
			Payer:     payer,
			Recipient: stringField(doc, "recipient"),
			Amount:    stringField(doc, "amount"),
			Memo:      stringField(doc, "memo"),
		}, nil
	}

	return nil, types.NewError(types.ErrFormat,
		fmt.Sprintf("Unrecognized payload format. Available fields: %s", presentFields(doc)))
}

// stringField extracts a non-empty string field, tolerating numeric values
// for amount-like fields supplied without quotes.
func stringField(doc map[string]json.RawMessage, name string) string {
	raw, ok := doc[name]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}

func presentFields(doc map[string]json.RawMessage) string {
	fields := make([]string, 0, len(doc))
	for name := range doc {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return strings.Join(fields, ", ")
}
