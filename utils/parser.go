package utils

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/vitwit/x402-solana/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ParsePaymentRequirements parses and validates PaymentRequirements from JSON
func ParsePaymentRequirements(data []byte) (*types.PaymentRequirements, error) {
	var req types.PaymentRequirements

	if err := json.Unmarshal(data, &req); err != nil {
		return nil, types.NewError(types.ErrFormat,
			fmt.Sprintf("failed to parse payment requirements: %v", err))
	}

	// Validate using struct tags
	if err := validate.Struct(&req); err != nil {
		return nil, types.NewError(types.ErrFormat,
			fmt.Sprintf("validation failed: %v", err))
	}

	return &req, nil
}

// ValidateRequirements validates an already-decoded PaymentRequirements value
// with the same struct-tag rules.
func ValidateRequirements(req *types.PaymentRequirements) error {
	if req == nil {
		return types.NewError(types.ErrFormat, "payment requirements are missing")
	}

	if err := validate.Struct(req); err != nil {
		return types.NewError(types.ErrFormat,
			fmt.Sprintf("validation failed: %v", err))
	}

	return nil
}
