package utils

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// ValidateAmount checks if an amount string is a valid non-negative decimal
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ValidateAddress validates a Solana base58 address.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	// Solana addresses are base58, typically 32-44 characters
	if len(address) < 32 || len(address) > 44 {
		return fmt.Errorf("Solana address has invalid length")
	}
	if !isBase58String(address) {
		return fmt.Errorf("Solana address must be valid base58")
	}

	return nil
}

// ValidateSignature validates a Solana transaction signature string.
func ValidateSignature(signature string) error {
	if signature == "" {
		return fmt.Errorf("transaction signature cannot be empty")
	}

	// Solana transaction signatures are base58, typically 87-88 characters
	if len(signature) < 80 || len(signature) > 90 {
		return fmt.Errorf("Solana transaction signature has invalid length")
	}
	if !isBase58String(signature) {
		return fmt.Errorf("Solana transaction signature must be valid base58")
	}

	return nil
}

// Helper function to check if a string is valid base58
func isBase58String(s string) bool {
	// Base58 alphabet: 123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz
	match, _ := regexp.MatchString("^[1-9A-HJ-NP-Za-km-z]+$", s)
	return match
}
