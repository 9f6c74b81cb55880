package types

// FacilitatorError is the typed error every component reports. The Code is a
// stable machine-readable class; the Message is the human-readable reason
// surfaced to callers as invalidReason or errorReason.
type FacilitatorError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *FacilitatorError) Error() string {
	return e.Message
}

// Error codes, one per failure class.
const (
	// ErrFormat marks a payload whose shape matches no recognized encoding.
	ErrFormat = "FORMAT_ERROR"

	// ErrValidation marks fee-payer mismatch, simulation failure, or an
	// already-executed replay.
	ErrValidation = "VALIDATION_ERROR"

	// ErrNotFound marks an authorization-only signature absent on the ledger.
	ErrNotFound = "NOT_FOUND"

	// ErrUnsupportedNetwork marks an unknown network identifier.
	ErrUnsupportedNetwork = "UNSUPPORTED_NETWORK"

	// ErrBroadcast marks a transaction the ledger rejected at submission.
	ErrBroadcast = "BROADCAST_ERROR"

	// ErrTimeout marks a settlement whose polling exceeded the bound without
	// reaching a terminal confirmed state. The outcome is undecided, not
	// definitively rejected.
	ErrTimeout = "TIMEOUT_ERROR"

	// ErrConstruction marks a sponsored-transaction build failure.
	ErrConstruction = "CONSTRUCTION_ERROR"

	// ErrReplayInFlight marks a settlement attempt for a signature that is
	// already being settled by a concurrent request.
	ErrReplayInFlight = "REPLAY_IN_FLIGHT"
)

// NewError builds a FacilitatorError with the given code and message.
func NewError(code, message string) *FacilitatorError {
	return &FacilitatorError{Code: code, Message: message}
}
