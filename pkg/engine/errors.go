package engine

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/multihubswap/engine/pkg/solana"
)

var (
	// ErrAddressMismatch is returned when a caller-supplied expected
	// address disagrees with the derived one. The mismatch is never
	// silently resolved in either direction.
	ErrAddressMismatch = errors.New("derived address does not match expected address")

	// ErrMissingCapability is returned when an operation requires a
	// capability that was not provided at construction.
	ErrMissingCapability = errors.New("required capability not configured")
)

// DerivationError indicates an address for the named role could not be
// derived.
type DerivationError struct {
	Role string
	Err  error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("failed to derive %s address: %v", e.Role, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

// EncodingError indicates an operation frame could not be encoded for
// the wire.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode instruction frame: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// PreflightError indicates the transaction was rejected during
// simulation, before any value could move.
type PreflightError struct {
	Reason *solana.TransactionError
	Logs   []string
}

func (e *PreflightError) Error() string {
	if e.Reason == nil {
		return "transaction rejected in simulation"
	}
	return fmt.Sprintf("transaction rejected in simulation: %v", e.Reason)
}

// ReasonCode extracts the program's custom error code from the
// simulation failure, when one was reported.
func (e *PreflightError) ReasonCode() (solana.CustomError, bool) {
	if e.Reason == nil {
		return 0, false
	}

	instructionErr := e.Reason.InstructionError()
	if instructionErr == nil {
		return 0, false
	}

	customErr := instructionErr.CustomError()
	if customErr == nil {
		return 0, false
	}

	return *customErr, true
}

// NetworkError indicates every configured endpoint failed at the
// transport level.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("all endpoints failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// InsufficientBalanceError indicates the funding source cannot cover
// the requested amount.
type InsufficientBalanceError struct {
	Required  uint64
	Available uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %d, available %d", e.Required, e.Available)
}

// AmbiguousOutcomeError indicates a sent transaction could not be
// confirmed or ruled out within the confirmation window. The attempt
// must be settled through the recovery ledger.
type AmbiguousOutcomeError struct {
	Signature solana.Signature
	AttemptId string
}

func (e *AmbiguousOutcomeError) Error() string {
	return fmt.Sprintf("transaction outcome unknown after confirmation window (attempt %s)", e.AttemptId)
}

// RecoveryError indicates an attempt could not be settled; the record
// remains in the ledger for a later resolve.
type RecoveryError struct {
	AttemptId string
	Err       error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("failed to recover attempt %s: %v", e.AttemptId, e.Err)
}

func (e *RecoveryError) Unwrap() error { return e.Err }
