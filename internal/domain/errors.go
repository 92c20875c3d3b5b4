package domain

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNotConnected means no ledger client or signer is available. Fatal for the operation.
	ErrNotConnected = errors.New("ledger not connected")
	// ErrReadFailure marks a failed or timed-out ledger read.
	ErrReadFailure = errors.New("ledger read failed")
	// ErrAssetIneligible marks an asset without valid contract addresses.
	ErrAssetIneligible = errors.New("asset not tokenized")
	// ErrInvalidHolder marks a malformed holder address.
	ErrInvalidHolder = errors.New("invalid holder address")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSaleInactive        = errors.New("sale is not active")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAlreadyClaimed      = errors.New("distribution already claimed")
	ErrNothingToClaim      = errors.New("nothing to claim")

	// ErrIntegrityMismatch marks ledger state that contradicts what was intended or is internally inconsistent.
	// It must not be retried automatically.
	ErrIntegrityMismatch = errors.New("integrity mismatch")
)

// ValidationError is a pre-flight rejection. Nothing was submitted to the ledger.
type ValidationError struct {
	Kind   error
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Reject builds a ValidationError.
func Reject(kind error, format string, args ...any) error {
	return &ValidationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// IntegrityError reports a ledger value that differs from the expected one.
type IntegrityError struct {
	Field string
	Want  *big.Int
	Got   *big.Int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: %s is %s, expected %s", ErrIntegrityMismatch, e.Field, e.Got, e.Want)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrityMismatch }

// TxStage tells how far a transaction got before failing.
type TxStage string

const (
	// TxStageSubmit: the transaction was not accepted; nothing happened.
	TxStageSubmit TxStage = "submit"
	// TxStageConfirm: the transaction was sent but its outcome is unknown or it reverted.
	TxStageConfirm TxStage = "confirm"
)

// TxError is a write-path failure after validation passed.
type TxError struct {
	Stage TxStage
	Hash  string
	Err   error
}

func (e *TxError) Error() string {
	if e.Hash == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed for tx %s: %v", e.Stage, e.Hash, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }
