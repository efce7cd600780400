package database

import (
	"errors"
	"fmt"
)

// Set of error kinds the chain engine can return. Callers should check for
// them with errors.Is since they are usually wrapped with more context.
var (
	// ErrInvalidInput is returned when a transaction can't be constructed
	// from the provided values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable is returned when the persisted chain can't be
	// read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSealingTimeout is returned when the proof of work search is stopped
	// before a solution was found.
	ErrSealingTimeout = errors.New("sealing timeout")

	// ErrNoChain is returned by storage when nothing has been persisted yet.
	ErrNoChain = errors.New("no chain persisted")

	// ErrInvalidChain is returned when a persisted chain breaks the chain
	// rules and can't be accepted.
	ErrInvalidChain = errors.New("invalid chain")

	// ErrChainExists is returned when a genesis block is requested for a
	// chain that already has blocks.
	ErrChainExists = errors.New("chain already has a genesis block")
)

// =============================================================================

// BlockError represents a rule violation found on a specific block.
type BlockError struct {
	Index uint64
	Err   error
}

// Error implements the error interface.
func (be *BlockError) Error() string {
	return fmt.Sprintf("block %d: %s", be.Index, be.Err)
}

// Unwrap provides support for errors.Is and errors.As.
func (be *BlockError) Unwrap() error {
	return be.Err
}

// GetBlockError returns the block error if one exists in the chain of errors.
func GetBlockError(err error) *BlockError {
	var be *BlockError
	if !errors.As(err, &be) {
		return nil
	}
	return be
}
