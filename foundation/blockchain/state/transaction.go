package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
)

// SubmitTransaction seals the transaction into a new block and persists the
// chain. If the block was sealed but storage failed, the block is returned
// together with an error that wraps database.ErrStorageUnavailable. The
// block is part of the chain in that case.
func (s *State) SubmitTransaction(ctx context.Context, tx database.Transaction) (database.Block, error) {
	s.evHandler("state: SubmitTransaction: started: tx[%s]", tx)
	defer s.evHandler("state: SubmitTransaction: completed")

	// Apply the configured seal timeout on top of the caller's context.
	if s.sealTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sealTimeout)
		defer cancel()
	}

	block, err := s.db.Submit(ctx, tx)
	if err != nil {
		if !errors.Is(err, database.ErrStorageUnavailable) {
			return database.Block{}, err
		}

		s.evHandler("state: SubmitTransaction: WARNING: blk[%d] sealed but not persisted: %s", block.Index, err)
	}

	// Send an event about this new block.
	s.blockEvent(block)

	return block, err
}

// Flush writes the chain to storage if an earlier write failed.
func (s *State) Flush() error {
	return s.db.Flush()
}

// =============================================================================

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: %s`, string(blockJSON))
}
