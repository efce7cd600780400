package state

import (
	"github.com/ardanlabs/provenance/foundation/blockchain/database"
)

// RetrieveTipHash returns the hash of the latest block in the chain.
func (s *State) RetrieveTipHash() string {
	return s.db.TipHash()
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// RetrieveIsDirty reports if sealed blocks are still waiting to be persisted.
func (s *State) RetrieveIsDirty() bool {
	return s.db.IsDirty()
}
