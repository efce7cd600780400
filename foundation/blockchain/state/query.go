package state

import (
	"slices"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// =============================================================================

// HistoryEntry is a transaction together with the block that sealed it.
type HistoryEntry struct {
	database.Transaction
	BlockIndex     uint64  `json:"_block_index"`
	BlockHash      string  `json:"_block_hash"`
	BlockTimeStamp float64 `json:"_block_timestamp"`
}

// FlatEntry is a transaction together with the position of its block.
type FlatEntry struct {
	database.Transaction
	BlockIndex     uint64  `json:"block_index"`
	BlockTimeStamp float64 `json:"block_timestamp"`
}

// =============================================================================

// QueryHistory returns every transaction recorded for the item. The entries
// are ordered by the transaction timestamp, entries with equal timestamps
// keep their chain order. An empty slice is returned if nothing matches.
func (s *State) QueryHistory(itemID string) []HistoryEntry {
	history := []HistoryEntry{}

	s.db.ForEach(func(block database.Block) bool {
		for _, tx := range block.Transactions {
			if tx.ItemID != itemID {
				continue
			}

			entry := HistoryEntry{
				Transaction:    tx,
				BlockIndex:     block.Index,
				BlockHash:      block.Hash,
				BlockTimeStamp: block.TimeStamp,
			}
			history = append(history, entry)
		}
		return true
	})

	slices.SortStableFunc(history, func(a, b HistoryEntry) int {
		switch {
		case a.TimeStamp < b.TimeStamp:
			return -1
		case a.TimeStamp > b.TimeStamp:
			return 1
		}
		return 0
	})

	return history
}

// QueryFlatten returns every transaction in the chain in chain order and
// then in block order.
func (s *State) QueryFlatten() []FlatEntry {
	entries := []FlatEntry{}

	s.db.ForEach(func(block database.Block) bool {
		for _, tx := range block.Transactions {
			entry := FlatEntry{
				Transaction:    tx,
				BlockIndex:     block.Index,
				BlockTimeStamp: block.TimeStamp,
			}
			entries = append(entries, entry)
		}
		return true
	})

	return entries
}

// QueryRawChain returns a copy of every block in the chain as it is stored.
func (s *State) QueryRawChain() []database.Block {
	return s.db.Blocks()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
// QueryLatest can be used for either value.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	latest := s.db.LatestBlock().Index

	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest || to > latest {
		to = latest
	}
	if from == 0 {
		from = 1
	}

	out := []database.Block{}
	s.db.ForEach(func(block database.Block) bool {
		if block.Index > to {
			return false
		}
		if block.Index >= from {
			out = append(out, block.Clone())
		}
		return true
	})

	return out
}

// QueryPendingCount returns the number of transactions waiting to be sealed.
func (s *State) QueryPendingCount() int {
	return s.db.PendingCount()
}

// Verify checks the chain rules for every block and recomputes every block
// hash from its contents.
func (s *State) Verify() error {
	return database.VerifyChain(s.db.Blocks(), s.evHandler)
}
