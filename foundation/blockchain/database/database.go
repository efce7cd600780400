// Package database handles all the lower level support for maintaining the
// ledger: the event and block model, the proof of work that seals blocks and
// the chain of sealed blocks with its buffer of pending transactions.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Config represents the values required to construct a database.
type Config struct {
	Storage     Storage
	MaxAttempts uint64 // Limit on nonce attempts per block, zero means no limit.
	EvHandler   func(v string, args ...any)
}

// Database manages the chain of sealed blocks and the buffer of transactions
// waiting to be sealed. Writers are serialized behind a mutex. Readers work
// against an immutable snapshot of the chain and never wait on a seal.
type Database struct {
	mu          sync.Mutex
	pending     []Transaction
	dirty       bool
	maxAttempts uint64
	evHandler   func(v string, args ...any)

	chain   atomic.Pointer[[]Block]
	storage Storage
}

// New constructs a database and loads the chain from storage if one has been
// persisted. A persisted chain that breaks the chain rules is rejected as a
// whole. An empty database needs a call to Genesis before it's used.
func New(cfg Config) (*Database, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	db := Database{
		maxAttempts: cfg.MaxAttempts,
		evHandler:   ev,
		storage:     cfg.Storage,
	}

	chainFS, err := cfg.Storage.Read()
	switch {
	case errors.Is(err, ErrNoChain):
		ev("database: New: no chain in storage")

	case err != nil:
		return nil, err

	default:
		blocks := chainFS.Blocks()
		if err := ValidateChain(blocks, ev); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidChain, err)
		}
		db.chain.Store(&blocks)
		ev("database: New: loaded chain: blocks[%d]", len(blocks))
	}

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// =============================================================================

// Genesis seals the first block of the chain from an empty buffer and writes
// the chain to storage.
func (db *Database) Genesis(ctx context.Context) (Block, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.snapshot()) > 0 {
		return Block{}, ErrChainExists
	}

	db.pending = nil

	return db.sealPending(ctx)
}

// Submit adds the transaction to the pending buffer, seals the buffer into a
// new block, appends the block to the chain and writes the chain to storage.
// When sealing fails the buffer is left as it was before the call. When the
// write fails the block stays in the chain and is returned together with an
// error that wraps ErrStorageUnavailable.
func (db *Database) Submit(ctx context.Context, tx Transaction) (Block, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.pending = append(db.pending, tx)

	return db.sealPending(ctx)
}

// Flush writes the chain to storage if a previous write failed.
func (db *Database) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.dirty {
		return nil
	}

	return db.write()
}

// =============================================================================

// TipHash returns the hash of the latest block or the genesis previous hash
// when the chain is empty.
func (db *Database) TipHash() string {
	blocks := db.snapshot()
	if len(blocks) == 0 {
		return GenesisPrevHash
	}

	return blocks[len(blocks)-1].Hash
}

// LatestBlock returns a copy of the latest block. The zero value is returned
// when the chain is empty.
func (db *Database) LatestBlock() Block {
	blocks := db.snapshot()
	if len(blocks) == 0 {
		return Block{}
	}

	return blocks[len(blocks)-1].Clone()
}

// Blocks returns a copy of every block in the chain.
func (db *Database) Blocks() []Block {
	blocks := db.snapshot()

	out := make([]Block, len(blocks))
	for i, block := range blocks {
		out[i] = block.Clone()
	}

	return out
}

// ForEach calls the function for each block in chain order until the function
// returns false. The blocks are shared with the chain and must not be changed.
func (db *Database) ForEach(fn func(block Block) bool) {
	for _, block := range db.snapshot() {
		if !fn(block) {
			return
		}
	}
}

// PendingCount returns the number of transactions waiting to be sealed.
func (db *Database) PendingCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.pending)
}

// IsDirty reports if the chain in memory is ahead of the chain in storage.
func (db *Database) IsDirty() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.dirty
}

// =============================================================================

// snapshot returns the current chain. Blocks are never changed once they are
// appended so the slice can be read without holding the mutex.
func (db *Database) snapshot() []Block {
	blocks := db.chain.Load()
	if blocks == nil {
		return nil
	}

	return *blocks
}

// sealPending performs the POW over the pending buffer. This function must be
// called while holding the mutex.
func (db *Database) sealPending(ctx context.Context) (Block, error) {
	blocks := db.snapshot()

	var prevBlock Block
	if len(blocks) > 0 {
		prevBlock = blocks[len(blocks)-1]
	}

	block, err := POW(ctx, POWArgs{
		PrevBlock:   prevBlock,
		Trans:       db.pending,
		MaxAttempts: db.maxAttempts,
		EvHandler:   db.evHandler,
	})
	if err != nil {
		if len(db.pending) > 0 {
			db.pending = db.pending[:len(db.pending)-1]
		}
		return Block{}, err
	}

	// Readers holding the previous snapshot only see up to their length so
	// appending to the shared backing array is safe.
	next := append(blocks, block)
	db.chain.Store(&next)
	db.pending = nil

	db.evHandler("database: sealPending: appended: blk[%d]: hash[%s]", block.Index, block.Hash)

	if err := db.write(); err != nil {
		return block.Clone(), err
	}

	return block.Clone(), nil
}

// write stores the whole chain. This function must be called while holding
// the mutex.
func (db *Database) write() error {
	if err := db.storage.Write(NewChainFS(db.snapshot())); err != nil {
		db.dirty = true
		db.evHandler("database: write: WARNING: chain not persisted: %s", err)

		if !errors.Is(err, ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		return err
	}

	db.dirty = false
	return nil
}
