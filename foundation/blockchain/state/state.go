// Package state is the core API for the ledger and implements all the
// business rules and processing.
package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
)

// EventHandler defines a function that is called when events
// occur in the processing of sealing and persisting blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Storage     database.Storage
	MaxAttempts uint64        // Limit on nonce attempts per block, zero means no limit.
	SealTimeout time.Duration // Limit on the time spent sealing a block, zero means no limit.
	EvHandler   EventHandler
}

// State manages the ledger database.
type State struct {
	sealTimeout time.Duration
	evHandler   EventHandler

	db *database.Database
}

// New constructs the ledger. The chain is loaded from storage when one has
// been persisted, otherwise a genesis block is sealed and persisted.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Access the storage for the ledger and validate what was persisted.
	db, err := database.New(database.Config{
		Storage:     cfg.Storage,
		MaxAttempts: cfg.MaxAttempts,
		EvHandler:   ev,
	})
	if err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the ledger.
	state := State{
		sealTimeout: cfg.SealTimeout,
		evHandler:   ev,
		db:          db,
	}

	// A new ledger always starts with a genesis block. If the genesis block
	// can't be persisted there is no ledger to run.
	if db.LatestBlock().Index == 0 {
		ev("state: New: sealing genesis block")

		ctx, cancel := state.sealContext()
		defer cancel()

		block, err := db.Genesis(ctx)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating genesis block: %w", err)
		}

		state.blockEvent(block)
	}

	return &state, nil
}

// Shutdown cleanly brings the ledger down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Give storage one more chance if the last write failed.
	if err := s.db.Flush(); err != nil {
		s.evHandler("state: shutdown: WARNING: %s", err)
	}

	return s.db.Close()
}

// =============================================================================

// sealContext applies the configured seal timeout.
func (s *State) sealContext() (context.Context, context.CancelFunc) {
	if s.sealTimeout <= 0 {
		return context.WithCancel(context.Background())
	}

	return context.WithTimeout(context.Background(), s.sealTimeout)
}
