// Package memory implements the ability to read and write the chain to
// memory.
package memory

import (
	"sync"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
)

// Memory represents the serialization implementation for reading and storing
// the chain in memory. This implements the database.Storage interface.
type Memory struct {
	mu      sync.RWMutex
	chainFS *database.ChainFS
	writes  int
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	return &Memory{}, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes a copy of the chain and keeps it in memory.
func (m *Memory) Write(chainFS database.ChainFS) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cpy := database.NewChainFS(chainFS.Chain)
	m.chainFS = &cpy
	m.writes++

	return nil
}

// Read returns a copy of the chain that was last written.
func (m *Memory) Read() (database.ChainFS, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.chainFS == nil {
		return database.ChainFS{}, database.ErrNoChain
	}

	return database.NewChainFS(m.chainFS.Chain), nil
}

// Writes returns the number of times the chain has been written.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.writes
}
