// Package storage provides access to the different storage implementations
// the ledger can persist its chain to.
package storage

import (
	"fmt"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
	"github.com/ardanlabs/provenance/foundation/blockchain/storage/bolt"
	"github.com/ardanlabs/provenance/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/provenance/foundation/blockchain/storage/memory"
)

// Set of storage implementations that can be opened.
const (
	Disk   = "disk"
	Bolt   = "bolt"
	Memory = "memory"
)

// Open constructs the named storage implementation. The path is ignored by
// the memory implementation.
func Open(kind string, dbPath string) (database.Storage, error) {
	switch kind {
	case Disk:
		return disk.New(dbPath)

	case Bolt:
		return bolt.New(dbPath)

	case Memory:
		return memory.New()
	}

	return nil, fmt.Errorf("unknown storage %q, use %s, %s or %s", kind, Disk, Bolt, Memory)
}
