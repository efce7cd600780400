// Package disk implements the ability to read and write the chain to a single
// JSON document on disk.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
)

// Disk represents the serialization implementation for reading and storing
// the chain in one file on disk. The file is replaced as a whole on every
// write. This implements the database.Storage interface.
type Disk struct {
	mu     sync.Mutex
	dbPath string
}

// New constructs a Disk value for use. The directory for the file is created
// if it doesn't exist.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", database.ErrStorageUnavailable, err)
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since the file is opened
// and closed on each call.
func (d *Disk) Close() error {
	return nil
}

// Path returns the location of the chain document.
func (d *Disk) Path() string {
	return d.dbPath
}

// Write stores the chain. The document is written to a temporary file in the
// same directory which is then renamed over the previous document, so a
// crash leaves either the old or the new chain on disk.
func (d *Disk) Write(chainFS database.ChainFS) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Marshal the chain for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(chainFS, "", "  ")
	if err != nil {
		return err
	}

	if err := d.writeFile(data); err != nil {
		return fmt.Errorf("%w: %w", database.ErrStorageUnavailable, err)
	}

	return nil
}

// Read loads the chain from disk. If no file exists database.ErrNoChain
// is returned.
func (d *Disk) Read() (database.ChainFS, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.dbPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.ChainFS{}, database.ErrNoChain
		}
		return database.ChainFS{}, fmt.Errorf("%w: %w", database.ErrStorageUnavailable, err)
	}

	var chainFS database.ChainFS
	if err := json.Unmarshal(data, &chainFS); err != nil {
		return database.ChainFS{}, fmt.Errorf("%w: decoding %s: %w", database.ErrInvalidChain, d.dbPath, err)
	}

	return chainFS, nil
}

// =============================================================================

// writeFile performs the write to a temp file and the rename.
func (d *Disk) writeFile(data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(d.dbPath), filepath.Base(d.dbPath)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := f.Name()

	// Remove the temp file if we don't make it to the rename.
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpPath, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, d.dbPath); err != nil {
		return err
	}
	renamed = true

	return nil
}
