// Package bolt implements the ability to read and write the chain to a bbolt
// key/value file.
package bolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
	"go.etcd.io/bbolt"
)

var (
	bucketName = []byte("ledger")
	chainKey   = []byte("chain")
)

// Bolt represents the serialization implementation for reading and storing
// the chain as a single document inside a bbolt database. This implements
// the database.Storage interface.
type Bolt struct {
	db *bbolt.DB
}

// New opens or creates the bbolt file at the specified path. The directory
// for the file is created if it doesn't exist.
func New(dbPath string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", database.ErrStorageUnavailable, err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", database.ErrStorageUnavailable, dbPath, err)
	}

	f := func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}

	if err := db.Update(f); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating bucket: %w", database.ErrStorageUnavailable, err)
	}

	return &Bolt{db: db}, nil
}

// Close releases the bbolt file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write replaces the chain document in a single transaction.
func (b *Bolt) Write(chainFS database.ChainFS) error {
	data, err := json.Marshal(chainFS)
	if err != nil {
		return err
	}

	f := func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(chainKey, data)
	}

	if err := b.db.Update(f); err != nil {
		return fmt.Errorf("%w: %w", database.ErrStorageUnavailable, err)
	}

	return nil
}

// Read loads the chain document. If nothing has been written yet
// database.ErrNoChain is returned.
func (b *Bolt) Read() (database.ChainFS, error) {
	var chainFS database.ChainFS
	var found bool

	f := func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketName).Get(chainKey)
		if data == nil {
			return nil
		}
		found = true

		// The data is only valid for the life of the transaction so it
		// needs to be decoded here.
		if err := json.Unmarshal(data, &chainFS); err != nil {
			return fmt.Errorf("%w: %w", database.ErrInvalidChain, err)
		}
		return nil
	}

	if err := b.db.View(f); err != nil {
		if errors.Is(err, database.ErrInvalidChain) {
			return database.ChainFS{}, err
		}
		return database.ChainFS{}, fmt.Errorf("%w: %w", database.ErrStorageUnavailable, err)
	}

	if !found {
		return database.ChainFS{}, database.ErrNoChain
	}

	return chainFS, nil
}
