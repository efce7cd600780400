package database

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain. The chain
// is always written and read as a whole document.
type Storage interface {
	Write(chainFS ChainFS) error
	Read() (ChainFS, error)
	Close() error
}

// ChainFS represents what is written to storage. This layout is shared with
// every chain_store.json file ever produced for this ledger.
type ChainFS struct {
	Chain []Block `json:"chain"`
}

// NewChainFS constructs the value to serialize to storage.
func NewChainFS(blocks []Block) ChainFS {
	chain := make([]Block, len(blocks))
	for i, block := range blocks {
		chain[i] = block.Clone()
	}

	return ChainFS{Chain: chain}
}

// Blocks returns a copy of the blocks making sure every block carries a
// non-nil set of transactions.
func (cfs ChainFS) Blocks() []Block {
	blocks := make([]Block, len(cfs.Chain))
	for i, block := range cfs.Chain {
		blocks[i] = block.Clone()
	}

	return blocks
}
