package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// GenesisPrevHash is the previous hash recorded by the first block in the
// chain since there is no block before it.
const GenesisPrevHash = "1"

// Difficulty is the number of leading hex zeros a block hash must have.
const Difficulty = 2

// =============================================================================

// Block represents a group of transactions sealed together. The JSON form of
// a block is also its storage form.
type Block struct {
	Index        uint64        `json:"index"`         // Position of the block in the chain, starting at 1.
	TimeStamp    float64       `json:"timestamp"`     // Time of the nonce attempt that solved the puzzle.
	Transactions []Transaction `json:"transactions"`  // Events sealed in this block.
	PrevHash     string        `json:"previous_hash"` // Hash of the previous block in the chain.
	Nonce        uint64        `json:"nonce"`         // Value identified to solve the hash solution.
	Hash         string        `json:"hash"`          // Digest of the canonical form of the fields above.
}

// Clone returns a copy of the block that shares no memory with the original.
func (b Block) Clone() Block {
	b.Transactions = copyTrans(b.Transactions)
	return b
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock   Block                       // Zero value when sealing the genesis block.
	Trans       []Transaction               // Pending transactions to seal.
	MaxAttempts uint64                      // Zero means no limit.
	Now         func() float64              // Clock read on every attempt, defaults to Now.
	EvHandler   func(v string, args ...any) // Optional.
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	if args.EvHandler == nil {
		args.EvHandler = func(v string, args ...any) {}
	}
	if args.Now == nil {
		args.Now = Now
	}

	// When sealing the first block there is no previous hash to link to.
	prevHash := GenesisPrevHash
	if args.PrevBlock.Index > 0 {
		prevHash = args.PrevBlock.Hash
	}

	// Construct the block to be sealed. The timestamp, nonce and hash will
	// be identified by the POW algorithm.
	nb := Block{
		Index:        args.PrevBlock.Index + 1,
		Transactions: copyTrans(args.Trans),
		PrevHash:     prevHash,
	}

	// Perform the proof of work operation.
	if err := nb.performPOW(ctx, args.MaxAttempts, args.Now, args.EvHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of finding a valid hash for the block. The
// timestamp is read again on every attempt and the one belonging to the
// accepted attempt is kept. Pointer semantics are being used since the
// nonce, timestamp and hash are being discovered.
func (b *Block) performPOW(ctx context.Context, maxAttempts uint64, now func() float64, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]", b.Index)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Index)

	// Log the transactions that are a part of this potential block.
	for _, tx := range b.Transactions {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	// The transactions are the same for every attempt so encode them once.
	// The record buffer is reused so the loop doesn't allocate.
	trans := appendTransactions(nil, b.Transactions)
	record := make([]byte, 0, len(trans)+len(b.PrevHash)+128)

	var attempts uint64
	for nonce := uint64(0); ; nonce++ {
		if maxAttempts > 0 && attempts == maxAttempts {
			ev("database: PerformPOW: MINING: GAVE UP: attempts[%d]", attempts)
			return fmt.Errorf("%w: no solution after %d attempts", ErrSealingTimeout, attempts)
		}

		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if err := ctx.Err(); err != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return fmt.Errorf("%w: %w", ErrSealingTimeout, err)
		}

		// Hash the record and check if we have solved the puzzle.
		timeStamp := now()
		record = appendRecord(record[:0], b.Index, nonce, b.PrevHash, timeStamp, trans)
		sum := sha256.Sum256(record)
		if !isSumSolved(Difficulty, sum) {
			continue
		}

		b.Nonce = nonce
		b.TimeStamp = timeStamp
		b.Hash = hex.EncodeToString(sum[:])

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.PrevHash, b.Hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// =============================================================================

// ValidateBlock takes a block and validates it to be the block that follows
// the specified previous block. The zero value for the previous block means
// this block must be the genesis block. The hash is checked against the POW
// rules but not recomputed, use VerifyHash for that. A genesis block is not
// required to be sealed since chains started by other tools hold an unsealed
// genesis block, VerifyChain holds it to the POW rules.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Index)

	nextNumber := previousBlock.Index + 1
	if b.Index != nextNumber {
		return &BlockError{Index: b.Index, Err: fmt.Errorf("this block is not the next number, got %d, exp %d", b.Index, nextNumber)}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Index)

	expPrevHash := GenesisPrevHash
	if previousBlock.Index > 0 {
		expPrevHash = previousBlock.Hash
	}
	if b.PrevHash != expPrevHash {
		return &BlockError{Index: b.Index, Err: fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.PrevHash, expPrevHash)}
	}

	if b.isGenesis() {
		return nil
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Index)

	if !isHashSolved(Difficulty, b.Hash) {
		return &BlockError{Index: b.Index, Err: fmt.Errorf("%s invalid block hash", b.Hash)}
	}

	return nil
}

// VerifyHash recomputes the digest of the block and compares it with the
// recorded hash.
func (b Block) VerifyHash() error {
	hash := ComputeHash(b)
	if hash != b.Hash {
		return &BlockError{Index: b.Index, Err: fmt.Errorf("block hash doesn't match its contents, got %s, exp %s", b.Hash, hash)}
	}
	return nil
}

// ValidateChain validates every block against the block before it.
func ValidateChain(blocks []Block, evHandler func(v string, args ...any)) error {
	var prev Block
	for _, block := range blocks {
		if err := block.ValidateBlock(prev, evHandler); err != nil {
			return err
		}
		prev = block
	}
	return nil
}

// VerifyChain validates the chain and also recomputes every block hash. Every
// block, the genesis block included, must satisfy the POW rules.
func VerifyChain(blocks []Block, evHandler func(v string, args ...any)) error {
	if len(blocks) == 0 {
		return errors.New("chain is empty")
	}

	if err := ValidateChain(blocks, evHandler); err != nil {
		return err
	}

	for _, block := range blocks {
		if !isHashSolved(Difficulty, block.Hash) {
			return &BlockError{Index: block.Index, Err: fmt.Errorf("%s invalid block hash", block.Hash)}
		}
		if err := block.VerifyHash(); err != nil {
			return err
		}
	}

	return nil
}

// isGenesis reports if the block is the first block of a chain.
func (b Block) isGenesis() bool {
	return b.Index == 1 && b.PrevHash == GenesisPrevHash
}

// =============================================================================

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	const match = "0000000000000000"

	if len(hash) != 64 {
		return false
	}

	if _, err := hex.DecodeString(hash); err != nil {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}

// isSumSolved is isHashSolved for a raw digest so the POW loop doesn't need
// to hex encode every attempt.
func isSumSolved(difficulty uint, sum [sha256.Size]byte) bool {
	for i := uint(0); i < difficulty; i++ {
		nibble := sum[i/2] >> 4
		if i%2 == 1 {
			nibble = sum[i/2] & 0x0f
		}
		if nibble != 0 {
			return false
		}
	}
	return true
}
