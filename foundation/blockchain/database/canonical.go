package database

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
)

// The canonical form of a block is the text produced by a JSON encoder with
// sorted keys, ", " and ": " separators, ASCII only output and shortest
// round trip floats that always carry a fraction or exponent. This is the
// form hashed by the proof of work, so every byte of it is part of the
// ledger format. The encoding/json package can't be used here since it
// escapes HTML characters, emits compact separators and writes integral
// floats without a fraction.

// CanonicalBytes returns the canonical serialization of the block fields
// that are covered by the hash.
func CanonicalBytes(b Block) []byte {
	trans := appendTransactions(nil, b.Transactions)
	return appendRecord(nil, b.Index, b.Nonce, b.PrevHash, b.TimeStamp, trans)
}

// ComputeHash returns the hex encoded SHA-256 digest of the canonical form.
func ComputeHash(b Block) string {
	return digest(CanonicalBytes(b))
}

// digest hashes the data and hex encodes the result.
func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// =============================================================================

// appendRecord appends the canonical record for a block. The transactions are
// provided already encoded since they don't change between nonce attempts.
func appendRecord(dst []byte, index uint64, nonce uint64, prevHash string, timeStamp float64, trans []byte) []byte {
	dst = append(dst, `{"index": `...)
	dst = strconv.AppendUint(dst, index, 10)
	dst = append(dst, `, "nonce": `...)
	dst = strconv.AppendUint(dst, nonce, 10)
	dst = append(dst, `, "previous_hash": `...)
	dst = appendString(dst, prevHash)
	dst = append(dst, `, "timestamp": `...)
	dst = appendFloat(dst, timeStamp)
	dst = append(dst, `, "transactions": `...)
	dst = append(dst, trans...)
	dst = append(dst, '}')
	return dst
}

// appendTransactions appends the canonical list of transactions.
func appendTransactions(dst []byte, trans []Transaction) []byte {
	dst = append(dst, '[')
	for i, tx := range trans {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = appendTransaction(dst, tx)
	}
	return append(dst, ']')
}

// appendTransaction appends the canonical form of a single transaction with
// the keys in sorted order.
func appendTransaction(dst []byte, tx Transaction) []byte {
	dst = append(dst, `{"actor_name": `...)
	dst = appendString(dst, tx.ActorName)
	dst = append(dst, `, "extra_info": `...)
	dst = appendString(dst, tx.Notes)
	dst = append(dst, `, "location": `...)
	dst = appendString(dst, tx.Location)
	dst = append(dst, `, "product_id": `...)
	dst = appendString(dst, tx.ItemID)
	dst = append(dst, `, "role": `...)
	dst = appendString(dst, tx.Role)
	dst = append(dst, `, "status": `...)
	dst = appendString(dst, tx.Status)
	dst = append(dst, `, "timestamp": `...)
	dst = appendFloat(dst, tx.TimeStamp)
	return append(dst, '}')
}

// =============================================================================

const hexDigits = "0123456789abcdef"

// appendString appends a quoted string. Only printable ASCII is written as
// is, everything else is escaped. Runes outside the basic multilingual plane
// are written as a surrogate pair and invalid UTF-8 comes out as \ufffd.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')

	for _, r := range s {
		switch {
		case r == '"':
			dst = append(dst, `\"`...)
		case r == '\\':
			dst = append(dst, `\\`...)
		case r == '\n':
			dst = append(dst, `\n`...)
		case r == '\r':
			dst = append(dst, `\r`...)
		case r == '\t':
			dst = append(dst, `\t`...)
		case r == '\b':
			dst = append(dst, `\b`...)
		case r == '\f':
			dst = append(dst, `\f`...)
		case r >= ' ' && r <= '~':
			dst = append(dst, byte(r))
		case r > 0xffff:
			n := r - 0x10000
			dst = appendEscape(dst, 0xd800|((n>>10)&0x3ff))
			dst = appendEscape(dst, 0xdc00|(n&0x3ff))
		default:
			dst = appendEscape(dst, r)
		}
	}

	return append(dst, '"')
}

// appendEscape appends a \uXXXX escape with lower case hex digits.
func appendEscape(dst []byte, r rune) []byte {
	return append(dst, '\\', 'u',
		hexDigits[(r>>12)&0xf],
		hexDigits[(r>>8)&0xf],
		hexDigits[(r>>4)&0xf],
		hexDigits[r&0xf],
	)
}

// appendFloat appends the shortest text that round trips to the same value.
// Fixed notation is used for decimal exponents from -4 to 15 and an integral
// value still gets a ".0" suffix.
func appendFloat(dst []byte, f float64) []byte {
	switch {
	case math.IsNaN(f):
		return append(dst, "NaN"...)
	case math.IsInf(f, 1):
		return append(dst, "Infinity"...)
	case math.IsInf(f, -1):
		return append(dst, "-Infinity"...)
	}

	if f == 0 {
		if math.Signbit(f) {
			return append(dst, "-0.0"...)
		}
		return append(dst, "0.0"...)
	}

	exp := decimalExponent(f)
	if exp < -4 || exp >= 16 {
		return strconv.AppendFloat(dst, f, 'e', -1, 64)
	}

	start := len(dst)
	dst = strconv.AppendFloat(dst, f, 'f', -1, 64)
	if bytes.IndexByte(dst[start:], '.') < 0 {
		dst = append(dst, ".0"...)
	}

	return dst
}

// decimalExponent returns the exponent of the shortest scientific notation
// of the value.
func decimalExponent(f float64) int {
	var buf [32]byte
	s := strconv.AppendFloat(buf[:0], f, 'e', -1, 64)

	i := len(s) - 1
	for i >= 0 && s[i] != 'e' {
		i--
	}

	exp, err := strconv.Atoi(string(s[i+1:]))
	if err != nil {
		return 0
	}

	return exp
}
