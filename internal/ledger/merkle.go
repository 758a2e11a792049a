package ledger

import (
	"sync"

	"github.com/jurajselep/openmina/internal/field"
)

// Depth is the fixed binary merkle tree depth D (spec §3.3).
const Depth = 35

// Address is a D-bit path from the root to a leaf, packed into a uint64
// (Depth <= 64 so this always fits). Bit i (0 = most significant of the used
// bits) selects left(0)/right(1) at level i.
type Address struct {
	Path  uint64
	Depth uint8
}

// RootAddress is the address of the tree root (depth 0).
func RootAddress() Address { return Address{} }

// Child returns the left (bit=0) or right (bit=1) child of a.
func (a Address) Child(bit uint64) Address {
	return Address{Path: a.Path<<1 | (bit & 1), Depth: a.Depth + 1}
}

// IsLeaf reports whether a addresses a leaf (full depth reached).
func (a Address) IsLeaf() bool { return a.Depth == Depth }

// bitAt returns the branch bit chosen at tree level `level` (0-indexed from
// the root) for a full-depth leaf address.
func (a Address) bitAt(level uint8) uint64 {
	shift := Depth - 1 - level
	return (a.Path >> shift) & 1
}

// emptyHashes[d] is the canonical hash of an empty subtree of height d
// (d==0 is an empty leaf). Computed lazily and memoized once.
var (
	emptyHashesOnce sync.Once
	emptyHashes     [Depth + 1]field.F
)

func emptyHashAt(heightFromLeaf int) field.F {
	emptyHashesOnce.Do(func() {
		emptyHashes[0] = field.Hash(field.DomainProtoState) // canonical "empty account" hash
		for h := 1; h <= Depth; h++ {
			emptyHashes[h] = field.Hash(field.DomainProtoStateBody, emptyHashes[h-1], emptyHashes[h-1])
		}
	})
	return emptyHashes[heightFromLeaf]
}

// hashAccount computes the content hash of a single account leaf.
func hashAccount(a *Account) field.F {
	if a == nil {
		return emptyHashAt(0)
	}
	return field.Hash(field.DomainProtoState,
		field.FromUint64(uint64(a.Balance)),
		field.FromUint64(uint64(a.Nonce)),
		a.ReceiptChainHash,
		a.Id.PublicKey.X,
		field.FromUint64(uint64(a.Id.TokenId)),
	)
}

// combine computes the interior-node hash H(left, right) (spec §3.3 invariant 2).
func combine(left, right field.F) field.F {
	return field.Hash(field.DomainProtoStateBody, left, right)
}
