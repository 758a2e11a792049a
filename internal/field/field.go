// Package field wraps the prime-field scalar type used throughout the kernel
// as a content-addressing hash and as the VRF's curve-coordinate substrate.
// The real Poseidon/Kimchi engine is out of scope (spec §1); this package
// stands in for its `hash_field` contract using a real elliptic-curve field
// rather than a hand-rolled one, so the rest of the tree has something
// concrete to build on.
package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Domain tags every hash call so hashes produced under different domains are
// never structurally confusable (spec §6.2).
type Domain string

const (
	DomainProtoState          Domain = "MINA_PROTO_STATE"
	DomainProtoStateBody      Domain = "MINA_PROTO_STATE_BODY"
	DomainAccountUpdateCons   Domain = "MINA_ACCOUNT_UPDATE_CONS"
	DomainAccountUpdateNode   Domain = "MINA_ACCOUNT_UPDATE_NODE"
	DomainAccountUpdateStack  Domain = "MINA_ACCOUNT_UPDATE_STACK_FRAME"
	DomainZkappEvent          Domain = "MINA_ZKAPP_EVENT"
	DomainZkappEvents         Domain = "MINA_ZKAPP_EVENTS"
	DomainZkappSeqEvents      Domain = "MINA_ZKAPP_SEQ_EVENTS"
	DomainZkappMemo           Domain = "MINA_ZKAPP_MEMO"
	DomainReceiptChain        Domain = "CODA_RECEIPT_UC"
	DomainVRFMessage          Domain = "MINA_VRF_MESSAGE"
)

// F is a 256-bit prime-field scalar (spec §3.1). It is a thin value type over
// gnark-crypto's bn254 scalar field; equality, +, x and hashing are the only
// operations the kernel needs.
type F struct {
	inner fr.Element
}

// Zero is the additive identity.
func Zero() F { return F{} }

// FromUint64 lifts a small integer into the field.
func FromUint64(v uint64) F {
	var f F
	f.inner.SetUint64(v)
	return f
}

// FromBigInt reduces an arbitrary-precision integer modulo the field order.
func FromBigInt(v *big.Int) F {
	var f F
	f.inner.SetBigInt(v)
	return f
}

// FromBytes reduces a big-endian byte string modulo the field order.
func FromBytes(b []byte) F {
	return FromBigInt(new(big.Int).SetBytes(b))
}

// Add returns a+b.
func (a F) Add(b F) F {
	var out F
	out.inner.Add(&a.inner, &b.inner)
	return out
}

// Mul returns a*b.
func (a F) Mul(b F) F {
	var out F
	out.inner.Mul(&a.inner, &b.inner)
	return out
}

// Negate returns -a.
func (a F) Negate() F {
	var out F
	out.inner.Neg(&a.inner)
	return out
}

// Equal reports whether a and b denote the same field element.
func (a F) Equal(b F) bool {
	return a.inner.Equal(&b.inner)
}

// IsZero reports whether a is the additive identity.
func (a F) IsZero() bool {
	return a.inner.IsZero()
}

// Bytes returns the canonical big-endian encoding, suitable for use as a map
// key or content address.
func (a F) Bytes() [32]byte {
	return a.inner.Bytes()
}

// BigInt returns the element's integer representative in [0, modulus).
func (a F) BigInt() *big.Int {
	var out big.Int
	a.inner.BigInt(&out)
	return &out
}

func (a F) String() string {
	return a.inner.String()
}

// Hash folds elems under domain using repeated field multiplication-by-domain
// mixing. It is deliberately simple (not a faithful Poseidon permutation) —
// the real sponge lives in the out-of-scope CryptoEngine (spec §1); this is
// the placeholder the rest of the kernel treats as if it were hash_field.
func Hash(domain Domain, elems ...F) F {
	acc := domainSeed(domain)
	for _, e := range elems {
		acc = acc.Mul(domainMixer).Add(e)
	}
	return acc
}

var domainMixer = FromUint64(0x100000001b3)

func domainSeed(d Domain) F {
	var acc F
	acc.inner.SetUint64(14695981039346656037)
	for _, b := range []byte(d) {
		acc.inner.MulAssign(&domainMixer.inner)
		var bf fr.Element
		bf.SetUint64(uint64(b))
		acc.inner.Add(&acc.inner, &bf)
	}
	return acc
}
