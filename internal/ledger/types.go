// Package ledger implements the account model and masked merkle ledger
// (spec §3.2–3.3): bounded integer newtypes, the Account record, and the
// Mask/BaseLedger overlay scheme.
package ledger

import (
	"errors"
	"fmt"

	"github.com/jurajselep/openmina/internal/field"
)

// ErrOverflow is returned by checked arithmetic on the bounded newtypes below.
var ErrOverflow = errors.New("ledger: arithmetic overflow")

// Balance is a saturating/overflow-checked unsigned integer newtype (spec §3.1).
type Balance uint64

// Amount is the newtype used for transfers; distinct from Balance so the two
// domains are never implicitly confused.
type Amount uint64

// Fee is the newtype used for transaction fees.
type Fee uint64

// Nonce is a strictly-increasing per-account sequence counter.
type Nonce uint64

// Slot identifies a position in the protocol's global slot timeline.
type Slot uint64

// Length counts blocks (chain length, window density, …).
type Length uint64

// AddBalance returns b+a, or ErrOverflow on wraparound.
func AddBalance(b Balance, a Amount) (Balance, error) {
	sum := uint64(b) + uint64(a)
	if sum < uint64(b) {
		return 0, ErrOverflow
	}
	return Balance(sum), nil
}

// SubBalance returns b-a, or ErrOverflow if a > b.
func SubBalance(b Balance, a Amount) (Balance, error) {
	if uint64(a) > uint64(b) {
		return 0, ErrOverflow
	}
	return Balance(uint64(b) - uint64(a)), nil
}

// Sign is the polarity of a Signed[T] value.
type Sign int8

const (
	Pos Sign = 1
	Neg Sign = -1
)

// Signed pairs a magnitude with a polarity (spec §3.1). The zero value is
// canonical +0; Negate and Add preserve that canonicalization.
type Signed[T ~uint64] struct {
	Magnitude T
	Sign      Sign
}

// NewSigned builds a canonicalized Signed value: magnitude zero is always +0.
func NewSigned[T ~uint64](mag T, sign Sign) Signed[T] {
	if mag == 0 {
		sign = Pos
	}
	return Signed[T]{Magnitude: mag, Sign: sign}
}

// Negate returns -s, canonicalizing zero back to +0.
func (s Signed[T]) Negate() Signed[T] {
	if s.Magnitude == 0 {
		return Signed[T]{Sign: Pos}
	}
	sign := Pos
	if s.Sign == Pos {
		sign = Neg
	}
	return Signed[T]{Magnitude: s.Magnitude, Sign: sign}
}

// Add returns a checked a+b, reporting ErrOverflow if the magnitude would
// wrap a uint64.
func (a Signed[T]) Add(b Signed[T]) (Signed[T], error) {
	if a.Sign == b.Sign {
		sum := uint64(a.Magnitude) + uint64(b.Magnitude)
		if sum < uint64(a.Magnitude) {
			return Signed[T]{}, ErrOverflow
		}
		return NewSigned(T(sum), a.Sign), nil
	}
	// opposite signs: subtract the smaller magnitude from the larger,
	// keeping the sign of the larger operand.
	if a.Magnitude >= b.Magnitude {
		return NewSigned(a.Magnitude-b.Magnitude, a.Sign), nil
	}
	return NewSigned(b.Magnitude-a.Magnitude, b.Sign), nil
}

// PublicKey is a compressed curve point: an x-coordinate field element plus
// the parity bit needed to recover y on decompression (spec §3.1).
type PublicKey struct {
	X     field.F
	IsOdd bool
}

func (p PublicKey) String() string {
	parity := "even"
	if p.IsOdd {
		parity = "odd"
	}
	return fmt.Sprintf("pk(%s,%s)", p.X.String(), parity)
}

// Less gives PublicKey a total lexicographic order over its x-coordinate,
// breaking ties on parity (odd > even) to match AccountId's ordering (spec §3.1).
func (p PublicKey) Less(o PublicKey) bool {
	pb, ob := p.X.Bytes(), o.X.Bytes()
	for i := range pb {
		if pb[i] != ob[i] {
			return pb[i] < ob[i]
		}
	}
	if p.IsOdd == o.IsOdd {
		return false
	}
	return !p.IsOdd && o.IsOdd
}

// TokenId identifies a custom token; TokenIdDefault is the native MINA token.
type TokenId uint64

const TokenIdDefault TokenId = 1

// AccountId is (PublicKey, TokenId) with total ordering by (PublicKey lex,
// TokenId) (spec §3.1).
type AccountId struct {
	PublicKey PublicKey
	TokenId   TokenId
}

// Less orders AccountIds first by public key, then by token id.
func (id AccountId) Less(o AccountId) bool {
	if id.PublicKey.Less(o.PublicKey) {
		return true
	}
	if o.PublicKey.Less(id.PublicKey) {
		return false
	}
	return id.TokenId < o.TokenId
}

func (id AccountId) String() string {
	return fmt.Sprintf("%s/%d", id.PublicKey.String(), id.TokenId)
}
