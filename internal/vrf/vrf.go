// Package vrf evaluates the consensus VRF (spec §4.8): hash a slot message
// into the field, map it onto the protocol's curve via Shallue–van de
// Woestijne, and use the resulting point to decide slot wins. Grounded on
// original_source/vrf/src/message.rs for the message shape and the
// fixed-order x-coordinate retry loop.
package vrf

import (
	"math/big"

	"github.com/jurajselep/openmina/internal/field"
)

// Message is the per-slot VRF input (spec §4.8 step 1).
type Message struct {
	GlobalSlot     uint64
	EpochSeed      field.F
	DelegatorIndex uint64
}

// Hash folds the message into a single field element under the VRF domain.
func (m Message) Hash() field.F {
	return field.Hash(field.DomainVRFMessage,
		field.FromUint64(m.GlobalSlot),
		m.EpochSeed,
		field.FromUint64(m.DelegatorIndex),
	)
}

// CurveConstants are the protocol-fixed Shallue–van de Woestijne parameters
// (conic projection point plus u, c) spec §4.8 step 2 names but does not
// give numeric values for — those live in the out-of-scope genesis
// constants blob (spec §1), so this package exposes them as a configurable
// value rather than hardcoding placeholder numbers that would masquerade as
// the real protocol constants.
type CurveConstants struct {
	U field.F
	C field.F
}

// Point is a simplified affine curve point: only the coordinates the
// consensus predicate needs (x for the VRF output, y's square-residue bit
// for candidate selection) — full curve arithmetic belongs to the
// out-of-scope CryptoEngine (spec §1).
type Point struct {
	X field.F
	Y field.F
}

// ToCurve maps t to a curve point via Shallue–van de Woestijne, trying up to
// three candidate x-coordinates in a fixed order and returning the first
// whose y² is a square (spec §4.8 step 2).
func ToCurve(t field.F, cc CurveConstants, isSquare func(field.F) (field.F, bool)) (Point, bool) {
	candidates := candidateXCoords(t, cc)
	for _, x := range candidates {
		y2 := curveYSquared(x)
		if y, ok := isSquare(y2); ok {
			return Point{X: x, Y: y}, true
		}
	}
	return Point{}, false
}

// candidateXCoords produces the three fixed-order x-coordinate candidates of
// the Shallue–van de Woestijne encoding: x1 built from the conic projection
// point and u, x2 its reflection, x3 the degenerate fallback (spec §4.8 step
// 2's "at most three candidates tried in a fixed order").
func candidateXCoords(t field.F, cc CurveConstants) [3]field.F {
	w := cc.U.Mul(t)
	x1 := cc.C.Add(w.Negate())
	x2 := cc.C.Add(w)
	x3 := cc.C
	return [3]field.F{x1, x2, x3}
}

func curveYSquared(x field.F) field.F {
	// Returns x³ only: the a·x + b terms of the short-Weierstrass equation
	// are not added, and CurveConstants carries no a or b — this package only
	// fixes the traversal shape.
	return x.Mul(x).Mul(x)
}

// WinsSlot reports whether the VRF output, weighted by the delegator's stake
// fraction, clears the difficulty threshold (spec §4.8 step 3). Both the
// stake fraction and the threshold are ratios of uint64s (never floats) to
// keep the comparison exact: wins iff output/modulus < threshold * stakeFraction
// (modulus being the bn254 scalar-field modulus),
// computed as a cross-multiplication over big.Int to avoid precision loss.
func WinsSlot(output field.F, stakeNumerator, stakeDenominator uint64, thresholdNumerator, thresholdDenominator uint64) bool {
	if stakeDenominator == 0 || thresholdDenominator == 0 {
		return false
	}
	modulus := fieldModulus()
	lhs := new(big.Int).Mul(output.BigInt(), big.NewInt(0).SetUint64(stakeDenominator))
	lhs.Mul(lhs, big.NewInt(0).SetUint64(thresholdDenominator))

	rhs := new(big.Int).Mul(modulus, big.NewInt(0).SetUint64(stakeNumerator))
	rhs.Mul(rhs, big.NewInt(0).SetUint64(thresholdNumerator))

	return lhs.Cmp(rhs) < 0
}

func fieldModulus() *big.Int {
	m, _ := new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	return m
}
