// Package consensus implements the consensus predicate (spec §4.7):
// short-range fork comparison by length/VRF/hash, long-range fork
// comparison by minimum-window density, and the VRF-backed "did I win this
// slot" decision. Grounded on original_source's fork_choice comparison
// (long-range vs short-range branch) and the teacher's core/consensus.go for
// the logging/state-transition shape.
package consensus

import (
	"github.com/jurajselep/openmina/internal/field"
	"github.com/jurajselep/openmina/internal/ledger"
	"github.com/jurajselep/openmina/internal/vrf"
	"github.com/sirupsen/logrus"
)

// State is the subset of a block's consensus_state the predicate needs
// (spec §3.4).
type State struct {
	BlockchainLength    ledger.Length
	Epoch               uint64
	MinWindowDensity    uint64
	VRFOutput           field.F
	TotalCurrency       ledger.Amount
	GlobalSlotSinceHF   uint64
	GlobalSlotSinceGen  uint64
}

// DefaultForkWindow names the long-range/short-range fork window (spec §4.7,
// glossary "Sub-window density"). Nothing in this package reads it:
// longRangeFork compares epochs only.
const DefaultForkWindow = 16

// Take reports whether candidate should replace current as the best tip
// (spec §4.7 `consensus_take`). currentHash/candidateHash break ties that
// survive every numeric criterion.
func Take(current, candidate State, currentHash, candidateHash field.F, logger *logrus.Logger) bool {
	isLongRange := longRangeFork(current, candidate)
	var result bool
	if isLongRange {
		result = longRangeTake(current, candidate, currentHash, candidateHash)
	} else {
		result = shortRangeTake(current, candidate, currentHash, candidateHash)
	}
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"long_range": isLongRange,
			"take":       result,
		}).Debug("consensus_take evaluated")
	}
	return result
}

// longRangeFork reports whether current and candidate diverge before the
// short-range comparison window (spec §4.7): any difference in their epoch
// numbers is a stand-in for "diverged before the sub-window boundary" since the full ancestry walk needed for an
// exact divergence point lives in internal/frontier, not here.
func longRangeFork(current, candidate State) bool {
	if current.Epoch != candidate.Epoch {
		return true
	}
	return false
}

func shortRangeTake(current, candidate State, currentHash, candidateHash field.F) bool {
	if candidate.BlockchainLength != current.BlockchainLength {
		return candidate.BlockchainLength > current.BlockchainLength
	}
	if !candidate.VRFOutput.Equal(current.VRFOutput) {
		return fieldLess(current.VRFOutput, candidate.VRFOutput)
	}
	return fieldLess(currentHash, candidateHash)
}

func longRangeTake(current, candidate State, currentHash, candidateHash field.F) bool {
	if candidate.MinWindowDensity != current.MinWindowDensity {
		return candidate.MinWindowDensity > current.MinWindowDensity
	}
	return shortRangeTake(current, candidate, currentHash, candidateHash)
}

func fieldLess(a, b field.F) bool {
	ab, bb := a.Bytes(), b.Bytes()
	for i := range ab {
		if ab[i] != bb[i] {
			return ab[i] < bb[i]
		}
	}
	return false
}

// SlotWinCheck bundles what BlockProducer needs to decide whether it won a
// slot (spec §4.8 step 3).
type SlotWinCheck struct {
	Message            vrf.Message
	Curve              vrf.CurveConstants
	IsSquare           func(field.F) (field.F, bool)
	StakeNumerator     uint64
	StakeDenominator   uint64
	ThresholdNumerator uint64
	ThresholdDenom     uint64
}

// EvaluateSlot runs the full VRF pipeline (hash → curve point → threshold
// comparison) spec §4.8 describes end to end.
func EvaluateSlot(c SlotWinCheck) (won bool, point vrf.Point, ok bool) {
	t := c.Message.Hash()
	point, ok = vrf.ToCurve(t, c.Curve, c.IsSquare)
	if !ok {
		return false, point, false
	}
	won = vrf.WinsSlot(point.X, c.StakeNumerator, c.StakeDenominator, c.ThresholdNumerator, c.ThresholdDenom)
	return won, point, true
}
