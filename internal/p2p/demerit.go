package p2p

import "sync"

// OffenseKind classifies a validation failure for demerit weighting (spec
// §4.12, grounded on the error taxonomy in spec §7.1 kind 1: "on repeated
// offense, demerit or disconnect the source peer").
type OffenseKind int

const (
	OffenseMalformedMessage OffenseKind = iota
	OffenseBadSignature
	OffenseBadProof
	OffenseFrameOverLimit
	OffenseHashMismatch
	OffenseAuthMismatch
)

func (k OffenseKind) weight() int {
	switch k {
	case OffenseAuthMismatch, OffenseBadProof:
		return 10
	case OffenseBadSignature, OffenseHashMismatch:
		return 5
	case OffenseFrameOverLimit:
		return 3
	default:
		return 1
	}
}

// DefaultDemeritThreshold is the score at which RecordOffense reports that a
// peer has crossed the disconnect threshold (spec §4.12). The table itself
// neither disconnects nor blacklists the peer.
const DefaultDemeritThreshold = 20

// demeritEntry is one peer's accumulated score.
type demeritEntry struct {
	score       int
	lastOffense OffenseKind
}

// DemeritTable maps PeerId to an accumulated offense score (spec §4.12).
type DemeritTable struct {
	mu        sync.Mutex
	entries   map[PeerId]*demeritEntry
	threshold int
}

// NewDemeritTable builds an empty table using DefaultDemeritThreshold.
func NewDemeritTable() *DemeritTable {
	return &DemeritTable{entries: make(map[PeerId]*demeritEntry), threshold: DefaultDemeritThreshold}
}

// RecordOffense increments peer's score by kind's weight and reports
// whether the peer has now crossed the disconnect threshold.
func (t *DemeritTable) RecordOffense(peer PeerId, kind OffenseKind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[peer]
	if !ok {
		e = &demeritEntry{}
		t.entries[peer] = e
	}
	e.score += kind.weight()
	e.lastOffense = kind
	return e.score >= t.threshold
}

// Score returns peer's current accumulated score.
func (t *DemeritTable) Score(peer PeerId) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[peer]; ok {
		return e.score
	}
	return 0
}

// Forget clears a peer's record, e.g. after a clean disconnect.
func (t *DemeritTable) Forget(peer PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, peer)
}
