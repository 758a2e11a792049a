package snarkpool

import (
	"testing"

	"github.com/jurajselep/openmina/internal/field"
)

func TestAcceptInfoRejectsWorseCandidate(t *testing.T) {
	tbl := NewCandidateTable()
	job := JobId{Left: field.FromUint64(1), Right: field.FromUint64(2)}

	if !tbl.AcceptInfo(Candidate{Peer: "A", Job: job, Fee: 10}, TieBreaker) {
		t.Fatalf("expected first candidate to be accepted")
	}
	if tbl.AcceptInfo(Candidate{Peer: "A", Job: job, Fee: 20}, TieBreaker) {
		t.Fatalf("a higher-fee candidate at the same status level must not replace the stored one")
	}
	if !tbl.AcceptInfo(Candidate{Peer: "A", Job: job, Fee: 5}, TieBreaker) {
		t.Fatalf("a strictly cheaper candidate must be accepted")
	}
	c, _ := tbl.Get("A", job)
	if c.Fee != 5 {
		t.Fatalf("expected stored fee 5, got %d", c.Fee)
	}
}

func TestPrunePeerRemovesAllItsCandidates(t *testing.T) {
	tbl := NewCandidateTable()
	jobA := JobId{Left: field.FromUint64(1), Right: field.FromUint64(2)}
	jobB := JobId{Left: field.FromUint64(3), Right: field.FromUint64(4)}
	tbl.AcceptInfo(Candidate{Peer: "A", Job: jobA, Fee: 1}, TieBreaker)
	tbl.AcceptInfo(Candidate{Peer: "A", Job: jobB, Fee: 1}, TieBreaker)
	tbl.AcceptInfo(Candidate{Peer: "B", Job: jobA, Fee: 1}, TieBreaker)

	tbl.PrunePeer("A")

	if _, ok := tbl.Get("A", jobA); ok {
		t.Fatalf("expected A's candidates to be pruned")
	}
	if _, ok := tbl.Get("A", jobB); ok {
		t.Fatalf("expected A's candidates to be pruned")
	}
	if _, ok := tbl.Get("B", jobA); !ok {
		t.Fatalf("expected B's candidate to survive the prune")
	}
}

// TestCandidateSelection exercises scenario S4: two peers advertise equal-fee
// snarks for the same job; the pool keeps exactly the one whose tie-breaker
// hash is smaller.
func TestCandidateSelection(t *testing.T) {
	pool := NewPool()
	job := JobId{Left: field.FromUint64(10), Right: field.FromUint64(20)}

	snarkA := Snark{JobId: job, Fee: 5, Prover: "P_A"}
	snarkB := Snark{JobId: job, Fee: 5, Prover: "P_B"}

	winner, loser := snarkA, snarkB
	if !fieldLess(TieBreaker(job, "P_A"), TieBreaker(job, "P_B")) {
		winner, loser = snarkB, snarkA
	}

	pool.Admit(job, loser, TieBreaker)
	pool.Admit(job, winner, TieBreaker)

	got, ok := pool.Get(job)
	if !ok {
		t.Fatalf("expected a snark to be admitted")
	}
	if got.Prover != winner.Prover {
		t.Fatalf("expected the smaller tie-breaker hash to win, got %s want %s", got.Prover, winner.Prover)
	}
}

func TestPoolAdmitCheaperFeeReplaces(t *testing.T) {
	pool := NewPool()
	job := JobId{Left: field.FromUint64(1), Right: field.FromUint64(1)}
	pool.Admit(job, Snark{JobId: job, Fee: 10, Prover: "X"}, TieBreaker)
	pool.Admit(job, Snark{JobId: job, Fee: 3, Prover: "Y"}, TieBreaker)

	got, _ := pool.Get(job)
	if got.Fee != 3 {
		t.Fatalf("expected cheaper fee to win, got %d", got.Fee)
	}
}

func TestCandidateStatusLevelOrdering(t *testing.T) {
	if !Better(Candidate{Status: StatusVerified, Fee: 100}, Candidate{Status: StatusInfoReceived, Fee: 1}, TieBreaker) {
		t.Fatalf("Verified must outrank InfoReceived regardless of fee")
	}
}
