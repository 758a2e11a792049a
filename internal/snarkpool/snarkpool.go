// Package snarkpool implements the SNARK work marketplace (spec §4.6): a
// per-(peer, job) candidate table tracking advertisement → fetch → verify
// progress, and the admitted pool that keeps the cheapest valid proof per
// job. Grounded on spec §3.6's candidate state machine and §4.6's admission
// rules; the candidate-table bookkeeping mirrors the teacher's
// core/chain_fork_manager.go candidate-tracking shape (map keyed by an
// identity pair, monotone state transitions, prune-by-peer).
package snarkpool

import (
	"math/big"

	"github.com/jurajselep/openmina/internal/field"
)

// JobId identifies a unit of scan-state prover work (spec §3.6, glossary).
type JobId struct {
	Left  field.F
	Right field.F
}

// PeerId is the opaque peer identity snark advertisements come from.
type PeerId string

// CandidateStatus is the per-(peer, job) progress (spec §3.6).
type CandidateStatus int

const (
	StatusInfoReceived CandidateStatus = iota
	StatusWorkFetchPending
	StatusWorkReceived
	StatusWorkVerifyPending
	StatusVerified
	StatusInvalid
)

// Snark is a verified (or about-to-be-verified) proof plus its fee and
// prover (spec §3.6).
type Snark struct {
	JobId  JobId
	Fee    uint64
	Prover string
	Proof  []byte
}

// Candidate is one (peer, job) entry's tracked state.
type Candidate struct {
	Peer      PeerId
	Job       JobId
	Status    CandidateStatus
	Fee       uint64
	Prover    string
	RpcId     uint64
	VerifyId  uint64
	Snark     *Snark
}

// level ranks a CandidateStatus for the partial order in spec §3.6
// ("Verified > WorkReceived > InfoReceived").
func (c CandidateStatus) level() int {
	switch c {
	case StatusVerified:
		return 3
	case StatusWorkReceived, StatusWorkVerifyPending:
		return 2
	case StatusInfoReceived, StatusWorkFetchPending:
		return 1
	default:
		return 0
	}
}

// Better reports whether a strictly outranks b per spec §3.6's partial
// order: higher status level wins; within the same level lower fee wins;
// ties break by tieBreaker(job, prover).
func Better(a, b Candidate, tieBreaker func(JobId, string) field.F) bool {
	if a.Status.level() != b.Status.level() {
		return a.Status.level() > b.Status.level()
	}
	if a.Fee != b.Fee {
		return a.Fee < b.Fee
	}
	ta := tieBreaker(a.Job, a.Prover)
	tb := tieBreaker(b.Job, b.Prover)
	return fieldLess(ta, tb)
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

// TieBreaker computes H(job_id ‖ prover) for fee-tie resolution (spec §3.6,
// glossary "Tie-breaker hash"). prover identifiers are folded into the field
// byte-by-byte since the snark-pool surface deals with opaque prover
// strings, not the PublicKey field elements transaction apply uses.
func TieBreaker(job JobId, prover string) field.F {
	proverInt := new(big.Int).SetBytes([]byte(prover))
	return field.Hash(field.DomainZkappEvent, job.Left, job.Right, field.FromBigInt(proverInt))
}

// CandidateTable tracks in-flight candidates per (peer, job) — the "Snark"
// half of the top-level State product, distinct from the admitted Pool
// (spec §2 component table lists both "Snark" and "SnarkPool").
type CandidateTable struct {
	entries map[candidateKey]Candidate
}

type candidateKey struct {
	Peer PeerId
	Job  JobId
}

// NewCandidateTable builds an empty table.
func NewCandidateTable() *CandidateTable {
	return &CandidateTable{entries: make(map[candidateKey]Candidate)}
}

// AcceptInfo admits a new InfoReceived candidate only if it is strictly
// better than whatever is already stored for that peer (spec §4.6 bullet 1).
func (t *CandidateTable) AcceptInfo(c Candidate, tieBreaker func(JobId, string) field.F) bool {
	key := candidateKey{Peer: c.Peer, Job: c.Job}
	existing, ok := t.entries[key]
	if ok && !Better(c, existing, tieBreaker) {
		return false
	}
	c.Status = StatusInfoReceived
	t.entries[key] = c
	return true
}

// Advance transitions a candidate to a new status, used for the
// FetchInit → FetchPending → Received → VerifyPending → Verified/Invalid
// chain (spec §3.6).
func (t *CandidateTable) Advance(peer PeerId, job JobId, status CandidateStatus) {
	key := candidateKey{Peer: peer, Job: job}
	c, ok := t.entries[key]
	if !ok {
		return
	}
	c.Status = status
	t.entries[key] = c
}

// PrunePeer removes every candidate belonging to peer (spec §4.6
// "PeerPrune").
func (t *CandidateTable) PrunePeer(peer PeerId) {
	for key := range t.entries {
		if key.Peer == peer {
			delete(t.entries, key)
		}
	}
}

// Get returns the stored candidate for (peer, job), if any.
func (t *CandidateTable) Get(peer PeerId, job JobId) (Candidate, bool) {
	c, ok := t.entries[candidateKey{Peer: peer, Job: job}]
	return c, ok
}

// Pool is the admitted, cheapest-wins proof table (spec §4.6's final
// paragraph, §3.6's ordering).
type Pool struct {
	byJob map[JobId]Snark
}

// NewPool builds an empty admitted-proof pool.
func NewPool() *Pool {
	return &Pool{byJob: make(map[JobId]Snark)}
}

// Admit inserts snark for job, replacing the existing entry only if snark is
// strictly cheaper (lower fee) or, on a fee tie, wins by tieBreaker (spec
// §4.6 "a second, better proof for the same job replaces the existing one";
// §3.6's tie-break rule).
func (p *Pool) Admit(job JobId, snark Snark, tieBreaker func(JobId, string) field.F) bool {
	existing, ok := p.byJob[job]
	if !ok {
		p.byJob[job] = snark
		return true
	}
	if snark.Fee < existing.Fee {
		p.byJob[job] = snark
		return true
	}
	if snark.Fee == existing.Fee && fieldLess(tieBreaker(job, snark.Prover), tieBreaker(job, existing.Prover)) {
		p.byJob[job] = snark
		return true
	}
	return false
}

// Get returns the admitted snark for job, if any.
func (p *Pool) Get(job JobId) (Snark, bool) {
	s, ok := p.byJob[job]
	return s, ok
}

// AdmitDefault admits snark keyed by its own JobId using the package's
// standard TieBreaker, for callers (e.g. the RPC surface) that don't carry
// a custom tie-breaking function.
func (p *Pool) AdmitDefault(snark Snark) bool {
	return p.Admit(snark.JobId, snark, TieBreaker)
}

// Jobs returns up to max job ids currently held in the pool (spec §6.4
// "snark work" listing); max<=0 means unbounded. Order is unspecified.
func (p *Pool) Jobs(max int) []JobId {
	out := make([]JobId, 0, len(p.byJob))
	for j := range p.byJob {
		if max > 0 && len(out) >= max {
			break
		}
		out = append(out, j)
	}
	return out
}
