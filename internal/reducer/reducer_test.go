package reducer

import (
	"testing"

	"github.com/jurajselep/openmina/internal/field"
	"github.com/jurajselep/openmina/internal/frontier"
	"github.com/jurajselep/openmina/internal/kernel"
	"github.com/jurajselep/openmina/internal/snarkpool"
	"github.com/jurajselep/openmina/internal/state"
)

func hashAt(n uint64) field.F { return field.FromUint64(n) }

func chainHashes(lo, hi uint64) []field.F {
	out := make([]field.F, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, hashAt(i))
	}
	return out
}

// TestFrontierSyncPipelineDrivesThroughTheKernel exercises the full
// Idle -> ... -> CommitSuccess chain entirely through kernel.Kernel.Dispatch
// against the real state.State, proving the pipeline no longer needs direct
// frontier.Sync method calls from outside a reducer.
func TestFrontierSyncPipelineDrivesThroughTheKernel(t *testing.T) {
	k := kernel.New(state.New(), New(), nil)
	s := k.State().(*state.State)

	bestTip := frontier.Block{Hash: hashAt(2), Height: 2}
	root := frontier.Block{Hash: hashAt(0), Height: 0}

	k.Dispatch(TransitionFrontierSyncInit{BestTip: bestTip, Root: root, BlocksInBetween: chainHashes(1, 2)}, 1)
	if got := s.TransitionFrontier.Sync.Phase; got != frontier.PhaseStakingLedgerPending {
		t.Fatalf("expected StakingLedgerPending after init, got %v", got)
	}

	k.Dispatch(StakingLedgerSyncSuccess{HasNextEpoch: false}, 2)
	if got := s.TransitionFrontier.Sync.Phase; got != frontier.PhaseRootLedgerPending {
		t.Fatalf("expected RootLedgerPending, got %v", got)
	}

	k.Dispatch(RootLedgerSyncSuccess{}, 3)
	if got := s.TransitionFrontier.Sync.Phase; got != frontier.PhaseBlocksPending {
		t.Fatalf("expected BlocksPending, got %v", got)
	}

	k.Dispatch(BlocksPeerQueryInit{Index: 0, Peer: "peerA", RpcId: 1}, 4)
	k.Dispatch(BlocksPeerQuerySuccess{Index: 0, Block: frontier.Block{Hash: hashAt(1), Height: 1}}, 5)
	k.Dispatch(BlocksPeerQueryInit{Index: 1, Peer: "peerA", RpcId: 2}, 6)
	k.Dispatch(BlocksPeerQuerySuccess{Index: 1, Block: frontier.Block{Hash: hashAt(2), Height: 2}}, 7)

	if got := s.TransitionFrontier.Sync.Phase; got != frontier.PhaseCommitPending {
		t.Fatalf("expected the chain to auto-apply through to CommitPending, got %v", got)
	}

	k.Dispatch(CommitSuccess{NewChain: []frontier.Block{root, {Hash: hashAt(1), Height: 1}, bestTip}}, 8)
	if got := s.TransitionFrontier.Sync.Phase; got != frontier.PhaseIdle {
		t.Fatalf("expected the sync to reset to Idle after commit, got %v", got)
	}
	if len(s.TransitionFrontier.BestTipChain) != 3 {
		t.Fatalf("expected the committed chain to become the new best tip chain, got %d entries", len(s.TransitionFrontier.BestTipChain))
	}
}

// TestBlocksPeerQueryInitDisabledOutsideBlocksPending proves the enabling
// condition is actually checked by the kernel: dispatching a query before
// BlocksPending is reached is dropped as a bug condition, not silently
// applied.
func TestBlocksPeerQueryInitDisabledOutsideBlocksPending(t *testing.T) {
	k := kernel.New(state.New(), New(), nil)
	k.Dispatch(BlocksPeerQueryInit{Index: 0, Peer: "peerA", RpcId: 1}, 1)

	bugs := k.Bugs()
	if len(bugs) != 1 {
		t.Fatalf("expected exactly one bug condition, got %d", len(bugs))
	}
	if bugs[0].Action.Kind() != "BlocksPeerQueryInit" {
		t.Fatalf("expected the recorded bug to be the disabled BlocksPeerQueryInit, got %s", bugs[0].Action.Kind())
	}
}

func TestSnarkWorkSubmitReportsAdmissionThroughTheKernel(t *testing.T) {
	k := kernel.New(state.New(), New(), nil)
	job := snarkpool.JobId{Left: hashAt(1), Right: hashAt(2)}
	snark := snarkpool.Snark{JobId: job, Fee: 5, Prover: "proverA"}

	var admitted bool
	k.Dispatch(SnarkWorkSubmit{Snark: snark, Admitted: &admitted}, 1)
	if !admitted {
		t.Fatalf("expected the first submission for a fresh job to be admitted")
	}

	st := k.State().(*state.State)
	jobs := st.SnarkPool.Jobs(10)
	if len(jobs) != 1 {
		t.Fatalf("expected exactly one pooled job, got %d", len(jobs))
	}
}

func TestTxPoolEnqueueRecordsAPendingEntry(t *testing.T) {
	k := kernel.New(state.New(), New(), nil)

	var firstId, secondId uint64
	k.Dispatch(TxPoolEnqueue{SignedCommand: []byte{1, 2, 3}, AssignedTxId: &firstId}, 1)
	k.Dispatch(TxPoolEnqueue{SignedCommand: []byte{4, 5, 6}, AssignedTxId: &secondId}, 2)

	st := k.State().(*state.State)
	if len(st.TxPool.Pending) != 2 {
		t.Fatalf("expected exactly two pool entries, got %d", len(st.TxPool.Pending))
	}
	if firstId != 0 || secondId != 1 {
		t.Fatalf("expected sequentially assigned ids 0 and 1, got %d and %d", firstId, secondId)
	}
	if st.TxPool.Pending[0].Status != "pending" {
		t.Fatalf("expected a freshly enqueued entry to be pending, got %q", st.TxPool.Pending[0].Status)
	}
}
