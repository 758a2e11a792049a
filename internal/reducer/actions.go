// Package reducer implements kernel.Reducer over the node's top-level
// state.State, wiring the frontier sync pipeline, the P2P connection layer,
// transaction apply, and the SNARK work pool into concrete kernel.Action
// types dispatched through a single kernel.Kernel (spec §4.1, §4.2's action
// names, §8.1 invariants 1/2/7). Nothing outside this package mutates
// state.State directly once a node is wired through reducer.New and
// kernel.New.
package reducer

import (
	"github.com/jurajselep/openmina/internal/field"
	"github.com/jurajselep/openmina/internal/frontier"
	"github.com/jurajselep/openmina/internal/kernel"
	"github.com/jurajselep/openmina/internal/ledger"
	"github.com/jurajselep/openmina/internal/p2p"
	"github.com/jurajselep/openmina/internal/snarkpool"
	"github.com/jurajselep/openmina/internal/state"
	"github.com/jurajselep/openmina/internal/txn"
)

// --- transition-frontier sync actions (spec §4.2) ---

// TransitionFrontierSyncInit starts a fresh sync (the Idle -> Init
// transition); it carries the target tip, the new root, and the hash chain
// in between.
type TransitionFrontierSyncInit struct {
	BestTip         frontier.Block
	Root            frontier.Block
	BlocksInBetween []field.F
}

func (TransitionFrontierSyncInit) Kind() string { return "TransitionFrontierSyncInit" }

// StakingLedgerSyncSuccess reports that the staking ledger snapshot for the
// sync target has been reconstructed (spec §4.2's ledger-fetch phases,
// preceding BlocksPending).
type StakingLedgerSyncSuccess struct {
	Staking      *ledger.Mask
	HasNextEpoch bool
}

func (StakingLedgerSyncSuccess) Kind() string { return "StakingLedgerSyncSuccess" }

// IsEnabled requires a sync to already be waiting on its staking ledger.
func (StakingLedgerSyncSuccess) IsEnabled(s kernel.State, _ kernel.Time) bool {
	return st(s).TransitionFrontier.Sync.Phase == frontier.PhaseStakingLedgerPending
}

// NextEpochLedgerSyncSuccess reports the next-epoch ledger snapshot, for
// syncs where the staking ledger reported one is needed.
type NextEpochLedgerSyncSuccess struct {
	NextEpoch *ledger.Mask
}

func (NextEpochLedgerSyncSuccess) Kind() string { return "NextEpochLedgerSyncSuccess" }

func (NextEpochLedgerSyncSuccess) IsEnabled(s kernel.State, _ kernel.Time) bool {
	return st(s).TransitionFrontier.Sync.Phase == frontier.PhaseNextEpochLedgerPending
}

// RootLedgerSyncSuccess reports the root ledger snapshot, the last ledger
// fetch before the sync moves into BlocksPending.
type RootLedgerSyncSuccess struct {
	Root *ledger.Mask
}

func (RootLedgerSyncSuccess) Kind() string { return "RootLedgerSyncSuccess" }

func (RootLedgerSyncSuccess) IsEnabled(s kernel.State, _ kernel.Time) bool {
	return st(s).TransitionFrontier.Sync.Phase == frontier.PhaseRootLedgerPending
}

// BestTipUpdate preempts an in-progress sync toward a new, taller tip (spec
// §4.2, scenario S5).
type BestTipUpdate struct {
	BestTip         frontier.Block
	Root            frontier.Block
	BlocksInBetween []field.F
	SameRootLedger  bool
}

func (BestTipUpdate) Kind() string { return "BestTipUpdate" }

// IsEnabled refuses a BestTipUpdate once the current sync has already
// reached CommitPending/CommitSuccess — matching frontier.Sync.Preempt's own
// no-op guard, but surfaced here as a kernel-level enabling condition rather
// than a silent internal no-op (spec §8.1 invariant 2).
func (BestTipUpdate) IsEnabled(s kernel.State, _ kernel.Time) bool {
	phase := st(s).TransitionFrontier.Sync.Phase
	return phase != frontier.PhaseCommitPending && phase != frontier.PhaseCommitSuccess
}

// BlocksPeerQueryInit dispatches a fetch for the sync chain entry at Index
// to Peer (spec §4.2 "BlocksPeerQueryInit").
type BlocksPeerQueryInit struct {
	Index int
	Peer  string
	RpcId uint64
}

func (BlocksPeerQueryInit) Kind() string { return "BlocksPeerQueryInit" }

// IsEnabled requires the sync to be in BlocksPending with Index still
// Missing — dispatching a query for an already-fetched or out-of-range
// entry is exactly the kind of bug spec §8.1 invariant 2 wants caught.
func (a BlocksPeerQueryInit) IsEnabled(s kernel.State, _ kernel.Time) bool {
	sync := st(s).TransitionFrontier.Sync
	if sync.Phase != frontier.PhaseBlocksPending {
		return false
	}
	if a.Index < 0 || a.Index >= len(sync.Chain) {
		return false
	}
	return sync.Chain[a.Index].State == frontier.BlockMissing
}

// BlocksPeerQuerySuccess reports a fetched block for chain entry Index.
type BlocksPeerQuerySuccess struct {
	Index int
	Block frontier.Block
}

func (BlocksPeerQuerySuccess) Kind() string { return "BlocksPeerQuerySuccess" }

// BlocksPeerQueryFailed reports a failed fetch for chain entry Index.
type BlocksPeerQueryFailed struct {
	Index int
}

func (BlocksPeerQueryFailed) Kind() string { return "BlocksPeerQueryFailed" }

// BlocksNextApplyInit asks the reducer to pick and apply the next
// fetched-but-unapplied chain entry (spec §4.2 "BlocksNextApplyInit").
type BlocksNextApplyInit struct{}

func (BlocksNextApplyInit) Kind() string { return "BlocksNextApplyInit" }

// IsEnabled requires a real apply target to exist; dispatching this action
// with nothing left to apply would silently do nothing, which spec §8.1
// invariant 2 treats as a bug rather than a benign no-op.
func (BlocksNextApplyInit) IsEnabled(s kernel.State, _ kernel.Time) bool {
	sync := st(s).TransitionFrontier.Sync
	if sync.Phase != frontier.PhaseBlocksPending {
		return false
	}
	_, ok := sync.NextApplyTarget()
	return ok
}

// BlocksNextApplySuccess reports a successful block apply at Index.
type BlocksNextApplySuccess struct {
	Index            int
	JustEmittedProof bool
}

func (BlocksNextApplySuccess) Kind() string { return "BlocksNextApplySuccess" }

// BlocksNextApplyFailed reports a failed block apply at Index.
type BlocksNextApplyFailed struct {
	Index int
}

func (BlocksNextApplyFailed) Kind() string { return "BlocksNextApplyFailed" }

// CommitInit begins the commit phase once every chain entry is Applied
// (spec §4.2 "CommitInit").
type CommitInit struct{}

func (CommitInit) Kind() string { return "CommitInit" }

// IsEnabled requires the sync to have reached BlocksSuccess.
func (CommitInit) IsEnabled(s kernel.State, _ kernel.Time) bool {
	return st(s).TransitionFrontier.Sync.Phase == frontier.PhaseBlocksSuccess
}

// CommitPending is the notification child action fired once CommitInit has
// moved the sync into its commit-pending phase (spec §4.2 "CommitPending").
// It carries no state effect of its own; it exists so the phase transition
// itself is a recorded, replayable event rather than an invisible side
// effect of CommitInit's reduction.
type CommitPending struct{}

func (CommitPending) Kind() string { return "CommitPending" }

// CommitSuccess finalizes a sync, swapping in the newly-applied chain (spec
// §4.2 "CommitSuccess").
type CommitSuccess struct {
	NewChain []frontier.Block
}

func (CommitSuccess) Kind() string { return "CommitSuccess" }

// IsEnabled requires the sync to be in CommitPending.
func (CommitSuccess) IsEnabled(s kernel.State, _ kernel.Time) bool {
	return st(s).TransitionFrontier.Sync.Phase == frontier.PhaseCommitPending
}

// --- P2P connection actions (spec §4.5, §3.7) ---

// ConnectionDial registers a new outgoing connection attempt.
type ConnectionDial struct {
	Peer        p2p.PeerId
	Transport   p2p.Transport
	Concurrency int
}

func (ConnectionDial) Kind() string { return "ConnectionDial" }

// ConnectionAuthVerify verifies a peer's post-handshake authentication
// payload, promoting the connection to Ready only on success (spec §4.5,
// scenario S6).
type ConnectionAuthVerify struct {
	Peer p2p.PeerId
	Auth p2p.ConnectionAuth
}

func (ConnectionAuthVerify) Kind() string { return "ConnectionAuthVerify" }

// IsEnabled requires the connection to already be tracked — verifying an
// auth payload for a peer nothing ever dialed is a bug, not a business
// failure (spec §8.1 invariant 2).
func (a ConnectionAuthVerify) IsEnabled(s kernel.State, _ kernel.Time) bool {
	_, ok := st(s).P2P.Connection(a.Peer)
	return ok
}

// ConnectionDisconnect tears down a connection.
type ConnectionDisconnect struct {
	Peer p2p.PeerId
}

func (ConnectionDisconnect) Kind() string { return "ConnectionDisconnect" }

// --- transaction apply actions (spec §4.4) ---

// ApplySignedCommand applies a payment or stake-delegation command against
// the live ledger and records the outcome against TxId in the tx pool.
type ApplySignedCommand struct {
	TxId              uint64
	Cc                txn.ConstraintConstants
	Slot              ledger.Slot
	CurrentGlobalSlot uint64
	Verifier          txn.Verifier
	Commitment        field.F
	Cmd               txn.SignedCommand
}

func (ApplySignedCommand) Kind() string { return "ApplySignedCommand" }

// ApplyZkAppCommand applies a zkApp command's fee-payer segment and
// account-update forest against the live ledger.
type ApplyZkAppCommand struct {
	TxId              uint64
	Cc                txn.ConstraintConstants
	CurrentGlobalSlot uint64
	Verifier          txn.Verifier
	Commitment        field.F
	FullCommitment    field.F
	Cmd               txn.ZkAppCommand
}

func (ApplyZkAppCommand) Kind() string { return "ApplyZkAppCommand" }

// ApplyFeeTransfer applies a coinbase-adjacent fee transfer.
type ApplyFeeTransfer struct {
	TxId     uint64
	Transfer txn.FeeTransfer
}

func (ApplyFeeTransfer) Kind() string { return "ApplyFeeTransfer" }

// ApplyCoinbase applies a block's coinbase payout.
type ApplyCoinbase struct {
	TxId     uint64
	Coinbase txn.Coinbase
}

func (ApplyCoinbase) Kind() string { return "ApplyCoinbase" }

// TxPoolEnqueue admits a raw signed command into the pool's pending list,
// ahead of whatever later action actually applies it (spec §6.4
// "transactions" admission step, which precedes §4.4's apply step). This is
// the RPC SendPayment handler's own state mutation, routed through the
// kernel rather than performed directly by the RPC layer. TxId is allocated
// by the reduction itself (from the pool's current length) and reported back
// through AssignedTxId, since two concurrent RPC calls racing on
// len(Pending) outside the kernel's lock could otherwise allocate the same
// id.
type TxPoolEnqueue struct {
	SignedCommand []byte
	AssignedTxId  *uint64
}

func (TxPoolEnqueue) Kind() string { return "TxPoolEnqueue" }

// --- SNARK work pool actions (spec §4.6, §3.6) ---

// SnarkWorkInfoReceived admits a new candidate advertisement into the
// candidate table.
type SnarkWorkInfoReceived struct {
	Candidate snarkpool.Candidate
}

func (SnarkWorkInfoReceived) Kind() string { return "SnarkWorkInfoReceived" }

// SnarkWorkAdvance moves a tracked candidate to a new status.
type SnarkWorkAdvance struct {
	Peer   snarkpool.PeerId
	Job    snarkpool.JobId
	Status snarkpool.CandidateStatus
}

func (SnarkWorkAdvance) Kind() string { return "SnarkWorkAdvance" }

// SnarkWorkSubmit admits a completed proof into the shared pool. Admitted, if
// non-nil, receives the pool's admission verdict — the only way a caller
// outside the kernel observes a reducer's outcome, since Reduce itself
// returns only child actions (spec §4.1).
type SnarkWorkSubmit struct {
	Snark    snarkpool.Snark
	Admitted *bool
}

func (SnarkWorkSubmit) Kind() string { return "SnarkWorkSubmit" }

// st type-asserts the kernel's opaque State back to the concrete node
// state; every action/reducer in this package goes through it rather than
// repeating the assertion inline.
func st(s kernel.State) *state.State { return s.(*state.State) }
