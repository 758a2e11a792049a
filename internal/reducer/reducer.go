package reducer

import (
	"fmt"

	"github.com/jurajselep/openmina/internal/frontier"
	"github.com/jurajselep/openmina/internal/kernel"
	"github.com/jurajselep/openmina/internal/snarkpool"
	"github.com/jurajselep/openmina/internal/state"
	"github.com/jurajselep/openmina/internal/txn"
)

// Reducer is the node's single kernel.Reducer, type-switching over every
// action this package declares and every other concern the node exposes
// (spec §4.1 "the kernel dispatches it to exactly one reducer"). There is
// exactly one Reducer per running node; state.State is never mutated
// outside a call to Reduce.
type Reducer struct{}

// New builds the node's reducer.
func New() Reducer { return Reducer{} }

// Reduce implements kernel.Reducer.
func (Reducer) Reduce(s kernel.State, a kernel.Action, meta kernel.Meta) []kernel.Action {
	node := st(s)

	switch act := a.(type) {

	// --- transition-frontier sync ---

	case TransitionFrontierSyncInit:
		node.TransitionFrontier.Sync.Init(act.BestTip, act.Root, act.BlocksInBetween)
		return nil

	case StakingLedgerSyncSuccess:
		node.TransitionFrontier.Sync.StakingLedgerSuccess(act.Staking, act.HasNextEpoch)
		return nil

	case NextEpochLedgerSyncSuccess:
		node.TransitionFrontier.Sync.NextEpochLedgerSuccess(act.NextEpoch)
		return nil

	case RootLedgerSyncSuccess:
		node.TransitionFrontier.Sync.RootLedgerSuccess(act.Root)
		return nil

	case BestTipUpdate:
		node.TransitionFrontier.Sync.Preempt(act.BestTip, act.Root, act.BlocksInBetween, act.SameRootLedger)
		return nil

	case BlocksPeerQueryInit:
		node.TransitionFrontier.Sync.FetchInit(act.Index, act.Peer, act.RpcId)
		return nil

	case BlocksPeerQuerySuccess:
		if err := node.TransitionFrontier.Sync.FetchSuccess(act.Index, act.Block); err != nil {
			return []kernel.Action{BlocksPeerQueryFailed{Index: act.Index}}
		}
		return []kernel.Action{BlocksNextApplyInit{}}

	case BlocksPeerQueryFailed:
		node.TransitionFrontier.Sync.FetchFailed(act.Index)
		return nil

	case BlocksNextApplyInit:
		idx, ok := node.TransitionFrontier.Sync.NextApplyTarget()
		if !ok {
			return nil
		}
		return []kernel.Action{BlocksNextApplySuccess{Index: idx}}

	case BlocksNextApplySuccess:
		node.TransitionFrontier.Sync.ApplySuccess(act.Index, act.JustEmittedProof)
		if node.TransitionFrontier.Sync.Phase == frontier.PhaseBlocksSuccess {
			return []kernel.Action{CommitInit{}}
		}
		if _, ok := node.TransitionFrontier.Sync.NextApplyTarget(); ok {
			return []kernel.Action{BlocksNextApplyInit{}}
		}
		return nil

	case BlocksNextApplyFailed:
		node.TransitionFrontier.Sync.ApplyFailed(act.Index)
		return nil

	case CommitInit:
		if err := node.TransitionFrontier.Sync.CommitInit(); err != nil {
			return nil
		}
		return []kernel.Action{CommitPending{}}

	case CommitPending:
		// Phase is already CommitPending as of CommitInit's reduction; this
		// action exists only so the transition itself is a recorded,
		// replayable trace entry (spec §4.2).
		return nil

	case CommitSuccess:
		node.TransitionFrontier.CommitSuccess(act.NewChain)
		return nil

	// --- P2P connection layer ---

	case ConnectionDial:
		node.P2P.Dial(act.Peer, act.Transport, act.Concurrency)
		return nil

	case ConnectionAuthVerify:
		_ = node.P2P.VerifyAndPromote(act.Peer, act.Auth)
		return nil

	case ConnectionDisconnect:
		node.P2P.Disconnect(act.Peer)
		return nil

	// --- transaction apply ---

	case ApplySignedCommand:
		status, err := txn.ApplySignedCommand(act.Cc, act.Slot, act.CurrentGlobalSlot, node.Ledger, act.Verifier, act.Commitment, act.Cmd)
		recordTxOutcome(node, act.TxId, status, err)
		return nil

	case ApplyZkAppCommand:
		if err := txn.CheckCostGuard(txn.DefaultCostConstants(), act.Cmd); err != nil {
			recordTxOutcome(node, act.TxId, txn.Status{}, err)
			return nil
		}
		status, err := txn.ApplyZkAppCommand(act.Cc, 0, act.CurrentGlobalSlot, node.Ledger, act.Verifier, act.Commitment, act.FullCommitment, act.Cmd)
		recordTxOutcome(node, act.TxId, status, err)
		return nil

	case ApplyFeeTransfer:
		status, err := txn.ApplyFeeTransfer(node.Ledger, act.Transfer)
		recordTxOutcome(node, act.TxId, status, err)
		return nil

	case ApplyCoinbase:
		status, _, err := txn.ApplyCoinbase(node.Ledger, act.Coinbase)
		recordTxOutcome(node, act.TxId, status, err)
		return nil

	case TxPoolEnqueue:
		id := uint64(len(node.TxPool.Pending))
		node.TxPool.Pending = append(node.TxPool.Pending, state.PendingTx{Id: id, Status: "pending"})
		if act.AssignedTxId != nil {
			*act.AssignedTxId = id
		}
		return nil

	// --- SNARK work pool ---

	case SnarkWorkInfoReceived:
		node.Snark.AcceptInfo(act.Candidate, snarkpool.TieBreaker)
		return nil

	case SnarkWorkAdvance:
		node.Snark.Advance(act.Peer, act.Job, act.Status)
		return nil

	case SnarkWorkSubmit:
		admitted := node.SnarkPool.AdmitDefault(act.Snark)
		if act.Admitted != nil {
			*act.Admitted = admitted
		}
		return nil
	}

	return nil
}

// recordTxOutcome folds an apply's Status into the matching TxPool entry's
// Status string (spec §2's TxPool component; §6.4's pool status surface).
// A TxId with no matching pool entry is silently ignored — internal apply
// actions (e.g. a block's own fee transfers) aren't necessarily pool
// members.
func recordTxOutcome(node *state.State, txId uint64, status txn.Status, err error) {
	for i := range node.TxPool.Pending {
		if node.TxPool.Pending[i].Id != txId {
			continue
		}
		switch {
		case err != nil:
			node.TxPool.Pending[i].Status = fmt.Sprintf("rejected: %v", err)
		case status.Applied:
			node.TxPool.Pending[i].Status = "applied"
		default:
			node.TxPool.Pending[i].Status = "failed"
		}
		return
	}
}
