// Package state defines the node's single top-level State product (spec §2,
// §3, §9 "all other state flows through the single State value"). It is
// pure data: no package here performs I/O or blocks.
package state

import (
	"github.com/google/uuid"

	"github.com/jurajselep/openmina/internal/frontier"
	"github.com/jurajselep/openmina/internal/ledger"
	"github.com/jurajselep/openmina/internal/p2p"
	"github.com/jurajselep/openmina/internal/snarkpool"
)

// RpcId is a unique handle for a node-local RPC request (spec §6.4).
type RpcId uuid.UUID

// NewRpcId allocates a fresh request identifier, mirroring the teacher's use
// of google/uuid for peer/session identifiers.
func NewRpcId() RpcId { return RpcId(uuid.New()) }

// TxPool tracks pending signed and zkApp commands awaiting inclusion (spec §2
// component table, §6.4 TransactionPool/PooledUserCommands) by id and status;
// the command bytes themselves are not stored.
type TxPool struct {
	Pending []PendingTx
}

// PendingTx is one pool entry: its identity, wall-clock-free arrival order,
// and last-known status.
type PendingTx struct {
	Id     uint64
	Status string
}

// BlockProducer tracks whether this node is configured to produce blocks and
// the outcome of its most recent slot-win evaluation (spec §4.8 step 3).
type BlockProducer struct {
	Enabled      bool
	LastSlotWon  bool
	LastSlotSeen uint64
}

// WatchedAccounts is the set of AccountIds the node reports balance/state
// changes for via RPC (spec §2 component table).
type WatchedAccounts struct {
	Ids map[ledger.AccountId]struct{}
}

// Rpc holds in-flight node-local RPC requests keyed by RpcId (spec §6.4,
// §8.1 invariant 8 "every response carries an rpc_id equal to exactly one
// outstanding request").
type Rpc struct {
	Outstanding map[RpcId]string // request kind, keyed by id
}

// State is the sole source of truth for the node (spec §2's component
// table); the kernel mutates it through reducers only.
type State struct {
	P2P                *p2p.State
	Ledger             ledger.Ledger
	Snark              *snarkpool.CandidateTable
	TransitionFrontier *frontier.TransitionFrontier
	SnarkPool          *snarkpool.Pool
	TxPool             TxPool
	BlockProducer      BlockProducer
	Rpc                Rpc
	WatchedAccounts    WatchedAccounts
}

// New builds a fresh State over an empty base ledger (spec §9's "no
// ambient/global mutable data" — everything starts from this one
// constructor).
func New() *State {
	return &State{
		P2P:                p2p.NewState(),
		Ledger:             ledger.NewBaseLedger(),
		Snark:              snarkpool.NewCandidateTable(),
		SnarkPool:          snarkpool.NewPool(),
		TransitionFrontier: frontier.NewTransitionFrontier(),
		TxPool:             TxPool{},
		Rpc:                Rpc{Outstanding: make(map[RpcId]string)},
		WatchedAccounts:    WatchedAccounts{Ids: make(map[ledger.AccountId]struct{})},
	}
}
