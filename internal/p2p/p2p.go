// Package p2p implements the connection and channel layer (spec §4.5,
// §3.7): per-peer connection state, encrypted authentication binding,
// channel multiplexing over a closed ChannelId enumeration, and the demerit
// table peer-scoring supplement (spec §4.12). Transport wiring
// (libp2p/webrtc) lives in transport.go; this file is the transport-agnostic
// state and bookkeeping, grounded on the teacher's core/network.go
// (NewNode/Broadcast/Subscribe shape) and core/connection_pool.go
// (per-peer connection bookkeeping, pruning).
package p2p

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// PeerId identifies a peer (spec §3.7); concretely a libp2p peer.ID or a
// multiaddr-derived string depending on transport (§4.9).
type PeerId string

// Transport distinguishes which wire transport a connection uses (spec
// §4.5).
type Transport int

const (
	TransportWebRTC Transport = iota
	TransportLibp2p
)

// ConnectionState is the per-peer connection lifecycle (spec §3.7).
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateAuthenticating
	StateReady
	StateClosing
)

// ChannelId is the closed enumeration of multiplexed channels (spec §4.5,
// §6.1).
type ChannelId int

const (
	ChannelRpc ChannelId = iota
	ChannelBestTipPropagation
	ChannelTransactionPropagation
	ChannelSnarkJobPropagation
	ChannelSnarkJobCommitmentPropagation
	ChannelSignaling
	ChannelStreamingRpc
)

// defaultMaxMsgSize is the default per-channel frame-size limit (spec §4.5); a real
// deployment would source this from Config, but every channel needs *some*
// bound to exercise the ChannelMsgLenOverLimit path, so a conservative
// default lives here.
const defaultMaxMsgSize = 16 * 1024 * 1024

// ChannelState tracks one multiplexed channel's framing limit and liveness
// (spec §4.5 "each channel declares max_msg_size").
type ChannelState struct {
	Id         ChannelId
	MaxMsgSize int
	Closed     bool
	CloseErr   error
}

// RpcState tracks monotonic per-connection request ids and the inflight
// concurrency limit (spec §4.5 "RPC channel").
type RpcState struct {
	NextRpcId   uint64
	Inflight    map[uint64]struct{}
	Concurrency int
}

// CanSendRequest reports whether the peer has a free RPC slot (spec §4.5
// "the scheduler never dispatches a new request to a peer already at its
// limit").
func (r *RpcState) CanSendRequest() bool {
	return len(r.Inflight) < r.Concurrency
}

// AllocRpcId reserves the next monotonic request id and marks it inflight.
func (r *RpcState) AllocRpcId() uint64 {
	id := r.NextRpcId
	r.NextRpcId++
	r.Inflight[id] = struct{}{}
	return id
}

// Complete releases an inflight slot once a response (or timeout) resolves it.
func (r *RpcState) Complete(id uint64) {
	delete(r.Inflight, id)
}

// Connection is the per-peer record (spec §3.7).
type Connection struct {
	Identity  PeerId
	Transport Transport
	State     ConnectionState
	Channels  map[ChannelId]*ChannelState
	BestTip   *BestTipSummary
	Rpc       RpcState
}

// BestTipSummary is the subset of a peer's advertised best tip the sync FSM
// needs to pick fetch targets (spec §4.2 "whose advertised best tip matches
// our sync target").
type BestTipSummary struct {
	Hash   string
	Length uint64
}

func newConnection(id PeerId, transport Transport, concurrency int) *Connection {
	ch := make(map[ChannelId]*ChannelState, 7)
	for _, id := range []ChannelId{
		ChannelRpc, ChannelBestTipPropagation, ChannelTransactionPropagation,
		ChannelSnarkJobPropagation, ChannelSnarkJobCommitmentPropagation,
		ChannelSignaling, ChannelStreamingRpc,
	} {
		ch[id] = &ChannelState{Id: id, MaxMsgSize: defaultMaxMsgSize}
	}
	return &Connection{
		Identity:  id,
		Transport: transport,
		State:     StateConnecting,
		Channels:  ch,
		Rpc:       RpcState{Inflight: make(map[uint64]struct{}), Concurrency: concurrency},
	}
}

// State is the P2P sub-state of the top-level State product (spec §2).
type State struct {
	mu          sync.RWMutex
	connections map[PeerId]*Connection
	demerits    *DemeritTable
	logger      *logrus.Logger
}

// NewState builds an empty P2P state.
func NewState() *State {
	return &State{
		connections: make(map[PeerId]*Connection),
		demerits:    NewDemeritTable(),
		logger:      logrus.StandardLogger(),
	}
}

// Dial registers a new outgoing connection attempt in the Connecting state
// (spec §3.7; the actual transport dial lives in transport.go).
func (s *State) Dial(id PeerId, transport Transport, concurrency int) *Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := newConnection(id, transport, concurrency)
	s.connections[id] = c
	return c
}

// ConnectionAuth is the encrypted payload exchanged after the transport
// handshake (spec §4.5 "Connection authentication"): it binds the peer's
// claimed identity to the ephemeral connection keys the handshake
// established.
type ConnectionAuth struct {
	ClaimedPeerId    PeerId
	EnclosedPubKey   []byte
	HandshakePubKey  []byte
}

// VerifyAndPromote checks that the ConnectionAuth's enclosed public key
// matches the one the transport handshake established, promoting the
// connection to Ready only on success (spec §4.5, scenario S6).
func (s *State) VerifyAndPromote(id PeerId, auth ConnectionAuth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[id]
	if !ok {
		return errUnknownPeer
	}
	c.State = StateAuthenticating
	if !bytesEqual(auth.EnclosedPubKey, auth.HandshakePubKey) || auth.ClaimedPeerId != id {
		c.State = StateClosing
		s.demerits.RecordOffense(id, OffenseAuthMismatch)
		return errAuthMismatch
	}
	c.State = StateReady
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var errUnknownPeer = p2pError("p2p: unknown peer")
var errAuthMismatch = p2pError("p2p: connection auth public key does not match handshake identity")

type p2pError string

func (e p2pError) Error() string { return string(e) }

// Disconnect tears down a connection (spec §4.5 "Disconnect"): it marks the
// connection closing and drops it from the connection table. Demerit scores
// and frontier candidates are not touched.
func (s *State) Disconnect(id PeerId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.connections[id]; ok {
		c.State = StateClosing
	}
	delete(s.connections, id)
}

// Connection returns the tracked connection for id, if any.
func (s *State) Connection(id PeerId) (*Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.connections[id]
	return c, ok
}

// Demerits exposes the peer-scoring table (spec §4.12).
func (s *State) Demerits() *DemeritTable { return s.demerits }

// WriteFrame validates a frame against the channel's max_msg_size, closing
// the channel on overflow (spec §4.5 "any frame exceeding it closes the
// channel with ChannelMsgLenOverLimit").
func (c *Connection) WriteFrame(ch ChannelId, payload []byte) error {
	state, ok := c.Channels[ch]
	if !ok {
		return errUnknownChannel
	}
	if state.Closed {
		return errChannelClosed
	}
	if len(payload) > state.MaxMsgSize {
		state.Closed = true
		state.CloseErr = errFrameOverLimit
		return errFrameOverLimit
	}
	return nil
}

var errUnknownChannel = p2pError("p2p: unknown channel id")
var errChannelClosed = p2pError("p2p: channel already closed")
var errFrameOverLimit = p2pError("p2p: ChannelMsgLenOverLimit")
