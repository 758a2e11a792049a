package rpc

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"sync/atomic"

	"google.golang.org/grpc"

	"github.com/jurajselep/openmina/internal/field"
	"github.com/jurajselep/openmina/internal/kernel"
	"github.com/jurajselep/openmina/internal/ledger"
	"github.com/jurajselep/openmina/internal/reducer"
	"github.com/jurajselep/openmina/internal/snarkpool"
	"github.com/jurajselep/openmina/internal/state"
)

// Server implements the node's gRPC surface over a shared *kernel.Kernel
// (spec §6.4). Every mutating handler dispatches a reducer action through
// the kernel rather than touching state.State directly — the RPC surface is
// one of the kernel's external action sources (spec §4.1), not a side
// channel around it. Read-only handlers inspect the kernel's live State.
type Server struct {
	k     *kernel.Kernel
	clock uint64 // monotonic kernel.Time source for dispatches originating here
}

// NewServer wraps k for serving.
func NewServer(k *kernel.Kernel) *Server {
	return &Server{k: k}
}

// tick allocates the next kernel.Time value for a dispatch originating from
// this RPC surface. The kernel itself never reads a clock (spec §4.1); it is
// each external caller's job to supply one.
func (s *Server) tick() kernel.Time {
	return kernel.Time(atomic.AddUint64(&s.clock, 1))
}

func (s *Server) state() *state.State {
	return s.k.State().(*state.State)
}

// GetStatus reports sync phase and best tip (spec §6.4 "status").
// ConnectedPeers is not filled in and stays zero.
func (s *Server) GetStatus(ctx context.Context, req *GetStatusRequest) (*GetStatusResponse, error) {
	tf := s.state().TransitionFrontier
	resp := &GetStatusResponse{SyncPhase: tf.Sync.Phase.String()}
	if len(tf.BestTipChain) > 0 {
		tip := tf.BestTipChain[len(tf.BestTipChain)-1]
		resp.BestTipHash = tip.Hash.String()
		resp.BestTipHeight = uint64(tip.Height)
	}
	return resp, nil
}

// GetBalance looks up an account by its hex-encoded public key x-coordinate
// (spec §6.4 "accounts"). Full base58check Mina public-key decoding is out
// of scope for this surface; callers pass the field element directly.
func (s *Server) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
	id, err := accountIdFromRequest(req.PublicKey, req.TokenId)
	if err != nil {
		return nil, err
	}
	st := s.state()
	addr, ok := st.Ledger.LocationOfAccount(id)
	if !ok {
		return &GetBalanceResponse{Found: false}, nil
	}
	acct, ok := st.Ledger.GetAccount(addr)
	if !ok {
		return &GetBalanceResponse{Found: false}, nil
	}
	return &GetBalanceResponse{Found: true, Balance: uint64(acct.Balance), Nonce: uint64(acct.Nonce)}, nil
}

// SendPayment accepts a signed command into the tx pool (spec §6.4
// "transactions"). Full decode/apply is the caller's concern; this surface
// only dispatches the pool-admission bookkeeping through the kernel.
func (s *Server) SendPayment(ctx context.Context, req *SendPaymentRequest) (*SendPaymentResponse, error) {
	if len(req.SignedCommand) == 0 {
		return &SendPaymentResponse{Accepted: false, Reason: "empty signed_command"}, nil
	}
	var id uint64
	s.k.Dispatch(reducer.TxPoolEnqueue{SignedCommand: req.SignedCommand, AssignedTxId: &id}, s.tick())
	return &SendPaymentResponse{Accepted: true, TxId: id}, nil
}

// GetSnarkWork lists up to maxJobs unclaimed jobs from the admitted pool
// (spec §6.4 "snark work").
func (s *Server) GetSnarkWork(ctx context.Context, req *GetSnarkWorkRequest) (*GetSnarkWorkResponse, error) {
	jobs := s.state().SnarkPool.Jobs(req.MaxJobs)
	out := make([]SnarkJobSummary, len(jobs))
	for i, j := range jobs {
		out[i] = SnarkJobSummary{JobIdLeft: fieldHex(j.Left), JobIdRight: fieldHex(j.Right)}
	}
	return &GetSnarkWorkResponse{Jobs: out}, nil
}

// SubmitSnarkWork admits a completed proof into the pool (spec §4.6).
func (s *Server) SubmitSnarkWork(ctx context.Context, req *SubmitSnarkWorkRequest) (*SubmitSnarkWorkResponse, error) {
	left, err := parseFieldHex(req.JobIdLeft)
	if err != nil {
		return nil, fmt.Errorf("rpc: parse job_id_left: %w", err)
	}
	right, err := parseFieldHex(req.JobIdRight)
	if err != nil {
		return nil, fmt.Errorf("rpc: parse job_id_right: %w", err)
	}
	job := snarkpool.JobId{Left: left, Right: right}
	snark := snarkpool.Snark{JobId: job, Fee: req.Fee, Prover: req.Prover, Proof: req.Proof}

	var admitted bool
	s.k.Dispatch(reducer.SnarkWorkSubmit{Snark: snark, Admitted: &admitted}, s.tick())
	return &SubmitSnarkWorkResponse{Admitted: admitted}, nil
}

func parsePublicKey(hexStr string) (ledger.PublicKey, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return ledger.PublicKey{}, fmt.Errorf("rpc: invalid public key hex: %w", err)
	}
	x := field.FromBytes(raw)
	return ledger.PublicKey{X: x}, nil
}

func parseFieldHex(hexStr string) (field.F, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return field.F{}, fmt.Errorf("rpc: invalid hex: %w", err)
	}
	return field.FromBytes(raw), nil
}

func fieldHex(f field.F) string {
	b := f.Bytes()
	return hex.EncodeToString(b[:])
}

// NewGRPCServer builds a *grpc.Server with the NodeService registered over
// the JSON wire codec (codec.go), mirroring the teacher's
// grpc.NewServer()/RegisterXServer()/net.Listen pattern.
func NewGRPCServer(k *kernel.Kernel) *grpc.Server {
	srv := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	RegisterNodeServiceServer(srv, NewServer(k))
	return srv
}

// Serve listens on addr and blocks serving the node's gRPC surface.
func Serve(srv *grpc.Server, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen on %s: %w", addr, err)
	}
	return srv.Serve(lis)
}
