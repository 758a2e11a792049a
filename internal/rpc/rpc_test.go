package rpc

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/jurajselep/openmina/internal/field"
	"github.com/jurajselep/openmina/internal/kernel"
	"github.com/jurajselep/openmina/internal/reducer"
	"github.com/jurajselep/openmina/internal/snarkpool"
	"github.com/jurajselep/openmina/internal/state"
)

func hexOf(f field.F) string {
	b := f.Bytes()
	return hex.EncodeToString(b[:])
}

func newTestServer() *Server {
	k := kernel.New(state.New(), reducer.New(), nil)
	return NewServer(k)
}

func TestGetStatusReportsIdleSyncOnFreshState(t *testing.T) {
	s := newTestServer()
	resp, err := s.GetStatus(context.Background(), &GetStatusRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SyncPhase != "idle" {
		t.Fatalf("expected a fresh frontier to report idle, got %q", resp.SyncPhase)
	}
}

func TestGetBalanceReportsNotFoundForUnknownAccount(t *testing.T) {
	s := newTestServer()
	resp, err := s.GetBalance(context.Background(), &GetBalanceRequest{PublicKey: "01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Found {
		t.Fatalf("expected an account absent from a fresh ledger to be unfound")
	}
}

func TestSendPaymentAcceptsNonEmptyCommand(t *testing.T) {
	s := newTestServer()
	resp, err := s.SendPayment(context.Background(), &SendPaymentRequest{SignedCommand: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Accepted {
		t.Fatalf("expected a non-empty signed command to be accepted into the pool")
	}
}

func TestSendPaymentRejectsEmptyCommand(t *testing.T) {
	s := newTestServer()
	resp, err := s.SendPayment(context.Background(), &SendPaymentRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Accepted {
		t.Fatalf("expected an empty signed command to be rejected")
	}
}

func TestSendPaymentDispatchesThroughTheKernel(t *testing.T) {
	k := kernel.New(state.New(), reducer.New(), nil)
	s := NewServer(k)

	if _, err := s.SendPayment(context.Background(), &SendPaymentRequest{SignedCommand: []byte{1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trace := k.Trace()
	if len(trace) != 1 {
		t.Fatalf("expected exactly one recorded dispatch, got %d", len(trace))
	}
	if _, ok := trace[0].Action.(reducer.TxPoolEnqueue); !ok {
		t.Fatalf("expected the recorded action to be a TxPoolEnqueue, got %T", trace[0].Action)
	}
}

func TestSubmitSnarkWorkThenGetSnarkWorkRoundTrips(t *testing.T) {
	s := newTestServer()

	job := snarkpool.JobId{Left: field.FromUint64(1), Right: field.FromUint64(2)}
	leftHex := hexOf(job.Left)
	rightHex := hexOf(job.Right)

	submitResp, err := s.SubmitSnarkWork(context.Background(), &SubmitSnarkWorkRequest{
		JobIdLeft: leftHex, JobIdRight: rightHex, Fee: 10, Prover: "proverA",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !submitResp.Admitted {
		t.Fatalf("expected the first submission for a job to be admitted")
	}

	work, err := s.GetSnarkWork(context.Background(), &GetSnarkWorkRequest{MaxJobs: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(work.Jobs) != 1 {
		t.Fatalf("expected exactly one listed job, got %d", len(work.Jobs))
	}
}
