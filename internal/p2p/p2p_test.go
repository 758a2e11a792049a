package p2p

import "testing"

func TestVerifyAndPromoteSucceedsOnMatchingKey(t *testing.T) {
	s := NewState()
	s.Dial("peerA", TransportLibp2p, 4)

	key := []byte{1, 2, 3}
	err := s.VerifyAndPromote("peerA", ConnectionAuth{ClaimedPeerId: "peerA", EnclosedPubKey: key, HandshakePubKey: key})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := s.Connection("peerA")
	if c.State != StateReady {
		t.Fatalf("expected Ready, got %v", c.State)
	}
}

// TestConnectionAuthMismatchNeverPromotes exercises scenario S6: a peer
// whose ConnectionAuth public key doesn't match its claimed identity must
// never reach Ready.
func TestConnectionAuthMismatchNeverPromotes(t *testing.T) {
	s := NewState()
	s.Dial("peerA", TransportLibp2p, 4)

	err := s.VerifyAndPromote("peerA", ConnectionAuth{
		ClaimedPeerId:   "peerA",
		EnclosedPubKey:  []byte{9, 9, 9},
		HandshakePubKey: []byte{1, 2, 3},
	})
	if err == nil {
		t.Fatalf("expected an error on key mismatch")
	}
	c, _ := s.Connection("peerA")
	if c.State == StateReady {
		t.Fatalf("connection must never reach Ready on auth mismatch")
	}
	if s.Demerits().Score("peerA") == 0 {
		t.Fatalf("expected the mismatch to be recorded as a demerit offense")
	}
}

func TestWriteFrameClosesChannelOverLimit(t *testing.T) {
	s := NewState()
	c := s.Dial("peerA", TransportWebRTC, 4)
	c.Channels[ChannelRpc].MaxMsgSize = 8

	if err := c.WriteFrame(ChannelRpc, make([]byte, 4)); err != nil {
		t.Fatalf("unexpected error for a frame within the limit: %v", err)
	}
	if err := c.WriteFrame(ChannelRpc, make([]byte, 100)); err == nil {
		t.Fatalf("expected ChannelMsgLenOverLimit for an oversized frame")
	}
	if !c.Channels[ChannelRpc].Closed {
		t.Fatalf("expected the channel to be closed after an oversized frame")
	}
}

func TestRpcStateConcurrencyLimit(t *testing.T) {
	r := RpcState{Inflight: make(map[uint64]struct{}), Concurrency: 2}
	if !r.CanSendRequest() {
		t.Fatalf("expected room for a request")
	}
	id1 := r.AllocRpcId()
	id2 := r.AllocRpcId()
	_ = id2
	if r.CanSendRequest() {
		t.Fatalf("expected no more free slots at the concurrency limit")
	}
	r.Complete(id1)
	if !r.CanSendRequest() {
		t.Fatalf("expected a freed slot to be usable again")
	}
}

func TestDemeritTableThresholdDisconnects(t *testing.T) {
	tbl := NewDemeritTable()
	var crossed bool
	for i := 0; i < 3; i++ {
		crossed = tbl.RecordOffense("peerA", OffenseAuthMismatch)
	}
	if !crossed {
		t.Fatalf("expected repeated auth-mismatch offenses to cross the threshold")
	}
}
