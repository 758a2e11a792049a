// Package rpc exposes the node's query/command surface over gRPC (spec
// §6.4), grounded on the teacher pack's grpc.NewServer/net.Listen serving
// pattern (withObsrvr-ttp-processor-demo's ttp-processor/go/main.go). Since
// no protoc-generated stubs are available in this tree, the service is
// registered by hand against a grpc.ServiceDesc using a JSON wire codec
// (codec.go) instead of fabricating .pb.go files.
package rpc

import "github.com/jurajselep/openmina/internal/ledger"

// GetStatusRequest has no fields; status is queried for the whole node.
type GetStatusRequest struct{}

// GetStatusResponse summarizes sync and chain state (spec §6.4 "status").
type GetStatusResponse struct {
	SyncPhase        string `json:"sync_phase"`
	BestTipHash      string `json:"best_tip_hash"`
	BestTipHeight    uint64 `json:"best_tip_height"`
	ConnectedPeers   int    `json:"connected_peers"`
}

// GetBalanceRequest looks up one account's balance (spec §6.4 "accounts").
type GetBalanceRequest struct {
	PublicKey string `json:"public_key"`
	TokenId   uint64 `json:"token_id"`
}

// GetBalanceResponse reports the account's current balance and nonce.
type GetBalanceResponse struct {
	Found   bool   `json:"found"`
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// SendPaymentRequest submits a signed payment for inclusion in the tx pool
// (spec §6.4 "transactions"). The signature and command body are carried
// as opaque bytes here; internal/txn owns decoding and validating them.
type SendPaymentRequest struct {
	SignedCommand []byte `json:"signed_command"`
}

// SendPaymentResponse reports pool admission, not chain inclusion.
type SendPaymentResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	TxId     uint64 `json:"tx_id"`
}

// GetSnarkWorkRequest asks for unclaimed SNARK jobs (spec §6.4 "snark work").
type GetSnarkWorkRequest struct {
	MaxJobs int `json:"max_jobs"`
}

// SnarkJobSummary is one unclaimed job's public data.
type SnarkJobSummary struct {
	JobIdLeft  string `json:"job_id_left"`
	JobIdRight string `json:"job_id_right"`
}

// GetSnarkWorkResponse lists available jobs.
type GetSnarkWorkResponse struct {
	Jobs []SnarkJobSummary `json:"jobs"`
}

// SubmitSnarkWorkRequest submits a completed proof for a job (spec §6.4).
type SubmitSnarkWorkRequest struct {
	JobIdLeft  string `json:"job_id_left"`
	JobIdRight string `json:"job_id_right"`
	Fee        uint64 `json:"fee"`
	Prover     string `json:"prover"`
	Proof      []byte `json:"proof"`
}

// SubmitSnarkWorkResponse reports whether the pool admitted the work.
type SubmitSnarkWorkResponse struct {
	Admitted bool `json:"admitted"`
}

// NewBlockEvent describes a new block by hash and height (spec §6.4
// "subscriptions"). NodeService registers no streaming method, and no
// handler returns this type.
type NewBlockEvent struct {
	Hash   string `json:"hash"`
	Height uint64 `json:"height"`
}

// accountIdFromRequest is a small helper used by the balance handler to turn
// a hex public key and token id into an AccountId.
func accountIdFromRequest(publicKeyHex string, tokenId uint64) (ledger.AccountId, error) {
	pk, err := parsePublicKey(publicKeyHex)
	if err != nil {
		return ledger.AccountId{}, err
	}
	return ledger.AccountId{PublicKey: pk, TokenId: ledger.TokenId(tokenId)}, nil
}
