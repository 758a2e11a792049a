package txn

import (
	"testing"

	"github.com/jurajselep/openmina/internal/field"
	"github.com/jurajselep/openmina/internal/ledger"
)

func zkPk(x uint64, odd bool) ledger.PublicKey {
	return ledger.PublicKey{X: field.FromUint64(x), IsOdd: odd}
}

func zkAccountId(x uint64) ledger.AccountId {
	return ledger.AccountId{PublicKey: zkPk(x, false), TokenId: ledger.TokenIdDefault}
}

func seedZkFunded(t *testing.T, led *ledger.Mask, id ledger.AccountId, balance ledger.Balance) {
	t.Helper()
	addr, acc := led.GetOrCreate(id)
	acc.Balance = balance
	led.SetAccount(addr, acc)
}

// TestZkAppTwoPassRollback exercises scenario S3: a fee payer whose fee is
// charged, followed by a single account-update whose balance precondition
// is not met. The whole second pass must roll back, leaving every account
// but the fee payer untouched.
func TestZkAppTwoPassRollback(t *testing.T) {
	led := ledger.NewBaseLedger()
	feePayerId := zkAccountId(1)
	targetId := zkAccountId(2)

	seedZkFunded(t, led, feePayerId, 1_000_000)
	seedZkFunded(t, led, targetId, 500)

	min := ledger.Balance(10_000) // target's actual balance (500) can't satisfy this
	cmd := ZkAppCommand{
		FeePayer: SignedCommand{FeePayer: feePayerId, Signer: feePayerId.PublicKey, Fee: 100, Nonce: 0},
		AccountUpdates: []AccountUpdate{
			{
				AccountId:     targetId,
				ParentIdx:     -1,
				Preconditions: Precondition{BalanceMin: &min},
				AuthKind:      AuthorizationKind{Kind: ledger.AuthKindNone},
				Authorization: Authorization{Kind: ledger.AuthKindNone},
			},
		},
	}

	status, err := ApplyZkAppCommand(ConstraintConstants{}, 0, 0, led, nil, field.Zero(), field.Zero(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Applied {
		t.Fatalf("expected overall Failed status")
	}
	if len(status.FailureBuckets) != 2 {
		t.Fatalf("expected 2 buckets (fee payer + 1 update), got %d", len(status.FailureBuckets))
	}
	if len(status.FailureBuckets[0]) != 0 {
		t.Fatalf("fee payer bucket should be empty (fee charge itself succeeded), got %v", status.FailureBuckets[0])
	}
	if len(status.FailureBuckets[1]) != 1 || status.FailureBuckets[1][0] != FailureAccountBalancePreconditionUnsatisfied {
		t.Fatalf("expected single AccountBalancePreconditionUnsatisfied, got %v", status.FailureBuckets[1])
	}

	feeAddr, _ := led.LocationOfAccount(feePayerId)
	feeAcc, _ := led.GetAccount(feeAddr)
	if feeAcc.Balance != 1_000_000-100 {
		t.Fatalf("fee payer balance should reflect the charged fee, got %d", feeAcc.Balance)
	}
	if feeAcc.Nonce != 1 {
		t.Fatalf("fee payer nonce should still advance even on body failure, got %d", feeAcc.Nonce)
	}

	targetAddr, _ := led.LocationOfAccount(targetId)
	targetAcc, _ := led.GetAccount(targetAddr)
	if targetAcc.Balance != 500 {
		t.Fatalf("target account must be untouched by the rolled-back second pass, got %d", targetAcc.Balance)
	}
}

func TestZkAppSuccessfulUpdateAppliesBalanceChange(t *testing.T) {
	led := ledger.NewBaseLedger()
	feePayerId := zkAccountId(1)
	targetId := zkAccountId(2)

	seedZkFunded(t, led, feePayerId, 1_000_000)
	seedZkFunded(t, led, targetId, 500)

	cmd := ZkAppCommand{
		FeePayer: SignedCommand{FeePayer: feePayerId, Signer: feePayerId.PublicKey, Fee: 100, Nonce: 0},
		AccountUpdates: []AccountUpdate{
			{
				AccountId:     targetId,
				ParentIdx:     -1,
				BalanceChange: ledger.NewSigned[ledger.Amount](250, ledger.Pos),
				AuthKind:      AuthorizationKind{Kind: ledger.AuthKindNone},
				Authorization: Authorization{Kind: ledger.AuthKindNone},
			},
		},
	}

	status, err := ApplyZkAppCommand(ConstraintConstants{}, 0, 0, led, nil, field.Zero(), field.Zero(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Applied {
		t.Fatalf("expected Applied status, got buckets %v", status.FailureBuckets)
	}

	targetAddr, _ := led.LocationOfAccount(targetId)
	targetAcc, _ := led.GetAccount(targetAddr)
	if targetAcc.Balance != 750 {
		t.Fatalf("expected target balance 750, got %d", targetAcc.Balance)
	}
}

func TestZkAppChildCancelledByParentFailure(t *testing.T) {
	led := ledger.NewBaseLedger()
	feePayerId := zkAccountId(1)
	parentId := zkAccountId(2)
	childId := zkAccountId(3)

	seedZkFunded(t, led, feePayerId, 1_000_000)
	seedZkFunded(t, led, parentId, 500)
	seedZkFunded(t, led, childId, 500)

	min := ledger.Balance(10_000)
	cmd := ZkAppCommand{
		FeePayer: SignedCommand{FeePayer: feePayerId, Signer: feePayerId.PublicKey, Fee: 100, Nonce: 0},
		AccountUpdates: []AccountUpdate{
			{
				AccountId:     parentId,
				ParentIdx:     -1,
				Preconditions: Precondition{BalanceMin: &min},
				AuthKind:      AuthorizationKind{Kind: ledger.AuthKindNone},
				Authorization: Authorization{Kind: ledger.AuthKindNone},
			},
			{
				AccountId:     childId,
				ParentIdx:     0,
				BalanceChange: ledger.NewSigned[ledger.Amount](10, ledger.Pos),
				AuthKind:      AuthorizationKind{Kind: ledger.AuthKindNone},
				Authorization: Authorization{Kind: ledger.AuthKindNone},
			},
		},
	}

	status, err := ApplyZkAppCommand(ConstraintConstants{}, 0, 0, led, nil, field.Zero(), field.Zero(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Applied {
		t.Fatalf("expected Failed status")
	}
	if len(status.FailureBuckets[2]) != 1 || status.FailureBuckets[2][0] != FailureCancelled {
		t.Fatalf("expected child bucket to be [Cancelled], got %v", status.FailureBuckets[2])
	}
}
