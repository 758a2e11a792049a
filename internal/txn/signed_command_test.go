package txn

import (
	"testing"

	"github.com/jurajselep/openmina/internal/field"
	"github.com/jurajselep/openmina/internal/ledger"
)

func scPk(x uint64) ledger.PublicKey {
	return ledger.PublicKey{X: field.FromUint64(x)}
}

func scAccountId(x uint64) ledger.AccountId {
	return ledger.AccountId{PublicKey: scPk(x), TokenId: ledger.TokenIdDefault}
}

func scSeed(t *testing.T, led *ledger.Mask, id ledger.AccountId, balance ledger.Balance) {
	t.Helper()
	addr, acc := led.GetOrCreate(id)
	acc.Balance = balance
	led.SetAccount(addr, acc)
}

var cc = ConstraintConstants{AccountCreationFee: 1}

func TestApplyPaymentCreditsReceiverAndDebitsSender(t *testing.T) {
	led := ledger.NewBaseLedger()
	sender := scAccountId(1)
	receiver := scAccountId(2)
	scSeed(t, led, sender, 1000)
	scSeed(t, led, receiver, 500)

	cmd := SignedCommand{
		FeePayer: sender, Signer: sender.PublicKey, Fee: 10, Nonce: 0,
		Kind: BodyPayment, Receiver: receiver, Amount: 100,
	}
	status, err := ApplySignedCommand(cc, 0, 0, led, nil, field.Zero(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Applied {
		t.Fatalf("expected Applied, got %v", status.FailureBuckets)
	}

	sAddr, _ := led.LocationOfAccount(sender)
	sAcc, _ := led.GetAccount(sAddr)
	if sAcc.Balance != 1000-10-100 {
		t.Fatalf("sender balance = %d, want %d", sAcc.Balance, 1000-10-100)
	}
	rAddr, _ := led.LocationOfAccount(receiver)
	rAcc, _ := led.GetAccount(rAddr)
	if rAcc.Balance != 600 {
		t.Fatalf("receiver balance = %d, want 600", rAcc.Balance)
	}
	if sAcc.Nonce != 1 {
		t.Fatalf("sender nonce should advance to 1, got %d", sAcc.Nonce)
	}
}

func TestApplyPaymentNewReceiverPaysAccountCreationFee(t *testing.T) {
	led := ledger.NewBaseLedger()
	sender := scAccountId(1)
	receiver := scAccountId(2) // never seeded: brand new
	scSeed(t, led, sender, 1000)

	cmd := SignedCommand{
		FeePayer: sender, Signer: sender.PublicKey, Fee: 10, Nonce: 0,
		Kind: BodyPayment, Receiver: receiver, Amount: 100,
	}
	status, err := ApplySignedCommand(cc, 0, 0, led, nil, field.Zero(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Applied {
		t.Fatalf("expected Applied, got %v", status.FailureBuckets)
	}
	rAddr, _ := led.LocationOfAccount(receiver)
	rAcc, _ := led.GetAccount(rAddr)
	if rAcc.Balance != 100-1 {
		t.Fatalf("new receiver balance = %d, want %d (amount minus creation fee)", rAcc.Balance, 100-1)
	}
}

func TestApplyPaymentInsufficientBalanceFails(t *testing.T) {
	led := ledger.NewBaseLedger()
	sender := scAccountId(1)
	receiver := scAccountId(2)
	scSeed(t, led, sender, 50)
	scSeed(t, led, receiver, 0)

	cmd := SignedCommand{
		FeePayer: sender, Signer: sender.PublicKey, Fee: 10, Nonce: 0,
		Kind: BodyPayment, Receiver: receiver, Amount: 1000,
	}
	status, err := ApplySignedCommand(cc, 0, 0, led, nil, field.Zero(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Applied {
		t.Fatalf("expected Failed status")
	}
	if status.FailureBuckets[0][0] != FailureSourceInsufficientBalance {
		t.Fatalf("expected SourceInsufficientBalance, got %v", status.FailureBuckets[0])
	}

	sAddr, _ := led.LocationOfAccount(sender)
	sAcc, _ := led.GetAccount(sAddr)
	if sAcc.Balance != 40 {
		t.Fatalf("fee is still charged on body failure: balance = %d, want 40", sAcc.Balance)
	}
}

func TestApplySignedCommandRejectsWhenFeePayerCannotCoverFee(t *testing.T) {
	led := ledger.NewBaseLedger()
	sender := scAccountId(1)
	scSeed(t, led, sender, 5)

	cmd := SignedCommand{
		FeePayer: sender, Signer: sender.PublicKey, Fee: 10, Nonce: 0,
		Kind: BodyPayment, Receiver: scAccountId(2), Amount: 1,
	}
	_, err := ApplySignedCommand(cc, 0, 0, led, nil, field.Zero(), cmd)
	if err != ErrRejected {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestApplyStakeDelegationRequiresExistingReceiver(t *testing.T) {
	led := ledger.NewBaseLedger()
	sender := scAccountId(1)
	scSeed(t, led, sender, 1000)

	cmd := SignedCommand{
		FeePayer: sender, Signer: sender.PublicKey, Fee: 10, Nonce: 0,
		Kind: BodyStakeDelegation, Receiver: scAccountId(99),
	}
	status, err := ApplySignedCommand(cc, 0, 0, led, nil, field.Zero(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Applied {
		t.Fatalf("expected Failed status for delegating to a nonexistent account")
	}
}

func TestApplyStakeDelegationSetsDelegate(t *testing.T) {
	led := ledger.NewBaseLedger()
	sender := scAccountId(1)
	target := scAccountId(2)
	scSeed(t, led, sender, 1000)
	scSeed(t, led, target, 0)

	cmd := SignedCommand{
		FeePayer: sender, Signer: sender.PublicKey, Fee: 10, Nonce: 0,
		Kind: BodyStakeDelegation, Receiver: target,
	}
	status, err := ApplySignedCommand(cc, 0, 0, led, nil, field.Zero(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Applied {
		t.Fatalf("expected Applied, got %v", status.FailureBuckets)
	}
	sAddr, _ := led.LocationOfAccount(sender)
	sAcc, _ := led.GetAccount(sAddr)
	if sAcc.Delegate == nil || *sAcc.Delegate != target.PublicKey {
		t.Fatalf("expected sender to delegate to target, got %v", sAcc.Delegate)
	}
}

func TestApplySignedCommandValidUntilExpired(t *testing.T) {
	led := ledger.NewBaseLedger()
	sender := scAccountId(1)
	scSeed(t, led, sender, 1000)

	cmd := SignedCommand{
		FeePayer: sender, Signer: sender.PublicKey, Fee: 10, Nonce: 0,
		ValidUntil: 5,
		Kind:       BodyPayment, Receiver: scAccountId(2), Amount: 1,
	}
	status, err := ApplySignedCommand(cc, 0, 10, led, nil, field.Zero(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Applied {
		t.Fatalf("expected expired command to fail without charging anything")
	}
	sAddr, _ := led.LocationOfAccount(sender)
	sAcc, _ := led.GetAccount(sAddr)
	if sAcc.Balance != 1000 {
		t.Fatalf("expired command must not charge the fee, balance = %d", sAcc.Balance)
	}
}
