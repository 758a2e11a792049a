package txn

import (
	"github.com/jurajselep/openmina/internal/field"
	"github.com/jurajselep/openmina/internal/ledger"
)

// ConstraintConstants carries the protocol constants an apply needs (spec
// §4.4's signature), notably the account-creation fee charged out of a new
// receiver's first credit.
type ConstraintConstants struct {
	AccountCreationFee ledger.Amount
}

// Verifier is the subset of the out-of-scope CryptoEngine (spec §1) that
// transaction apply needs: signature and proof verification. The real
// Kimchi/Pickles verifier lives outside this module's scope.
type Verifier interface {
	VerifySignature(pk ledger.PublicKey, commitment field.F, sig Signature) bool
	VerifyProof(vkHash field.F, commitment field.F, proof Proof) bool
}

// Signature and Proof are opaque authorization payloads; their cryptographic
// meaning belongs to the external CryptoEngine.
type Signature struct{ Bytes []byte }
type Proof struct{ Bytes []byte }

// CommandBodyKind distinguishes a payment from a stake-delegation command.
type CommandBodyKind int

const (
	BodyPayment CommandBodyKind = iota
	BodyStakeDelegation
)

// SignedCommand is a payment or stake-delegation command (spec §4.4.1).
type SignedCommand struct {
	FeePayer   ledger.AccountId
	Signer     ledger.PublicKey
	Fee        ledger.Fee
	Nonce      ledger.Nonce
	ValidUntil uint64 // global slot
	Memo       [34]byte

	Kind     CommandBodyKind
	Receiver ledger.AccountId
	Amount   ledger.Amount // meaningful for BodyPayment only

	Signature Signature
}

// ReceiptChainHash folds a command's payload into the fee payer's receipt
// chain (spec §4.4.1 step 3, §8.2's chaining law). The domain-tagged hash
// stands in for the out-of-scope Poseidon engine (spec §1) — see DESIGN.md
// for why this can't reproduce the literal reference vector in spec §8.3 S1.
func ReceiptChainHash(prev field.F, cmd SignedCommand) field.F {
	return field.Hash(field.DomainReceiptChain,
		prev,
		field.FromUint64(uint64(cmd.Fee)),
		field.FromUint64(uint64(cmd.Nonce)),
		field.FromUint64(cmd.ValidUntil),
		field.FromUint64(uint64(cmd.Amount)),
	)
}

// ErrRejected marks a hard reject: the command is never included and no fee
// is charged. It is returned when the fee payer cannot cover the fee, the
// signer, nonce, permissions or signature do not check out, or the body
// kind is unknown.
var ErrRejected = rejectedError{}

type rejectedError struct{}

func (rejectedError) Error() string { return "txn: fee payer cannot pay or authorize the fee — command rejected" }

// ApplySignedCommand applies cmd to led at currentGlobalSlot (spec §4.4.1).
// It returns the resulting Status. An expired valid_until fails with
// [Predicate] and charges nothing; any other failure still charges the fee
// (unless the command is a hard reject — see ErrRejected) and makes no
// other mutation.
func ApplySignedCommand(cc ConstraintConstants, slot ledger.Slot, currentGlobalSlot uint64, led ledger.Ledger, v Verifier, commitment field.F, cmd SignedCommand) (Status, error) {
	// Step 1: valid_until check (fail fast, still a Failed status not a reject).
	if cmd.ValidUntil != 0 && currentGlobalSlot > cmd.ValidUntil {
		return Status{Applied: false, FailureBuckets: [][]Failure{{FailurePredicate}}}, nil
	}

	feePayerAddr, feePayer := led.GetOrCreate(cmd.FeePayer)
	if feePayer.Id.PublicKey != cmd.Signer {
		return Status{}, ErrRejected
	}

	// Step 2/3: charge the fee first; a fee payer who cannot cover it is
	// rejected outright (never makes it into a block) per spec §4.4.1.
	feeBalance, err := ledger.SubBalance(feePayer.Balance, ledger.Amount(cmd.Fee))
	if err != nil {
		return Status{}, ErrRejected
	}
	if !feePayer.Permissions.Send.Satisfied(ledger.AuthKindSignature) ||
		!feePayer.Permissions.IncrementNonce.Satisfied(ledger.AuthKindSignature) {
		return Status{}, ErrRejected
	}
	if feePayer.Nonce != cmd.Nonce {
		return Status{}, ErrRejected
	}
	if v != nil && !v.VerifySignature(cmd.Signer, commitment, cmd.Signature) {
		return Status{}, ErrRejected
	}

	feePayer.Balance = feeBalance
	feePayer.Nonce++
	feePayer.ReceiptChainHash = ReceiptChainHash(feePayer.ReceiptChainHash, cmd)

	// Step 4: re-validate timing against the post-fee balance.
	feePayer.Timing = feePayer.Timing.Settle(slot)
	if feePayer.Balance < feePayer.Timing.MinBalanceAtSlot(slot) {
		led.SetAccount(feePayerAddr, feePayer)
		return Status{Applied: false, FailureBuckets: [][]Failure{{FailureSourceMinimumBalanceViolation}}}, nil
	}
	led.SetAccount(feePayerAddr, feePayer)

	switch cmd.Kind {
	case BodyPayment:
		return applyPayment(cc, slot, led, feePayerAddr, feePayer, cmd)
	case BodyStakeDelegation:
		return applyStakeDelegation(led, feePayer, cmd)
	default:
		return Status{}, ErrRejected
	}
}

func applyPayment(cc ConstraintConstants, slot ledger.Slot, led ledger.Ledger, feePayerAddr ledger.Address, feePayer *ledger.Account, cmd SignedCommand) (Status, error) {
	if !feePayer.Permissions.Send.Satisfied(ledger.AuthKindSignature) {
		return Status{Applied: false, FailureBuckets: [][]Failure{{FailureUpdateNotPermittedBalance}}}, nil
	}
	senderBalance, err := ledger.SubBalance(feePayer.Balance, cmd.Amount)
	if err != nil {
		return Status{Applied: false, FailureBuckets: [][]Failure{{FailureSourceInsufficientBalance}}}, nil
	}

	_, existed := led.LocationOfAccount(cmd.Receiver)
	creditAmount := cmd.Amount
	if !existed {
		reduced, err := ledger.SubBalance(ledger.Balance(cmd.Amount), cc.AccountCreationFee)
		if err != nil {
			return Status{Applied: false, FailureBuckets: [][]Failure{{FailureAmountInsufficientToCreateAccount}}}, nil
		}
		creditAmount = ledger.Amount(reduced)
	}
	recvAddr, recv := led.GetOrCreate(cmd.Receiver)
	if !recv.Permissions.Receive.Satisfied(ledger.AuthKindNone) {
		return Status{Applied: false, FailureBuckets: [][]Failure{{FailureUpdateNotPermittedBalance}}}, nil
	}
	newRecvBalance, err := ledger.AddBalance(recv.Balance, creditAmount)
	if err != nil {
		return Status{Applied: false, FailureBuckets: [][]Failure{{FailureOverflow}}}, nil
	}

	feePayer.Balance = senderBalance
	recv.Balance = newRecvBalance
	led.SetAccount(feePayerAddr, feePayer)
	led.SetAccount(recvAddr, recv)
	_ = slot
	return Status{Applied: true, FailureBuckets: [][]Failure{nil}}, nil
}

func applyStakeDelegation(led ledger.Ledger, feePayer *ledger.Account, cmd SignedCommand) (Status, error) {
	// A stake-delegation target must already exist in the ledger (spec §4.4.1).
	addr, ok := led.LocationOfAccount(cmd.Receiver)
	if !ok {
		return Status{Applied: false, FailureBuckets: [][]Failure{{FailurePredicate}}}, nil
	}
	if !feePayer.Permissions.SetDelegate.Satisfied(ledger.AuthKindSignature) {
		return Status{Applied: false, FailureBuckets: [][]Failure{{FailureUpdateNotPermittedDelegate}}}, nil
	}
	recv, _ := led.GetAccount(addr)
	delegate := recv.Id.PublicKey
	feePayer.Delegate = &delegate
	feePayerAddr, _ := led.LocationOfAccount(feePayer.Id)
	led.SetAccount(feePayerAddr, feePayer)
	return Status{Applied: true, FailureBuckets: [][]Failure{nil}}, nil
}
