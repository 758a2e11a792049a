package txn

import (
	"fmt"

	"github.com/jurajselep/openmina/internal/field"
	"github.com/jurajselep/openmina/internal/ledger"
)

// Precondition is the set of guards an AccountUpdate may place on the
// account it touches (spec §4.4.2 step 2). A nil/zero field means "accept
// anything" for that aspect.
type Precondition struct {
	BalanceMin *ledger.Balance
	BalanceMax *ledger.Balance
	NonceMin   *ledger.Nonce
	NonceMax   *ledger.Nonce

	ReceiptChainHash *field.F
	Delegate         *ledger.PublicKey
	AppState         [8]*field.F
	ActionState      *field.F
	ProvedState      *bool
	IsNew            *bool
}

// Update is the set of account aspects an AccountUpdate may change. A nil
// pointer means "keep the current value" (spec §4.4.2 step 3/4).
type Update struct {
	AppState        [8]*field.F
	Delegate        *ledger.PublicKey
	VerificationKey *ledger.VerificationKey
	ClearVK         bool
	Permissions     *ledger.Permissions
	ZkappUri        *string
	TokenSymbol     *string
	Timing          *ledger.Timing
	VotingFor       *field.F
}

// AuthorizationKind is the declared authorization requirement of an update
// (spec §4.4.2 step 1).
type AuthorizationKind struct {
	Kind   ledger.AuthKind
	VKHash field.F // meaningful only when Kind == AuthKindProof
}

// Authorization is what was actually attached to an update.
type Authorization struct {
	Kind      ledger.AuthKind
	Signature Signature
	Proof     Proof
}

// AccountUpdate is one node of the zkApp call-forest (spec §4.4.2). ParentIdx
// is -1 for a top-level update and otherwise indexes into the same
// ZkAppCommand.AccountUpdates slice — the arena+indices representation spec
// §9 recommends in place of owned recursive trees.
type AccountUpdate struct {
	AccountId         ledger.AccountId
	ParentIdx         int
	Preconditions     Precondition
	Update            Update
	BalanceChange     ledger.Signed[ledger.Amount]
	UseFullCommitment bool
	AuthKind          AuthorizationKind
	Authorization     Authorization

	// Events and Actions are the update's raw event/action element lists
	// (spec §4.4.2's AccountUpdate body); only their element counts matter to the
	// admission-time cost guard (CheckCostGuard) — their on-chain folding
	// into ActionState is out of scope for this module.
	Events  [][]field.F
	Actions [][]field.F
}

// ZkAppCommand is {fee_payer, account_updates, memo} (spec §4.4.2).
type ZkAppCommand struct {
	FeePayer       SignedCommand // Kind/Amount/Receiver unused for the fee-payer segment
	AccountUpdates []AccountUpdate
	Memo           [34]byte
}

// Commitment is H(account_updates_hash); FullCommitment additionally mixes
// memo hash and fee-payer hash (spec §4.4.2 "Commitment").
func Commitment(updatesHash field.F) field.F {
	return field.Hash(field.DomainAccountUpdateCons, updatesHash)
}

func FullCommitment(commitment field.F, memoHash, feePayerHash field.F) field.F {
	return field.Hash(field.DomainAccountUpdateCons, commitment, memoHash, feePayerHash)
}

// ApplyZkAppCommand runs the two-pass apply (spec §4.4.2): a fee-payer
// segment identical in shape to a signed command's fee charge, followed by a
// depth-first walk of the call-forest against a scratch mask that is either
// committed wholesale (every update succeeded) or discarded (any update
// failed, leaving only the fee-payer's mutation — spec's rollback semantics).
func ApplyZkAppCommand(cc ConstraintConstants, slot ledger.Slot, currentGlobalSlot uint64, led ledger.Ledger, v Verifier, commitment, fullCommitment field.F, cmd ZkAppCommand) (Status, error) {
	feePayerAddr, feePayer := led.GetOrCreate(cmd.FeePayer.FeePayer)
	if feePayer.Id.PublicKey != cmd.FeePayer.Signer {
		return Status{}, ErrRejected
	}
	feeBalance, err := ledger.SubBalance(feePayer.Balance, ledger.Amount(cmd.FeePayer.Fee))
	if err != nil {
		return Status{}, ErrRejected
	}
	if !feePayer.Permissions.Send.Satisfied(ledger.AuthKindSignature) ||
		!feePayer.Permissions.IncrementNonce.Satisfied(ledger.AuthKindSignature) {
		return Status{}, ErrRejected
	}
	if feePayer.Nonce != cmd.FeePayer.Nonce {
		return Status{}, ErrRejected
	}
	if v != nil && !v.VerifySignature(cmd.FeePayer.Signer, fullCommitment, cmd.FeePayer.Signature) {
		return Status{}, ErrRejected
	}
	feePayer.Balance = feeBalance
	feePayer.Nonce++
	feePayer.ReceiptChainHash = ReceiptChainHash(feePayer.ReceiptChainHash, cmd.FeePayer)
	feePayer.Timing = feePayer.Timing.Settle(slot)
	if feePayer.Balance < feePayer.Timing.MinBalanceAtSlot(slot) {
		led.SetAccount(feePayerAddr, feePayer)
		return Status{Applied: false, FailureBuckets: [][]Failure{{FailureSourceMinimumBalanceViolation}}}, nil
	}
	led.SetAccount(feePayerAddr, feePayer)

	buckets := make([][]Failure, len(cmd.AccountUpdates)+1)
	buckets[0] = nil

	work := led.CreateMasked()
	subtreeFailed := make([]bool, len(cmd.AccountUpdates))
	liveVK := make(map[ledger.AccountId]*ledger.VerificationKey)
	anyFailure := false

	for i, u := range cmd.AccountUpdates {
		idx := i + 1 // bucket index, fee payer occupies 0
		if u.ParentIdx >= 0 && subtreeFailed[u.ParentIdx] {
			buckets[idx] = []Failure{FailureCancelled}
			subtreeFailed[i] = true
			anyFailure = true
			continue
		}

		var failures []Failure

		// step 1: authorization kind must match what was actually presented.
		if u.AuthKind.Kind != u.Authorization.Kind {
			failures = append(failures, FailureUnexpectedVerificationKeyHash)
		}
		if u.AuthKind.Kind == ledger.AuthKindProof {
			expected := expectedVK(work, liveVK, u.AccountId)
			if expected == nil || !expected.Hash.Equal(u.AuthKind.VKHash) {
				failures = append(failures, FailureUnexpectedVerificationKeyHash)
			} else if v != nil && !v.VerifyProof(u.AuthKind.VKHash, pickCommitment(u, commitment, fullCommitment), u.Authorization.Proof) {
				failures = append(failures, FailurePredicate)
			}
		}
		if u.AuthKind.Kind == ledger.AuthKindSignature && v != nil {
			if !v.VerifySignature(u.AccountId.PublicKey, pickCommitment(u, commitment, fullCommitment), u.Authorization.Signature) {
				failures = append(failures, FailurePredicate)
			}
		}

		addr, acc := work.GetOrCreate(u.AccountId)
		// work on a private copy: the pointer may belong to led, and a later
		// failure must leave led's account untouched.
		acc = acc.Clone()
		failures = append(failures, checkPreconditions(acc, u.Preconditions, slot)...)
		failures = append(failures, checkUpdatePermissions(acc, u.Update, u.AuthKind.Kind)...)

		if len(failures) == 0 {
			newBal, balErr := applyBalanceChange(acc.Balance, u.BalanceChange)
			if balErr != nil {
				failures = append(failures, FailureOverflow)
			} else {
				acc.Balance = newBal
				applyUpdate(acc, u.Update)
				acc.Timing = acc.Timing.Settle(slot)
				if acc.Balance < acc.Timing.MinBalanceAtSlot(slot) {
					failures = append(failures, FailureSourceMinimumBalanceViolation)
				}
			}
		}

		if len(failures) > 0 {
			buckets[idx] = failures
			subtreeFailed[i] = true
			anyFailure = true
			continue
		}

		work.SetAccount(addr, acc)
		if u.Update.VerificationKey != nil {
			liveVK[u.AccountId] = u.Update.VerificationKey
		} else if u.Update.ClearVK {
			liveVK[u.AccountId] = nil
		}
	}

	if anyFailure {
		// discard `work`: only the fee payer's first-pass mutation persists.
		return Status{Applied: false, FailureBuckets: buckets}, nil
	}
	if err := work.Commit(); err != nil {
		return Status{}, err
	}
	return Status{Applied: true, FailureBuckets: buckets}, nil
}

func pickCommitment(u AccountUpdate, commitment, fullCommitment field.F) field.F {
	if u.UseFullCommitment {
		return fullCommitment
	}
	return commitment
}

// expectedVK resolves the verifying key an update's Proof authorization must
// match: an in-transaction override from an earlier update to the same
// account takes precedence over the ledger's currently stored key (spec
// §4.4.2 "Verification-key lookup").
func expectedVK(led ledger.Ledger, liveVK map[ledger.AccountId]*ledger.VerificationKey, id ledger.AccountId) *ledger.VerificationKey {
	if vk, ok := liveVK[id]; ok {
		return vk
	}
	if addr, ok := led.LocationOfAccount(id); ok {
		if acc, ok := led.GetAccount(addr); ok && acc.Zkapp != nil {
			return acc.Zkapp.VerificationKey
		}
	}
	return nil
}

func checkPreconditions(acc *ledger.Account, p Precondition, slot ledger.Slot) []Failure {
	var out []Failure
	if p.BalanceMin != nil && acc.Balance < *p.BalanceMin {
		out = append(out, FailureAccountBalancePreconditionUnsatisfied)
	}
	if p.BalanceMax != nil && acc.Balance > *p.BalanceMax {
		out = append(out, FailureAccountBalancePreconditionUnsatisfied)
	}
	if p.NonceMin != nil && acc.Nonce < *p.NonceMin {
		out = append(out, FailureAccountNoncePreconditionUnsatisfied)
	}
	if p.NonceMax != nil && acc.Nonce > *p.NonceMax {
		out = append(out, FailureAccountNoncePreconditionUnsatisfied)
	}
	if p.ReceiptChainHash != nil && !acc.ReceiptChainHash.Equal(*p.ReceiptChainHash) {
		out = append(out, FailureAccountReceiptChainHashPreconditionUnsatisfied)
	}
	if p.Delegate != nil && (acc.Delegate == nil || *acc.Delegate != *p.Delegate) {
		out = append(out, FailureAccountDelegatePreconditionUnsatisfied)
	}
	if acc.Zkapp != nil {
		for i, want := range p.AppState {
			if want != nil && !acc.Zkapp.AppState[i].Equal(*want) {
				out = append(out, FailureAccountBalancePreconditionUnsatisfied)
			}
		}
		if p.ActionState != nil {
			matched := false
			for _, s := range acc.Zkapp.ActionState {
				if s.Equal(*p.ActionState) {
					matched = true
					break
				}
			}
			if !matched {
				out = append(out, FailureAccountActionStatePreconditionUnsatisfied)
			}
		}
		if p.ProvedState != nil && acc.Zkapp.ProvedState != *p.ProvedState {
			out = append(out, FailureAccountProvedStatePreconditionUnsatisfied)
		}
	}
	if p.IsNew != nil {
		isNew := acc.Balance == 0 && acc.Nonce == 0 && acc.Zkapp == nil
		if isNew != *p.IsNew {
			out = append(out, FailureAccountIsNewPreconditionUnsatisfied)
		}
	}
	_ = slot
	return out
}

func checkUpdatePermissions(acc *ledger.Account, u Update, given ledger.AuthKind) []Failure {
	var out []Failure
	check := func(req ledger.AuthRequired, fail Failure) {
		if !req.Satisfied(given) {
			out = append(out, fail)
		}
	}
	if u.Delegate != nil {
		check(acc.Permissions.SetDelegate, FailureUpdateNotPermittedDelegate)
	}
	if u.VerificationKey != nil || u.ClearVK {
		check(acc.Permissions.SetVerificationKey, FailureUpdateNotPermittedVerificationKey)
	}
	if u.Permissions != nil {
		check(acc.Permissions.SetPermissions, FailureUpdateNotPermittedPermissions)
	}
	if u.ZkappUri != nil {
		check(acc.Permissions.SetZkappUri, FailureUpdateNotPermittedZkappUri)
	}
	if u.TokenSymbol != nil {
		check(acc.Permissions.SetTokenSymbol, FailureUpdateNotPermittedTokenSymbol)
	}
	if u.Timing != nil {
		check(acc.Permissions.SetTiming, FailureUpdateNotPermittedTiming)
	}
	if u.VotingFor != nil {
		check(acc.Permissions.SetVotingFor, FailureUpdateNotPermittedVotingFor)
	}
	for _, s := range u.AppState {
		if s != nil {
			check(acc.Permissions.EditActionState, FailureUpdateNotPermittedAppState)
			break
		}
	}
	return out
}

func applyBalanceChange(bal ledger.Balance, change ledger.Signed[ledger.Amount]) (ledger.Balance, error) {
	if change.Sign == ledger.Pos {
		return ledger.AddBalance(bal, change.Magnitude)
	}
	return ledger.SubBalance(bal, change.Magnitude)
}

func applyUpdate(acc *ledger.Account, u Update) {
	if u.Delegate != nil {
		d := *u.Delegate
		acc.Delegate = &d
	}
	if acc.Zkapp == nil && (hasAppState(u) || u.VerificationKey != nil || u.ClearVK) {
		acc.Zkapp = &ledger.ZkappAccount{}
	}
	if acc.Zkapp != nil {
		for i, s := range u.AppState {
			if s != nil {
				acc.Zkapp.AppState[i] = *s
			}
		}
		if u.VerificationKey != nil {
			acc.Zkapp.VerificationKey = u.VerificationKey
		} else if u.ClearVK {
			acc.Zkapp.VerificationKey = nil
		}
	}
	if u.Permissions != nil {
		acc.Permissions = *u.Permissions
	}
	if u.ZkappUri != nil && acc.Zkapp != nil {
		acc.Zkapp.ZkappUri = *u.ZkappUri
	}
	if u.TokenSymbol != nil {
		acc.TokenSymbol = *u.TokenSymbol
	}
	if u.Timing != nil {
		acc.Timing = *u.Timing
	}
	if u.VotingFor != nil {
		acc.VotingFor = *u.VotingFor
	}
}

func hasAppState(u Update) bool {
	for _, s := range u.AppState {
		if s != nil {
			return true
		}
	}
	return false
}

// CostConstants bounds admission-time zkApp command size (spec §4.4.2 "Cost
// guard").
type CostConstants struct {
	CostLimit         float64
	MaxEventElements  int
	MaxActionElements int
}

// DefaultCostConstants mirrors the mainnet segment-cost limit and the
// command-wide event/action element maxima.
func DefaultCostConstants() CostConstants {
	return CostConstants{CostLimit: 69.45, MaxEventElements: 100, MaxActionElements: 100}
}

// segmentCounts tallies an update forest into the three segment kinds the
// cost formula weighs: one proof segment per Proof-authorized update, and
// consecutive runs of non-proof (Signature/NoneGiven) updates paired up two
// to a segment (S2) with any odd update left over counted as a
// single-update segment (S1) — the circuit-selection grouping the protocol's
// segment-cost formula charges for.
func segmentCounts(cmd ZkAppCommand) (p, s2, s1 int) {
	signedRun := 0
	flush := func() {
		s2 += signedRun / 2
		s1 += signedRun % 2
		signedRun = 0
	}
	for _, u := range cmd.AccountUpdates {
		if u.AuthKind.Kind == ledger.AuthKindProof {
			flush()
			p++
			continue
		}
		signedRun++
	}
	flush()
	return p, s2, s1
}

// CheckCostGuard rejects a zkApp command at admission time if its segment
// cost meets or exceeds cc's configured limit, or if the command's total
// event or action element count exceeds the configured maxima (spec §4.4.2
// "Cost guard"). The reducer calls it in its ApplyZkAppCommand case, just
// before the apply.
func CheckCostGuard(cc CostConstants, cmd ZkAppCommand) error {
	p, s2, s1 := segmentCounts(cmd)
	cost := 10.26*float64(p) + 10.08*float64(s2) + 9.14*float64(s1)
	if cost >= cc.CostLimit {
		return fmt.Errorf("txn: zkApp command cost %.2f meets or exceeds limit %.2f (P=%d S2=%d S1=%d)", cost, cc.CostLimit, p, s2, s1)
	}
	events, actions := 0, 0
	for _, u := range cmd.AccountUpdates {
		for _, e := range u.Events {
			events += len(e)
		}
		for _, a := range u.Actions {
			actions += len(a)
		}
	}
	if events > cc.MaxEventElements {
		return fmt.Errorf("txn: zkApp command has %d event elements, exceeding maximum %d", events, cc.MaxEventElements)
	}
	if actions > cc.MaxActionElements {
		return fmt.Errorf("txn: zkApp command has %d action elements, exceeding maximum %d", actions, cc.MaxActionElements)
	}
	return nil
}
