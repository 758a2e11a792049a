package ledger

import "github.com/jurajselep/openmina/internal/field"

// TimingKind distinguishes an untimed account from one with a vesting
// schedule (spec §3.2).
type TimingKind int

const (
	Untimed TimingKind = iota
	Timed
)

// Timing describes a slot-dependent minimum-balance schedule. Only the Timed
// fields are meaningful when Kind == Timed.
type Timing struct {
	Kind               TimingKind
	InitialMinBalance  Balance
	CliffTime          Slot
	CliffAmount        Amount
	VestingPeriod      Slot
	VestingIncrement   Amount
}

// MinBalanceAtSlot computes the slot-dependent minimum balance below which an
// account's balance must never fall (spec §3.2 invariant). Once the computed
// minimum reaches zero the caller should flip Kind back to Untimed.
func (t Timing) MinBalanceAtSlot(slot Slot) Balance {
	if t.Kind == Untimed {
		return 0
	}
	if slot < t.CliffTime {
		return t.InitialMinBalance
	}
	vested := Amount(t.CliffAmount)
	if t.VestingPeriod > 0 {
		periods := uint64(slot-t.CliffTime)/uint64(t.VestingPeriod) + 1
		vested = Amount(uint64(t.CliffAmount) + periods*uint64(t.VestingIncrement))
	}
	min, err := SubBalance(t.InitialMinBalance, vested)
	if err != nil {
		return 0
	}
	return min
}

// Settle returns the timing as it should be recorded after applying slot: if
// the computed minimum has reached zero, the account becomes Untimed,
// matching the invariant in spec §3.2.
func (t Timing) Settle(slot Slot) Timing {
	if t.Kind == Untimed {
		return t
	}
	if t.MinBalanceAtSlot(slot) == 0 {
		return Timing{Kind: Untimed}
	}
	return t
}

// AuthRequired is one of the permission levels an account aspect may demand
// (spec §3.2).
type AuthRequired int

const (
	AuthNone AuthRequired = iota
	AuthEither
	AuthProof
	AuthSignature
	AuthBoth
	AuthImpossible
)

// Satisfied reports whether an authorization of kind `given` meets this
// requirement level.
func (r AuthRequired) Satisfied(given AuthKind) bool {
	switch r {
	case AuthNone:
		return true
	case AuthImpossible:
		return false
	case AuthSignature:
		return given == AuthKindSignature
	case AuthProof:
		return given == AuthKindProof
	case AuthEither:
		return given == AuthKindSignature || given == AuthKindProof
	case AuthBoth:
		return given == AuthKindSignature // fee-payer layer always also signs
	default:
		return false
	}
}

// AuthKind is the authorization actually presented on an account update
// (spec §4.4.2).
type AuthKind int

const (
	AuthKindNone AuthKind = iota
	AuthKindSignature
	AuthKindProof
)

// Permissions is the 12-field record of required authorization levels per
// mutable account aspect (spec §3.2).
type Permissions struct {
	Send                    AuthRequired
	Receive                 AuthRequired
	SetDelegate             AuthRequired
	SetPermissions          AuthRequired
	SetVerificationKey      AuthRequired
	SetVerificationKeyTxnVersion uint32
	SetZkappUri             AuthRequired
	EditActionState         AuthRequired
	SetTokenSymbol          AuthRequired
	IncrementNonce          AuthRequired
	SetVotingFor            AuthRequired
	SetTiming               AuthRequired
}

// DefaultPermissions matches a freshly-created user account: everything,
// including incrementing one's own nonce, requires a signature except
// receiving funds, which needs no authorization.
func DefaultPermissions() Permissions {
	return Permissions{
		Send:               AuthSignature,
		Receive:            AuthNone,
		SetDelegate:        AuthSignature,
		SetPermissions:     AuthSignature,
		SetVerificationKey: AuthSignature,
		SetZkappUri:        AuthSignature,
		EditActionState:    AuthSignature,
		SetTokenSymbol:     AuthSignature,
		IncrementNonce:     AuthSignature,
		SetVotingFor:       AuthSignature,
		SetTiming:          AuthSignature,
	}
}

// ZkappAccount is the optional zkApp sub-record (spec §3.2).
type ZkappAccount struct {
	AppState         [8]field.F
	VerificationKey  *VerificationKey
	ZkappVersion     uint32
	ActionState      [5]field.F
	LastActionSlot   Slot
	ProvedState      bool
	ZkappUri         string
}

// VerificationKey pairs an opaque verifying-key blob with its content hash,
// used to check a declared vk_hash against the ledger's stored key (spec §4.4.2).
type VerificationKey struct {
	Data []byte
	Hash field.F
}

// Account is the full per-identity record (spec §3.2).
type Account struct {
	Id               AccountId
	Balance          Balance
	Nonce            Nonce
	ReceiptChainHash field.F
	Delegate         *PublicKey
	VotingFor        field.F
	Timing           Timing
	Permissions      Permissions
	Zkapp            *ZkappAccount
	TokenSymbol      string
}

// NewAccount builds a fresh, untimed, zero-balance account for id.
func NewAccount(id AccountId) *Account {
	return &Account{
		Id:          id,
		Timing:      Timing{Kind: Untimed},
		Permissions: DefaultPermissions(),
	}
}

// Clone returns a deep-enough copy for use as a pre-transaction snapshot
// (spec §8.2's rollback law, and §4.4.2's second-pass rollback).
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Delegate != nil {
		d := *a.Delegate
		cp.Delegate = &d
	}
	if a.Zkapp != nil {
		z := *a.Zkapp
		if a.Zkapp.VerificationKey != nil {
			vk := *a.Zkapp.VerificationKey
			vk.Data = append([]byte(nil), a.Zkapp.VerificationKey.Data...)
			z.VerificationKey = &vk
		}
		cp.Zkapp = &z
	}
	return &cp
}
