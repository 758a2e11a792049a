// Package txn implements the deterministic transaction-apply logic (spec
// §4.4): signed commands (payment/delegation), zkApp commands, fee transfers
// and coinbase.
package txn

// Failure is one entry of the fixed, enumerated transaction-failure
// catalogue (spec §7's taxonomy kind 2). Failures are data, not exceptions:
// they populate a per-update failure bucket and surface on-chain as
// TransactionStatus::Failed(bucket_lists).
type Failure int

const (
	FailurePredicate Failure = iota
	FailureSourceInsufficientBalance
	FailureSourceMinimumBalanceViolation
	FailureReceiverAlreadyExists
	FailureAmountInsufficientToCreateAccount
	FailureOverflow
	FailureBalanceOverflow
	FailureSignedAmountOverflow
	FailureUpdateNotPermittedBalance
	FailureUpdateNotPermittedAppState
	FailureUpdateNotPermittedVerificationKey
	FailureUpdateNotPermittedDelegate
	FailureUpdateNotPermittedPermissions
	FailureUpdateNotPermittedZkappUri
	FailureUpdateNotPermittedTokenSymbol
	FailureUpdateNotPermittedTiming
	FailureUpdateNotPermittedVotingFor
	FailureAccountBalancePreconditionUnsatisfied
	FailureAccountNoncePreconditionUnsatisfied
	FailureAccountReceiptChainHashPreconditionUnsatisfied
	FailureAccountDelegatePreconditionUnsatisfied
	FailureAccountActionStatePreconditionUnsatisfied
	FailureAccountProvedStatePreconditionUnsatisfied
	FailureAccountIsNewPreconditionUnsatisfied
	FailureProtocolStatePreconditionUnsatisfied
	FailureIncorrectNonce
	FailureInvalidFeeExcess
	FailureCancelled
	FailureUnexpectedVerificationKeyHash
)

func (f Failure) String() string {
	switch f {
	case FailurePredicate:
		return "Predicate"
	case FailureSourceInsufficientBalance:
		return "SourceInsufficientBalance"
	case FailureSourceMinimumBalanceViolation:
		return "SourceMinimumBalanceViolation"
	case FailureReceiverAlreadyExists:
		return "ReceiverAlreadyExists"
	case FailureAmountInsufficientToCreateAccount:
		return "AmountInsufficientToCreateAccount"
	case FailureOverflow:
		return "Overflow"
	case FailureBalanceOverflow:
		return "BalanceOverflow"
	case FailureSignedAmountOverflow:
		return "SignedAmountOverflow"
	case FailureUpdateNotPermittedBalance:
		return "UpdateNotPermittedBalance"
	case FailureUpdateNotPermittedAppState:
		return "UpdateNotPermittedAppState"
	case FailureUpdateNotPermittedVerificationKey:
		return "UpdateNotPermittedVerificationKey"
	case FailureUpdateNotPermittedDelegate:
		return "UpdateNotPermittedDelegate"
	case FailureUpdateNotPermittedPermissions:
		return "UpdateNotPermittedPermissions"
	case FailureUpdateNotPermittedZkappUri:
		return "UpdateNotPermittedZkappUri"
	case FailureUpdateNotPermittedTokenSymbol:
		return "UpdateNotPermittedTokenSymbol"
	case FailureUpdateNotPermittedTiming:
		return "UpdateNotPermittedTiming"
	case FailureUpdateNotPermittedVotingFor:
		return "UpdateNotPermittedVotingFor"
	case FailureAccountBalancePreconditionUnsatisfied:
		return "AccountBalancePreconditionUnsatisfied"
	case FailureAccountNoncePreconditionUnsatisfied:
		return "AccountNoncePreconditionUnsatisfied"
	case FailureAccountReceiptChainHashPreconditionUnsatisfied:
		return "AccountReceiptChainHashPreconditionUnsatisfied"
	case FailureAccountDelegatePreconditionUnsatisfied:
		return "AccountDelegatePreconditionUnsatisfied"
	case FailureAccountActionStatePreconditionUnsatisfied:
		return "AccountActionStatePreconditionUnsatisfied"
	case FailureAccountProvedStatePreconditionUnsatisfied:
		return "AccountProvedStatePreconditionUnsatisfied"
	case FailureAccountIsNewPreconditionUnsatisfied:
		return "AccountIsNewPreconditionUnsatisfied"
	case FailureProtocolStatePreconditionUnsatisfied:
		return "ProtocolStatePreconditionUnsatisfied"
	case FailureIncorrectNonce:
		return "IncorrectNonce"
	case FailureInvalidFeeExcess:
		return "InvalidFeeExcess"
	case FailureCancelled:
		return "Cancelled"
	case FailureUnexpectedVerificationKeyHash:
		return "UnexpectedVerificationKeyHash"
	default:
		return "UnknownFailure"
	}
}

// Status is the outcome recorded on a Transaction once applied (spec §4.4,
// §7 "user-visible failure behavior").
type Status struct {
	// Applied is true when the outer transaction committed (fee charged and,
	// for a successful body, the body's effects too). A signed command with
	// Applied=false but a non-empty FailureBuckets[0] still charged the fee,
	// except for an expired valid_until, which fails with [Predicate] before
	// any charge.
	Applied bool
	// FailureBuckets[0] is always the fee-payer row; FailureBuckets[i>0] for
	// zkApp commands holds either the explicit failures for update i or
	// [Cancelled] when a prior failure suppressed it (spec §4.4.2).
	FailureBuckets [][]Failure
}

func (s Status) String() string {
	if s.Applied {
		return "Applied"
	}
	return "Failed"
}
