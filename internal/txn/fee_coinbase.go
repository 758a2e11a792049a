package txn

import "github.com/jurajselep/openmina/internal/ledger"

// FeeTransferEntry is one (receiver, fee) pair of a fee transfer (spec §4.4.3).
type FeeTransferEntry struct {
	Receiver ledger.AccountId
	Fee      ledger.Fee
	FeeToken ledger.TokenId
}

// FeeTransfer carries one or two entries; both must share a fee token if
// there are two (spec §4.4.3 invariant).
type FeeTransfer struct {
	Entries []FeeTransferEntry
}

// ErrMixedFeeTokens is the hard error for a two-entry fee transfer whose
// entries disagree on fee token (spec §4.4.3).
var ErrMixedFeeTokens = mixedFeeTokensError{}

type mixedFeeTokensError struct{}

func (mixedFeeTokensError) Error() string { return "txn: fee transfer entries must share a fee token" }

// ApplyFeeTransfer credits each receiver; an entry whose receiver cannot
// accept the credit burns its share and records a failure row (spec §4.4.3).
func ApplyFeeTransfer(led ledger.Ledger, ft FeeTransfer) (Status, error) {
	if len(ft.Entries) == 2 && ft.Entries[0].FeeToken != ft.Entries[1].FeeToken {
		return Status{}, ErrMixedFeeTokens
	}
	buckets := make([][]Failure, len(ft.Entries))
	applied := true
	for i, e := range ft.Entries {
		addr, acc := led.GetOrCreate(e.Receiver)
		if !acc.Permissions.Receive.Satisfied(ledger.AuthKindNone) {
			buckets[i] = []Failure{FailureUpdateNotPermittedBalance}
			applied = false
			continue
		}
		newBal, err := ledger.AddBalance(acc.Balance, ledger.Amount(e.Fee))
		if err != nil {
			buckets[i] = []Failure{FailureOverflow}
			applied = false
			continue
		}
		acc.Balance = newBal
		led.SetAccount(addr, acc)
	}
	return Status{Applied: applied, FailureBuckets: buckets}, nil
}

// Coinbase is the block producer's reward, optionally splitting a transferee
// fee out of the total amount (spec §4.4.3).
type Coinbase struct {
	Receiver    ledger.AccountId
	Amount      ledger.Amount
	Transferee  *ledger.AccountId
	TransferFee ledger.Fee
}

// ApplyCoinbase credits receiver (and, if present, the attached transferee)
// and returns the status together with expectedSupplyIncrease = amount minus
// whatever was burned by a permission failure (spec §4.4.3).
func ApplyCoinbase(led ledger.Ledger, cb Coinbase) (Status, ledger.Amount, error) {
	remainder := cb.Amount
	var burned ledger.Amount
	buckets := [][]Failure{nil}
	applied := true

	if cb.Transferee != nil {
		reduced, err := ledger.SubBalance(ledger.Balance(remainder), ledger.Amount(cb.TransferFee))
		if err != nil {
			return Status{}, 0, ErrRejected
		}
		remainder = ledger.Amount(reduced)

		addr, acc := led.GetOrCreate(*cb.Transferee)
		if !acc.Permissions.Receive.Satisfied(ledger.AuthKindNone) {
			burned += ledger.Amount(cb.TransferFee)
			buckets = append(buckets, []Failure{FailureUpdateNotPermittedBalance})
			applied = false
		} else {
			newBal, err := ledger.AddBalance(acc.Balance, ledger.Amount(cb.TransferFee))
			if err != nil {
				burned += ledger.Amount(cb.TransferFee)
				buckets = append(buckets, []Failure{FailureOverflow})
				applied = false
			} else {
				acc.Balance = newBal
				led.SetAccount(addr, acc)
				buckets = append(buckets, nil)
			}
		}
	}

	addr, acc := led.GetOrCreate(cb.Receiver)
	if !acc.Permissions.Receive.Satisfied(ledger.AuthKindNone) {
		burned += remainder
		buckets[0] = []Failure{FailureUpdateNotPermittedBalance}
		applied = false
	} else {
		newBal, err := ledger.AddBalance(acc.Balance, remainder)
		if err != nil {
			burned += remainder
			buckets[0] = []Failure{FailureOverflow}
			applied = false
		} else {
			acc.Balance = newBal
			led.SetAccount(addr, acc)
		}
	}

	expectedSupplyIncrease, err := ledger.SubBalance(ledger.Balance(cb.Amount), burned)
	if err != nil {
		expectedSupplyIncrease = 0
	}
	return Status{Applied: applied, FailureBuckets: buckets}, ledger.Amount(expectedSupplyIncrease), nil
}
