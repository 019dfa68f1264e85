// Package posting turns business transactions into balanced vouchers.
//
// Each transaction kind has a builder function producing a ledger.LineSet;
// the Engine wraps builders, persistence and payments in one unit of work.
package posting

import (
	"pharmaledger/internal/core/types"
)

// AllocateProportional splits total across weights so that the shares sum to total exactly.
//
// Each share is rounded to 2 decimals and the last share takes the remainder. When all
// weights are zero the split is equal. If the remainder would turn the last share negative
// it goes to the heaviest share instead.
func AllocateProportional(total types.Money, weights []types.Money) []types.Money {
	n := len(weights)
	if n == 0 {
		return nil
	}

	sumW := types.Zero()
	for _, w := range weights {
		sumW = sumW.Add(w)
	}

	out := make([]types.Money, n)
	allocated := types.Zero()
	for i := 0; i < n-1; i++ {
		var share types.Money
		if sumW.IsZero() {
			share = total.Div(types.MoneyFromInt(int64(n)))
		} else {
			share = total.Mul(weights[i]).Div(sumW)
		}
		share = types.RoundMoney(share)
		out[i] = share
		allocated = allocated.Add(share)
	}

	remainder := total.Sub(allocated)
	if remainder.IsNegative() && !total.IsNegative() {
		heaviest := 0
		for i := 1; i < n-1; i++ {
			if weights[i].GreaterThan(weights[heaviest]) {
				heaviest = i
			}
		}
		out[heaviest] = out[heaviest].Add(remainder)
		remainder = types.Zero()
	}
	out[n-1] = remainder

	return out
}
