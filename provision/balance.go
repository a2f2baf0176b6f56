/*
balance.go - Balance reduction over ledger movements

PURPOSE:
  The authoritative balance of a benefit account is a pure function of its
  movements. Credits that are still owed add to the balance, debits subtract
  from it, and the order of movements never matters. The cached
  Account.Balance field exists only so list views avoid loading movements;
  it is refreshed from this reduction on every commit that touches the
  account.

RULES:
  - credit counts while its status is not "paid"
  - debit always counts, regardless of status
  - a pending credit therefore still contributes to the balance; settlement
    is expressed through debit movements, not by flipping credit status

SEE ALSO:
  - types.go: Movement, MovementType, MovementStatus
  - registry.go: account loading and balance refresh
*/
package provision

// =============================================================================
// BALANCE CALCULATOR
// =============================================================================

// BalanceOf reduces movements to a balance. The reduction is additive and
// permutation-invariant: inserting, updating or deleting any movement and
// re-reducing yields the correct balance without compensating entries.
func BalanceOf(movements []Movement) Money {
	var balance Money
	for _, mv := range movements {
		balance = balance.Add(movementContribution(mv))
	}
	return balance
}

// movementContribution returns the signed amount mv adds to its account's
// balance.
func movementContribution(mv Movement) Money {
	switch mv.Type {
	case MovementCredit:
		if mv.Status == StatusPaid {
			return Money{}
		}
		return mv.Amount
	case MovementDebit:
		return mv.Amount.Neg()
	}
	return Money{}
}

// PendingDaysOf sums the Days of unsettled license credits, net of the days
// already taken by debits. Accounts without day-tracked movements get zero.
func PendingDaysOf(movements []Movement) float64 {
	var days float64
	for _, mv := range movements {
		if mv.Days == nil {
			continue
		}
		switch mv.Type {
		case MovementCredit:
			if mv.Status != StatusPaid {
				days += mv.Days.InexactFloat64()
			}
		case MovementDebit:
			days -= mv.Days.InexactFloat64()
		}
	}
	return days
}
