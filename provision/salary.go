/*
salary.go - Salary period history and its ledger cascades

PURPOSE:
  Owns the ordered sequence of salary periods per employee. A salary update
  closes the open period, opens a new one and recalculates affected pending
  credits; deleting the most recent period reopens its predecessor and
  regenerates the deleted range at the prior salary. Both cascades are
  staged into one batch so the period records and the ledger can never
  disagree.

ORDERING INVARIANTS (enforced here):
  - a new period must start strictly later than the open period's start plus
    one month
  - only the most recent period can be deleted, and never the hire period

SEE ALSO:
  - accrual.go: Stage, StageRecalc and StageRangeDelete primitives
  - engine.go:  commit, per-employee serialization and audit emission
*/
package provision

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// SALARY HISTORY MANAGER
// =============================================================================

// HistoryManager reads and stages salary period changes. Like the generator
// it never commits; the engine owns the batch.
type HistoryManager struct {
	Store     Store
	Generator *Generator
}

func NewHistoryManager(store Store, generator *Generator) *HistoryManager {
	return &HistoryManager{Store: store, Generator: generator}
}

// History returns the employee's salary periods in chronological order.
func (h *HistoryManager) History(ctx context.Context, emp EmployeeID) ([]SalaryPeriod, error) {
	periods, err := listRecords[SalaryPeriod](ctx, h.Store, SalaryHistoryPrefix(emp))
	if err != nil {
		return nil, err
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})
	return periods, nil
}

// openPeriod returns the single open period, which for any live employee is
// the last one chronologically.
func openPeriod(periods []SalaryPeriod) (*SalaryPeriod, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: employee has no salary history", ErrPeriodNotFound)
	}
	last := periods[len(periods)-1]
	if !last.Open() {
		return nil, fmt.Errorf("%w: no open salary period", ErrPeriodNotFound)
	}
	return &last, nil
}

// StageUpdate closes the open period the month before effective, opens a new
// period at newAmount and recalculates pending credits dated on or after
// effective. When effective is the current month or earlier the employee's
// current-salary field is updated too; a future-dated update leaves it
// untouched until re-triggered, which is the caller's responsibility.
//
// Returns the new open period for audit reporting.
func (h *HistoryManager) StageUpdate(ctx context.Context, batch Batch, emp *Employee, newAmount Money, effective Month, now time.Time) (*SalaryPeriod, error) {
	if !newAmount.IsPositive() {
		return nil, fmt.Errorf("%w: salary must be positive, got %s", ErrInvalidInput, newAmount)
	}

	periods, err := h.History(ctx, emp.ID)
	if err != nil {
		return nil, err
	}
	open, err := openPeriod(periods)
	if err != nil {
		return nil, err
	}

	// The new period must start strictly after open.Start + 1 month, so the
	// earliest acceptable effective month is two months past the open start.
	minimum := open.Start.AddMonths(2)
	if effective.Before(minimum) {
		return nil, &PeriodOrderError{EmployeeID: emp.ID, Effective: effective, Minimum: minimum}
	}

	closed := *open
	closed.End = MonthPtr(effective.Prev())
	closed.UpdatedAt = now
	batch.Put(SalaryPeriodPath(emp.ID, closed.ID), closed)

	next := SalaryPeriod{
		ID:         PeriodID(h.Store.NewKey()),
		EmployeeID: emp.ID,
		Amount:     newAmount,
		Start:      effective,
		End:        nil,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	batch.Put(SalaryPeriodPath(emp.ID, next.ID), next)

	if effective.BeforeOrEqual(CurrentMonth(now)) {
		emp.CurrentSalary = newAmount
		emp.UpdatedAt = now
		batch.Put(EmployeePath(emp.ID), *emp)
	}

	if err := h.Generator.StageRecalc(ctx, batch, *emp, newAmount, effective, now); err != nil {
		return nil, err
	}
	return &next, nil
}

// StageDelete removes the most recent salary period and repairs the ledger:
// the previous period reopens, the employee's current salary reverts to it,
// the deleted range's pending credits are dropped and then regenerated at
// the previous amount. Deletes and regeneration target the same storage
// paths, so within the one batch the net effect on a shared month is an
// in-place amount rewrite.
//
// Returns the deleted period for audit reporting.
func (h *HistoryManager) StageDelete(ctx context.Context, batch Batch, emp *Employee, periodID PeriodID, now time.Time) (*SalaryPeriod, error) {
	periods, err := h.History(ctx, emp.ID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range periods {
		if periods[i].ID == periodID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("%w: %s", ErrPeriodNotFound, periodID)
	}
	if idx == 0 {
		return nil, &PeriodDeleteError{EmployeeID: emp.ID, PeriodID: periodID, Reason: "earliest"}
	}
	if idx != len(periods)-1 {
		return nil, &PeriodDeleteError{EmployeeID: emp.ID, PeriodID: periodID, Reason: "not latest"}
	}

	target := periods[idx]
	previous := periods[idx-1]

	// The affected range runs from the deleted period's start to its end, or
	// to the current month when the deleted period was still open.
	from := target.Start
	to := CurrentMonth(now)
	if target.End != nil {
		to = *target.End
	}

	if err := h.Generator.StageRangeDelete(ctx, batch, emp.ID, from, to, now); err != nil {
		return nil, err
	}

	previous.End = nil
	previous.UpdatedAt = now
	batch.Put(SalaryPeriodPath(emp.ID, previous.ID), previous)
	batch.Delete(SalaryPeriodPath(emp.ID, target.ID))

	emp.CurrentSalary = previous.Amount
	emp.UpdatedAt = now
	batch.Put(EmployeePath(emp.ID), *emp)

	if err := h.Generator.Stage(ctx, batch, *emp, FixedSalary(previous.Amount), from, to, now); err != nil {
		return nil, err
	}
	return &target, nil
}
