/*
accrual.go - Monthly benefit credit generation

PURPOSE:
  Generates the pending credit movements that build up each benefit balance
  month by month. Generation is driven by the salary effective in each
  month and by one ConceptRule per benefit concept; the rules themselves
  live in the benefits package so the ledger mechanics stay free of payroll
  formulas.

IDEMPOTENCY:
  Generation is an upsert keyed by (account, month). Re-running a range
  never duplicates credits: an existing pending credit for the month is
  rewritten in place, keeping its identifier and creation time, with the
  amount recomputed from the salary in force. Settled history is never
  touched.

SEE ALSO:
  - registry.go: account and movement access, balance refresh
  - salary.go:   the recalculation and deletion cascades built on Stage
*/
package provision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONCEPT RULE - One formula per benefit concept
// =============================================================================

// Accrual is the output of one concept rule for one month.
type Accrual struct {
	// Amount is the credit value, already rounded to cents.
	Amount Money
	// Days carries the accrued day count for day-tracked concepts, nil
	// otherwise.
	Days *decimal.Decimal
}

// ConceptRule computes the monthly accrual for one benefit concept.
// Implementations must be pure: the same salary, employment start and month
// always produce the same accrual.
type ConceptRule interface {
	Concept() Concept
	Accrue(salary Money, employmentStart time.Time, month Month) Accrual
}

// =============================================================================
// SALARY RESOLUTION
// =============================================================================

// SalaryFor resolves the salary effective in a month. The boolean is false
// for months not covered by any salary period; generation skips those.
type SalaryFor func(Month) (Money, bool)

// SalaryResolver builds a SalaryFor over a set of salary periods. A month is
// covered by the period whose [Start, End] range contains it; an open period
// covers every month from its start onward.
func SalaryResolver(periods []SalaryPeriod) SalaryFor {
	return func(m Month) (Money, bool) {
		for _, p := range periods {
			if m.Before(p.Start) {
				continue
			}
			if p.End != nil && m.After(*p.End) {
				continue
			}
			return p.Amount, true
		}
		return Money{}, false
	}
}

// FixedSalary is a SalaryFor that returns the same amount for every month,
// used when regenerating a deleted period's range at the prior salary.
func FixedSalary(amount Money) SalaryFor {
	return func(Month) (Money, bool) { return amount, true }
}

// =============================================================================
// ACCRUAL GENERATOR
// =============================================================================

// Generator stages monthly credit movements for an employee's benefit
// accounts. All writes go through the caller's batch; nothing commits here.
type Generator struct {
	Store    Store
	Registry *Registry
	rules    map[Concept]ConceptRule
}

func NewGenerator(store Store, registry *Registry, rules []ConceptRule) *Generator {
	byConcept := make(map[Concept]ConceptRule, len(rules))
	for _, r := range rules {
		byConcept[r.Concept()] = r
	}
	return &Generator{Store: store, Registry: registry, rules: byConcept}
}

// Stage writes one pending credit per concept per month of [from, to] into
// batch, walking months in ascending order. Months outside salaryFor's
// coverage are skipped. Each account's cached balance is refreshed against
// the post-batch movement set.
//
// An empty range (from after to) stages nothing and is not an error.
func (g *Generator) Stage(ctx context.Context, batch Batch, emp Employee, salaryFor SalaryFor, from, to Month, now time.Time) error {
	if from.After(to) {
		return nil
	}
	accounts, err := g.Registry.Accounts(ctx, emp.ID)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		rule, ok := g.rules[account.Concept]
		if !ok {
			return fmt.Errorf("no accrual rule for concept %q", account.Concept)
		}
		if err := g.stageAccount(ctx, batch, emp, account, rule, salaryFor, from, to, now); err != nil {
			return err
		}
	}
	return nil
}

// stageAccount upserts the account's credits for the range and refreshes its
// cached balance.
func (g *Generator) stageAccount(ctx context.Context, batch Batch, emp Employee, account Account, rule ConceptRule, salaryFor SalaryFor, from, to Month, now time.Time) error {
	stored, err := g.Registry.Movements(ctx, account.ID)
	if err != nil {
		return err
	}

	// Pending credits indexed by month. Credits already staged for deletion
	// in this batch are indexed too: re-putting the same path turns the
	// staged delete into an in-place rewrite.
	pendingByMonth := make(map[Month]Movement)
	for _, mv := range stored {
		if mv.Type == MovementCredit && mv.Status == StatusPending {
			pendingByMonth[mv.Month] = mv
		}
	}

	for m := from; m.BeforeOrEqual(to); m = m.Next() {
		salary, covered := salaryFor(m)
		if !covered {
			continue
		}
		accrual := rule.Accrue(salary, emp.StartDate, m)

		mv, exists := pendingByMonth[m]
		if !exists {
			mv = Movement{
				ID:        MovementID(g.Store.NewKey()),
				AccountID: account.ID,
				Concept:   account.Concept,
				Type:      MovementCredit,
				Status:    StatusPending,
				Month:     m,
				CreatedAt: now,
			}
		}
		mv.Amount = accrual.Amount
		mv.Days = accrual.Days
		mv.BaseSalary = salary
		mv.UpdatedAt = now
		batch.Put(MovementPath(account.ID, mv.ID), mv)
	}

	g.Registry.StageBalanceRefresh(batch, account, postBatchMovements(batch, account.ID, stored), now)
	return nil
}

// StageRecalc rewrites every existing pending credit dated on or after from,
// recomputing amount, day count and salary basis at the new salary. Identity,
// date and status of each credit are preserved; months without an existing
// credit are left alone.
func (g *Generator) StageRecalc(ctx context.Context, batch Batch, emp Employee, newSalary Money, from Month, now time.Time) error {
	accounts, err := g.Registry.Accounts(ctx, emp.ID)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		rule, ok := g.rules[account.Concept]
		if !ok {
			return fmt.Errorf("no accrual rule for concept %q", account.Concept)
		}
		stored, err := g.Registry.Movements(ctx, account.ID)
		if err != nil {
			return err
		}
		for _, mv := range stored {
			if mv.Type != MovementCredit || mv.Status != StatusPending || mv.Month.Before(from) {
				continue
			}
			accrual := rule.Accrue(newSalary, emp.StartDate, mv.Month)
			mv.Amount = accrual.Amount
			mv.Days = accrual.Days
			mv.BaseSalary = newSalary
			mv.UpdatedAt = now
			batch.Put(MovementPath(account.ID, mv.ID), mv)
		}
		g.Registry.StageBalanceRefresh(batch, account, postBatchMovements(batch, account.ID, stored), now)
	}
	return nil
}

// StageRangeDelete stages removal of every pending credit dated within
// [from, to] on all of the employee's accounts and refreshes the cached
// balances. Deletes staged here may be superseded by a later Stage over the
// same range, which turns them into in-place rewrites.
func (g *Generator) StageRangeDelete(ctx context.Context, batch Batch, emp EmployeeID, from, to Month, now time.Time) error {
	accounts, err := g.Registry.Accounts(ctx, emp)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		stored, err := g.Registry.Movements(ctx, account.ID)
		if err != nil {
			return err
		}
		for _, mv := range stored {
			if mv.Type != MovementCredit || mv.Status != StatusPending {
				continue
			}
			if mv.Month.Before(from) || mv.Month.After(to) {
				continue
			}
			batch.Delete(MovementPath(account.ID, mv.ID))
		}
		g.Registry.StageBalanceRefresh(batch, account, postBatchMovements(batch, account.ID, stored), now)
	}
	return nil
}

// postBatchMovements applies the batch's staged movement writes and deletes
// for one account on top of the stored set, yielding the movements the
// commit will leave behind.
func postBatchMovements(batch Batch, acc AccountID, stored []Movement) []Movement {
	prefix := MovementsPrefix(acc) + "/"
	staged := make(map[MovementID]*Movement)
	deleted := make(map[MovementID]bool)
	for path, v := range batch {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		id := MovementID(strings.TrimPrefix(path, prefix))
		if v == nil {
			deleted[id] = true
			continue
		}
		if mv, ok := v.(Movement); ok {
			staged[id] = &mv
		}
	}

	out := make([]Movement, 0, len(stored)+len(staged))
	seen := make(map[MovementID]bool, len(stored))
	for _, mv := range stored {
		seen[mv.ID] = true
		if deleted[mv.ID] {
			continue
		}
		if repl, ok := staged[mv.ID]; ok {
			out = append(out, *repl)
			continue
		}
		out = append(out, mv)
	}
	for id, mv := range staged {
		if !seen[id] && !deleted[id] {
			out = append(out, *mv)
		}
	}
	return out
}
