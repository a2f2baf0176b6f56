/*
registry.go - Account lookup and movement listing

PURPOSE:
  Central access to benefit accounts and their movements. Every employee
  owns exactly one account per concept, created together with the employee,
  so lookups by (employee, concept) are total for live employees. Movement
  listings are returned newest-first: month descending, then creation time
  descending within a month.

SEE ALSO:
  - balance.go: the reduction that refreshes Account.Balance
  - accrual.go: the generator that writes credit movements
*/
package provision

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// ACCOUNT REGISTRY
// =============================================================================

// Registry reads accounts and movements and stages balance refreshes. It
// holds no state beyond the store handle; all mutation flows through batches
// the caller commits.
type Registry struct {
	Store Store
}

func NewRegistry(store Store) *Registry { return &Registry{Store: store} }

// Accounts returns the employee's benefit accounts in canonical concept
// order (license, vacationPay, bonus).
func (r *Registry) Accounts(ctx context.Context, emp EmployeeID) ([]Account, error) {
	accounts, err := listRecords[Account](ctx, r.Store, AccountsPrefix(emp))
	if err != nil {
		return nil, err
	}
	order := make(map[Concept]int, len(Concepts()))
	for i, c := range Concepts() {
		order[c] = i
	}
	sort.Slice(accounts, func(i, j int) bool {
		return order[accounts[i].Concept] < order[accounts[j].Concept]
	})
	return accounts, nil
}

// AccountByConcept returns the employee's account for one concept.
func (r *Registry) AccountByConcept(ctx context.Context, emp EmployeeID, concept Concept) (*Account, error) {
	if !concept.Valid() {
		return nil, fmt.Errorf("%w: unknown concept %q", ErrInvalidInput, concept)
	}
	accounts, err := r.Accounts(ctx, emp)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Concept == concept {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: employee %s has no %s account", ErrAccountNotFound, emp, concept)
}

// Movements returns every movement on the account, newest first.
func (r *Registry) Movements(ctx context.Context, acc AccountID) ([]Movement, error) {
	movements, err := listRecords[Movement](ctx, r.Store, MovementsPrefix(acc))
	if err != nil {
		return nil, err
	}
	sortMovementsDesc(movements)
	return movements, nil
}

// sortMovementsDesc orders newest-first: month descending, creation time
// descending as the within-month tie-break.
func sortMovementsDesc(movements []Movement) {
	sort.Slice(movements, func(i, j int) bool {
		if !movements[i].Month.Equal(movements[j].Month) {
			return movements[i].Month.After(movements[j].Month)
		}
		return movements[i].CreatedAt.After(movements[j].CreatedAt)
	})
}

// ConceptBalance recomputes the authoritative balance of the employee's
// account for one concept.
func (r *Registry) ConceptBalance(ctx context.Context, emp EmployeeID, concept Concept) (Money, error) {
	account, err := r.AccountByConcept(ctx, emp, concept)
	if err != nil {
		return Money{}, err
	}
	movements, err := r.Movements(ctx, account.ID)
	if err != nil {
		return Money{}, err
	}
	return BalanceOf(movements), nil
}

// StageBalanceRefresh recomputes the account balance from movements and
// stages the updated account record. Callers pass the post-batch view of the
// movements so the cached balance matches what the commit will produce.
func (r *Registry) StageBalanceRefresh(batch Batch, account Account, movements []Movement, now time.Time) {
	account.Balance = BalanceOf(movements)
	account.UpdatedAt = now
	batch.Put(AccountPath(account.EmployeeID, account.ID), account)
}
