/*
payment.go - Payment settlement against the benefit ledgers

PURPOSE:
  Converts a per-concept selection of amounts into a settled payment: one
  completed debit movement per selected concept plus one payment record
  whose details mirror the movements. Payment and movements land in one
  batch, so observers see the full set or none of it. Deleting a payment
  removes the record and every referenced movement in one batch too; the
  balances recover by themselves because the reduction is purely additive.

OVERPAYMENT GUARD:
  Requested amounts are re-checked against each concept's recomputed
  balance at commit time. A caller-side clamp is not trusted.

SEE ALSO:
  - balance.go:  the reduction the guard and the recovery rely on
  - registry.go: account and movement access
*/
package provision

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT PROCESSOR
// =============================================================================

// Selection is one concept's requested payout. Days is informational, kept
// for the receipt; it never affects the debit amount.
type Selection struct {
	Amount Money
	Days   *decimal.Decimal
}

// Processor stages payment settlement and deletion. The engine owns the
// batch and the commit.
type Processor struct {
	Store    Store
	Registry *Registry
}

func NewProcessor(store Store, registry *Registry) *Processor {
	return &Processor{Store: store, Registry: registry}
}

// StageSubmit validates the selections against current balances and stages
// the debit movements plus the payment record. The payment total is the sum
// of the per-concept amounts, each rounded to cents before summing.
//
// Concepts are settled in canonical order so movement creation times are
// deterministic.
func (p *Processor) StageSubmit(ctx context.Context, batch Batch, emp Employee, selections map[Concept]Selection, month Month, now time.Time) (*Payment, error) {
	for concept := range selections {
		if !concept.Valid() {
			return nil, fmt.Errorf("%w: unknown concept %q", ErrInvalidInput, concept)
		}
		if selections[concept].Amount.IsNegative() {
			return nil, fmt.Errorf("%w: negative amount for %s", ErrInvalidInput, concept)
		}
	}

	paymentID := PaymentID(p.Store.NewKey())
	var details []PaymentDetail
	var total Money

	for _, concept := range Concepts() {
		sel, ok := selections[concept]
		if !ok || !sel.Amount.IsPositive() {
			continue
		}
		amount := sel.Amount.RoundCents()

		account, err := p.Registry.AccountByConcept(ctx, emp.ID, concept)
		if err != nil {
			return nil, err
		}
		stored, err := p.Registry.Movements(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		available := BalanceOf(stored)
		if amount.GreaterThan(available) {
			return nil, &InsufficientBalanceError{
				EmployeeID: emp.ID,
				Concept:    concept,
				Available:  available,
				Requested:  amount,
			}
		}

		debit := Movement{
			ID:         MovementID(p.Store.NewKey()),
			AccountID:  account.ID,
			Concept:    concept,
			Type:       MovementDebit,
			Amount:     amount,
			Month:      month,
			Days:       sel.Days,
			BaseSalary: emp.CurrentSalary,
			Status:     StatusCompleted,
			PaymentRef: paymentID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		batch.Put(MovementPath(account.ID, debit.ID), debit)
		p.Registry.StageBalanceRefresh(batch, *account, postBatchMovements(batch, account.ID, stored), now)

		details = append(details, PaymentDetail{
			Concept:    concept,
			Amount:     amount,
			Days:       sel.Days,
			MovementID: debit.ID,
			AccountID:  account.ID,
		})
		total = total.Add(amount)
	}

	if len(details) == 0 {
		return nil, fmt.Errorf("%w: payment has no positive selection", ErrInvalidInput)
	}

	payment := Payment{
		ID:         paymentID,
		EmployeeID: emp.ID,
		Month:      month,
		Total:      total,
		Status:     PaymentCompleted,
		Details:    details,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	batch.Put(PaymentPath(emp.ID, paymentID), payment)
	return &payment, nil
}

// StageDelete stages removal of the payment and every debit movement its
// details reference, then refreshes each touched account's cached balance.
func (p *Processor) StageDelete(ctx context.Context, batch Batch, emp EmployeeID, paymentID PaymentID, now time.Time) (*Payment, error) {
	payment, err := getRecord[Payment](ctx, p.Store, PaymentPath(emp, paymentID))
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}

	touched := make(map[AccountID]bool)
	for _, detail := range payment.Details {
		batch.Delete(MovementPath(detail.AccountID, detail.MovementID))
		touched[detail.AccountID] = true
	}
	for accountID := range touched {
		account, err := getRecord[Account](ctx, p.Store, AccountPath(emp, accountID))
		if err != nil {
			return nil, err
		}
		if account == nil {
			continue
		}
		stored, err := p.Registry.Movements(ctx, accountID)
		if err != nil {
			return nil, err
		}
		p.Registry.StageBalanceRefresh(batch, *account, postBatchMovements(batch, accountID, stored), now)
	}

	batch.Delete(PaymentPath(emp, paymentID))
	return payment, nil
}

// Payments returns the employee's payments, newest first.
func (p *Processor) Payments(ctx context.Context, emp EmployeeID) ([]Payment, error) {
	payments, err := listRecords[Payment](ctx, p.Store, PaymentsPrefix(emp))
	if err != nil {
		return nil, err
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].Month.Equal(payments[j].Month) {
			return payments[i].Month.After(payments[j].Month)
		}
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	return payments, nil
}
