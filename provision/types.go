/*
Package provision implements the employee benefit provisioning engine.

PURPOSE:
  Maintains one ledger account per (employee, concept), where concept is one
  of three fixed benefit categories: paid-license days, vacation pay, and the
  year-end bonus. Monthly accrual credits are generated from the employee's
  salary history; payments settle against the ledger as debit movements. The
  account balance is always derivable from the movements alone.

KEY CONCEPTS IN THIS FILE (types.go):
  - Concept: closed set of benefit categories (license | vacationPay | bonus)
  - Money: a 2-decimal currency amount backed by decimal.Decimal
  - Movement: a ledger entry (credit or debit) on a benefit account
  - SalaryPeriod: a contiguous span of months with a fixed salary
  - Payment: a settled payout plus the debit movements it created

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, rounded to cents at storage time
  2. Type safety: typed identifiers, a closed Concept variant (no free-form
     concept strings)
  3. Derivability: the authoritative balance is a pure reduction over
     movements; the cached Account.Balance is a display convenience only

SEE ALSO:
  - month.go: calendar-month normalization in the ledger time zone
  - balance.go: balance reduction over movements
  - accrual.go: monthly credit generation
*/
package provision

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONCEPT - Closed set of benefit categories
// =============================================================================

// Concept identifies one of the three fixed benefit ledgers kept per
// employee. It is deliberately a closed variant: operations validate
// against Concepts() and reject anything else.
type Concept string

const (
	ConceptLicense     Concept = "license"
	ConceptVacationPay Concept = "vacationPay"
	ConceptBonus       Concept = "bonus"
)

// Concepts returns all benefit concepts in their canonical order.
// Generation and payment settlement iterate in this order so that
// creation-time tie-breaks are deterministic.
func Concepts() []Concept {
	return []Concept{ConceptLicense, ConceptVacationPay, ConceptBonus}
}

// Valid reports whether c is one of the three known concepts.
func (c Concept) Valid() bool {
	switch c {
	case ConceptLicense, ConceptVacationPay, ConceptBonus:
		return true
	}
	return false
}

// =============================================================================
// MONEY - Currency amount with cent precision
// =============================================================================

// Money is a currency amount. All amounts persisted by the engine are
// rounded to cents first, so sums over stored amounts never need
// re-rounding.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money      { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int64) Money { return Money{Value: decimal.NewFromInt(value)} }

// MustParseMoney parses a decimal string, returning zero on malformed input.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money    { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) RoundCents() Money              { return Money{Value: m.Value.Round(2)} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool          { return m.Value.LessThan(o.Value) }
func (m Money) Float64() float64               { return m.Value.InexactFloat64() }
func (m Money) String() string                 { return m.Value.StringFixed(2) }

func (m Money) MarshalJSON() ([]byte, error) { return json.Marshal(m.Value) }

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	m.Value = d
	return nil
}

// =============================================================================
// IDENTIFIERS - Opaque, store-generated strings
// =============================================================================

type EmployeeID string
type PeriodID string
type AccountID string
type MovementID string
type PaymentID string

// =============================================================================
// EMPLOYEE
// =============================================================================

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

// Employee is the collaborator-owned record the engine consumes. StartDate
// anchors seniority calculations and is immutable after creation.
type Employee struct {
	ID            EmployeeID     `json:"id"`
	FullName      string         `json:"fullName"`
	NationalID    string         `json:"nationalId"`
	StartDate     time.Time      `json:"startDate"`
	CurrentSalary Money          `json:"currentSalary"`
	Status        EmployeeStatus `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// =============================================================================
// SALARY PERIOD
// =============================================================================

// SalaryPeriod is a span of months during which the employee's salary was a
// fixed amount. Periods for one employee are contiguous and non-overlapping
// when ordered by Start; at most one period is open (End == nil) and it is
// the most recent. The earliest period starts at the hire month and can
// never be deleted.
type SalaryPeriod struct {
	ID         PeriodID   `json:"id"`
	EmployeeID EmployeeID `json:"employeeId"`
	Amount     Money      `json:"amount"`
	Start      Month      `json:"startDate"`
	End        *Month     `json:"endDate"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Open reports whether this is the current (unterminated) period.
func (p SalaryPeriod) Open() bool { return p.End == nil }

// =============================================================================
// ACCOUNT
// =============================================================================

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

// Account is one benefit ledger for one (employee, concept) pair. Balance is
// a cached display value; the authoritative figure is always recomputed from
// the account's movements.
type Account struct {
	ID         AccountID     `json:"id"`
	EmployeeID EmployeeID    `json:"employeeId"`
	Concept    Concept       `json:"concept"`
	Balance    Money         `json:"balance"`
	Status     AccountStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// =============================================================================
// MOVEMENT - Ledger entry
// =============================================================================

type MovementType string

const (
	MovementCredit MovementType = "credit"
	MovementDebit  MovementType = "debit"
)

type MovementStatus string

const (
	// StatusPending marks an accrued credit that has not been settled.
	StatusPending MovementStatus = "pending"
	// StatusCompleted marks debit movements created by payment settlement.
	StatusCompleted MovementStatus = "completed"
	// StatusPaid is reserved: the balance reduction honors it (a paid credit
	// no longer counts toward the balance) but no code path assigns it.
	StatusPaid MovementStatus = "paid"
	// StatusCancelled is likewise declared for completeness and unassigned.
	StatusCancelled MovementStatus = "cancelled"
)

// Movement is a ledger entry. Movements are never edited directly: they are
// created by accrual generation or payment settlement, amount-recalculated
// in place by salary recalculation, and deleted only by period-deletion or
// payment-deletion cascades.
type Movement struct {
	ID        MovementID     `json:"id"`
	AccountID AccountID      `json:"accountId"`
	Concept   Concept        `json:"concept"`
	Type      MovementType   `json:"type"`
	Amount    Money          `json:"amount"`
	Month     Month          `json:"date"`

	// Days is the accrued day count, present on license movements only.
	Days *decimal.Decimal `json:"days"`

	// BaseSalary is the salary the amount was computed from. Stored on
	// credits so retroactive recalculation can prove what changed.
	BaseSalary Money `json:"baseSalary"`

	Status MovementStatus `json:"status"`

	// PaymentRef links a settlement debit to its payment. Empty on credits.
	PaymentRef PaymentID `json:"reference,omitempty"`

	// CreatedAt is a tie-break for listing order within the same month.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// =============================================================================
// PAYMENT
// =============================================================================

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Payment records one settled payout. A Payment and the debit movements its
// details reference are created and deleted as one atomic unit.
type Payment struct {
	ID         PaymentID       `json:"id"`
	EmployeeID EmployeeID      `json:"employeeId"`
	Month      Month           `json:"date"`
	Total      Money           `json:"total"`
	Status     PaymentStatus   `json:"status"`
	Details    []PaymentDetail `json:"details"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// PaymentDetail mirrors one settlement debit.
type PaymentDetail struct {
	Concept    Concept          `json:"concept"`
	Amount     Money            `json:"amount"`
	Days       *decimal.Decimal `json:"days"`
	MovementID MovementID       `json:"movementId"`
	AccountID  AccountID        `json:"accountId"`
}

// =============================================================================
// ACTOR - Explicit audit identity
// =============================================================================

// Actor identifies who performs a mutating operation. It is an explicit
// parameter on every mutating call rather than ambient request context.
type Actor string

const ActorSystem Actor = "system"
