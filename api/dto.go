/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY REPRESENTATION:
  Amounts are emitted as fixed 2-decimal strings ("2004.00") and accepted
  as either JSON numbers or strings; decimal.Decimal handles both.

VALIDATION:
  Validation is done in handlers and in the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - provision/types.go: The domain model these mirror
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/austral/provision-engine/provision"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID            string `json:"id"`
	FullName      string `json:"full_name"`
	NationalID    string `json:"national_id"`
	StartDate     string `json:"start_date"`
	CurrentSalary string `json:"current_salary"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	FullName   string          `json:"full_name"`
	NationalID string          `json:"national_id"`
	StartDate  string          `json:"start_date"` // YYYY-MM-DD
	Salary     decimal.Decimal `json:"salary"`
}

// BalanceDTO represents one benefit account balance.
type BalanceDTO struct {
	AccountID   string  `json:"account_id"`
	Concept     string  `json:"concept"`
	Balance     string  `json:"balance"`
	PendingDays float64 `json:"pending_days,omitempty"`
}

// MovementDTO represents a ledger movement.
type MovementDTO struct {
	ID         string   `json:"id"`
	AccountID  string   `json:"account_id"`
	Concept    string   `json:"concept"`
	Type       string   `json:"type"`
	Amount     string   `json:"amount"`
	Month      string   `json:"month"`
	Days       *float64 `json:"days,omitempty"`
	BaseSalary string   `json:"base_salary,omitempty"`
	Status     string   `json:"status"`
	Reference  string   `json:"reference,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
}

// SalaryPeriodDTO represents one span of the salary history.
type SalaryPeriodDTO struct {
	ID         string  `json:"id"`
	Amount     string  `json:"amount"`
	StartMonth string  `json:"start_month"`
	EndMonth   *string `json:"end_month,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

// UpdateSalaryRequest is the request to apply a salary change.
type UpdateSalaryRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	EffectiveMonth string          `json:"effective_month"` // YYYY-MM
}

// GenerateAccrualsRequest bounds an explicit generation run. Empty fields
// default to the hire month and the current month.
type GenerateAccrualsRequest struct {
	FromMonth string `json:"from_month,omitempty"`
	ToMonth   string `json:"to_month,omitempty"`
}

// SelectionDTO is one concept's requested payout amount.
type SelectionDTO struct {
	Amount decimal.Decimal  `json:"amount"`
	Days   *decimal.Decimal `json:"days,omitempty"`
}

// SubmitPaymentRequest is the request to settle a payment.
type SubmitPaymentRequest struct {
	Month      string                  `json:"month"` // YYYY-MM
	Selections map[string]SelectionDTO `json:"selections"`
}

// PaymentDetailDTO mirrors one settlement debit.
type PaymentDetailDTO struct {
	Concept    string   `json:"concept"`
	Amount     string   `json:"amount"`
	Days       *float64 `json:"days,omitempty"`
	MovementID string   `json:"movement_id"`
}

// PaymentDTO represents a settled payment.
type PaymentDTO struct {
	ID        string             `json:"id"`
	Month     string             `json:"month"`
	Total     string             `json:"total"`
	Status    string             `json:"status"`
	Details   []PaymentDetailDTO `json:"details"`
	CreatedAt string             `json:"created_at,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e provision.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:            string(e.ID),
		FullName:      e.FullName,
		NationalID:    e.NationalID,
		StartDate:     e.StartDate.Format("2006-01-02"),
		CurrentSalary: e.CurrentSalary.String(),
		Status:        string(e.Status),
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
	}
}

func toBalanceDTO(b provision.AccountBalance) BalanceDTO {
	return BalanceDTO{
		AccountID:   string(b.Account.ID),
		Concept:     string(b.Account.Concept),
		Balance:     b.Balance.String(),
		PendingDays: b.PendingDays,
	}
}

func toMovementDTO(mv provision.Movement) MovementDTO {
	dto := MovementDTO{
		ID:         string(mv.ID),
		AccountID:  string(mv.AccountID),
		Concept:    string(mv.Concept),
		Type:       string(mv.Type),
		Amount:     mv.Amount.String(),
		Month:      mv.Month.String(),
		BaseSalary: mv.BaseSalary.String(),
		Status:     string(mv.Status),
		Reference:  string(mv.PaymentRef),
		CreatedAt:  mv.CreatedAt.Format(time.RFC3339),
	}
	if mv.Days != nil {
		d := mv.Days.InexactFloat64()
		dto.Days = &d
	}
	return dto
}

func toMovementDTOs(mvs []provision.Movement) []MovementDTO {
	dtos := make([]MovementDTO, len(mvs))
	for i, mv := range mvs {
		dtos[i] = toMovementDTO(mv)
	}
	return dtos
}

func toSalaryPeriodDTO(p provision.SalaryPeriod) SalaryPeriodDTO {
	dto := SalaryPeriodDTO{
		ID:         string(p.ID),
		Amount:     p.Amount.String(),
		StartMonth: p.Start.String(),
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
	if p.End != nil {
		end := p.End.String()
		dto.EndMonth = &end
	}
	return dto
}

func toPaymentDTO(p provision.Payment) PaymentDTO {
	details := make([]PaymentDetailDTO, len(p.Details))
	for i, d := range p.Details {
		details[i] = PaymentDetailDTO{
			Concept:    string(d.Concept),
			Amount:     d.Amount.String(),
			MovementID: string(d.MovementID),
		}
		if d.Days != nil {
			days := d.Days.InexactFloat64()
			details[i].Days = &days
		}
	}
	return PaymentDTO{
		ID:        string(p.ID),
		Month:     p.Month.String(),
		Total:     p.Total.String(),
		Status:    string(p.Status),
		Details:   details,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTOs(ps []provision.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(ps))
	for i, p := range ps {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}
