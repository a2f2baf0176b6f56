/*
handlers.go - HTTP API handlers for the provisioning engine

PURPOSE:
  Exposes the benefit provisioning engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                     List all employees
    POST   /api/employees                     Create employee (with backfill)
    GET    /api/employees/{id}                Get employee details
    DELETE /api/employees/{id}                Delete employee and ledgers
    GET    /api/employees/{id}/balances       Per-concept balances
    GET    /api/employees/{id}/movements/{concept}  Ledger movements

  Salary:
    GET    /api/employees/{id}/salary         Salary history
    POST   /api/employees/{id}/salary         Apply salary change
    DELETE /api/employees/{id}/salary/{periodID}  Delete latest period

  Accruals:
    POST   /api/employees/{id}/accruals       Generate/regenerate credits

  Payments:
    GET    /api/employees/{id}/payments       List payments
    POST   /api/employees/{id}/payments       Settle a payment
    GET    /api/employees/{id}/payments/{paymentID}          Get payment
    DELETE /api/employees/{id}/payments/{paymentID}          Delete payment
    GET    /api/employees/{id}/payments/{paymentID}/receipt  PDF receipt

  Reports:
    GET    /api/reports/provisions            Provision totals (JSON or XLSX)

ACTOR:
  Every mutating request carries its actor in the X-Actor header; missing
  headers fall back to "system". Authentication itself is out of scope
  here, the header is trusted as-is.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Business-rule violations (ordering, balance, deletability)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - provision/engine.go: The facade these handlers call
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/austral/provision-engine/provision"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *provision.Engine
	Metrics *Metrics
}

// NewHandler creates a new handler around the engine.
func NewHandler(engine *provision.Engine, metrics *Metrics) *Handler {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Handler{Engine: engine, Metrics: metrics}
}

// actorFrom extracts the acting identity from the X-Actor header.
func actorFrom(r *http.Request) provision.Actor {
	if v := strings.TrimSpace(r.Header.Get("X-Actor")); v != "" {
		return provision.Actor(v)
	}
	return provision.ActorSystem
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Engine.ListEmployees(r.Context())
	if err != nil {
		writeEngineError(w, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	emp, err := h.Engine.GetEmployee(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates an employee plus hire period, accounts and the
// accrual backfill from the hire month through today.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, provision.Zone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}

	emp, err := h.Engine.CreateEmployee(r.Context(), actorFrom(r), provision.CreateEmployeeInput{
		FullName:   req.FullName,
		NationalID: req.NationalID,
		StartDate:  startDate,
		Salary:     provision.Money{Value: req.Salary},
	})
	h.Metrics.Operation("create_employee", err)
	if err != nil {
		writeEngineError(w, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*emp))
}

// DeleteEmployee removes the employee and every record keyed under them.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	err := h.Engine.DeleteEmployee(r.Context(), actorFrom(r), id)
	h.Metrics.Operation("delete_employee", err)
	if err != nil {
		writeEngineError(w, "Failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalances returns the per-concept balances, recomputed from movements.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	balances, err := h.Engine.Balances(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to get balances", err)
		return
	}
	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMovements returns one concept's ledger, newest first.
func (h *Handler) GetMovements(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	concept := provision.Concept(chi.URLParam(r, "concept"))
	movements, err := h.Engine.AccountMovements(r.Context(), id, concept)
	if err != nil {
		writeEngineError(w, "Failed to get movements", err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTOs(movements))
}

// =============================================================================
// SALARY HANDLERS
// =============================================================================

// GetSalaryHistory returns the employee's salary periods, oldest first.
func (h *Handler) GetSalaryHistory(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	periods, err := h.Engine.SalaryHistory(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to get salary history", err)
		return
	}
	dtos := make([]SalaryPeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toSalaryPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpdateSalary applies a salary change effective at a month.
func (h *Handler) UpdateSalary(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	var req UpdateSalaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	effective, err := provision.ParseMonth(req.EffectiveMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_month format (use YYYY-MM)", err)
		return
	}

	period, err := h.Engine.UpdateSalary(r.Context(), actorFrom(r), id,
		provision.Money{Value: req.Amount}, effective)
	h.Metrics.Operation("update_salary", err)
	if err != nil {
		writeEngineError(w, "Failed to update salary", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSalaryPeriodDTO(*period))
}

// DeleteSalaryPeriod removes the latest salary period and regenerates its
// range at the previous amount.
func (h *Handler) DeleteSalaryPeriod(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	periodID := provision.PeriodID(chi.URLParam(r, "periodID"))
	err := h.Engine.DeletePeriod(r.Context(), actorFrom(r), id, periodID)
	h.Metrics.Operation("delete_period", err)
	if err != nil {
		writeEngineError(w, "Failed to delete salary period", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ACCRUAL HANDLERS
// =============================================================================

// GenerateAccruals upserts credits over a month range; an empty body
// regenerates from the hire month through the current month.
func (h *Handler) GenerateAccruals(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	var req GenerateAccrualsRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	var err error
	if req.FromMonth == "" && req.ToMonth == "" {
		err = h.Engine.RegenerateAccruals(r.Context(), actorFrom(r), id)
	} else {
		var from, to provision.Month
		if from, err = provision.ParseMonth(req.FromMonth); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from_month format (use YYYY-MM)", err)
			return
		}
		if to, err = provision.ParseMonth(req.ToMonth); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to_month format (use YYYY-MM)", err)
			return
		}
		err = h.Engine.GenerateAccruals(r.Context(), actorFrom(r), id, from, to)
	}
	h.Metrics.Operation("generate_accruals", err)
	if err != nil {
		writeEngineError(w, "Failed to generate accruals", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns the employee's payments, newest first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	payments, err := h.Engine.Payments(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// GetPayment returns a single payment.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	paymentID := provision.PaymentID(chi.URLParam(r, "paymentID"))
	payment, err := h.Engine.GetPayment(r.Context(), id, paymentID)
	if err != nil {
		writeEngineError(w, "Failed to get payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*payment))
}

// SubmitPayment settles a per-concept selection against the ledgers.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	var req SubmitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	month, err := provision.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format (use YYYY-MM)", err)
		return
	}
	selections := make(map[provision.Concept]provision.Selection, len(req.Selections))
	for concept, sel := range req.Selections {
		selections[provision.Concept(concept)] = provision.Selection{
			Amount: provision.Money{Value: sel.Amount},
			Days:   sel.Days,
		}
	}

	payment, err := h.Engine.SubmitPayment(r.Context(), actorFrom(r), id, selections, month)
	h.Metrics.Operation("submit_payment", err)
	if err != nil {
		writeEngineError(w, "Failed to submit payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(*payment))
}

// DeletePayment removes the payment and its debit movements.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	paymentID := provision.PaymentID(chi.URLParam(r, "paymentID"))
	err := h.Engine.DeletePayment(r.Context(), actorFrom(r), id, paymentID)
	h.Metrics.Operation("delete_payment", err)
	if err != nil {
		writeEngineError(w, "Failed to delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine error classes to HTTP statuses.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case provision.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case provision.IsClientError(err):
		writeError(w, statusForClientError(err), message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// statusForClientError separates malformed input (400) from valid requests
// the business rules reject (409).
func statusForClientError(err error) int {
	if errorIsAny(err, provision.ErrInsufficientBalance, provision.ErrPeriodOrder, provision.ErrPeriodNotDeletable) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func errorIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
