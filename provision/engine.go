/*
engine.go - Public facade over the provisioning components

PURPOSE:
  Single entry point collaborators call. The engine serializes mutating
  operations per employee, assembles each operation's batch from the
  component stagers, commits it atomically and then emits an audit entry.
  Reads go straight to the components.

CONCURRENCY:
  Mutations on one employee take that employee's exclusive lock before any
  read, so period boundaries and balances never race on read-modify-write.
  Operations on different employees run concurrently.

AUDIT:
  Every mutation carries an explicit Actor. Audit emission happens after a
  successful commit and is fire-and-forget: a sink failure is logged and
  swallowed, never surfaced to the caller.

SEE ALSO:
  - salary.go, payment.go, accrual.go: the stagers this facade commits
*/
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	store     Store
	registry  *Registry
	generator *Generator
	history   *HistoryManager
	processor *Processor
	audit     AuditSink
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[EmployeeID]*sync.Mutex
}

type EngineOption func(*Engine)

// WithAuditSink routes audit entries to sink instead of the default
// store-backed sink.
func WithAuditSink(sink AuditSink) EngineOption {
	return func(e *Engine) { e.audit = sink }
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the engine's time source, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, rules []ConceptRule, opts ...EngineOption) *Engine {
	registry := NewRegistry(store)
	generator := NewGenerator(store, registry, rules)
	e := &Engine{
		store:     store,
		registry:  registry,
		generator: generator,
		history:   NewHistoryManager(store, generator),
		processor: NewProcessor(store, registry),
		audit:     &StoreAuditSink{Store: store},
		logger:    slog.Default(),
		now:       time.Now,
		locks:     make(map[EmployeeID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lockEmployee takes the employee's exclusive lock and returns its release.
func (e *Engine) lockEmployee(id EmployeeID) func() {
	e.mu.Lock()
	lock, ok := e.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[id] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// emit records an audit entry. Failures are logged and swallowed.
func (e *Engine) emit(ctx context.Context, actor Actor, action AuditAction, entityType, entityID string, changes map[string]any) {
	entry := AuditEntry{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		At:         e.now(),
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		e.logger.Warn("audit entry dropped",
			"action", action, "entity", entityID, "error", err)
	}
}

func (e *Engine) loadEmployee(ctx context.Context, id EmployeeID) (*Employee, error) {
	emp, err := getRecord[Employee](ctx, e.store, EmployeePath(id))
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	return emp, nil
}

// =============================================================================
// EMPLOYEE LIFECYCLE
// =============================================================================

type CreateEmployeeInput struct {
	FullName   string
	NationalID string
	StartDate  time.Time
	Salary     Money
}

// CreateEmployee registers an employee together with the hire salary period,
// one zero-balance account per concept and the accrual backfill from the
// hire month through the current month, all in one commit.
func (e *Engine) CreateEmployee(ctx context.Context, actor Actor, input CreateEmployeeInput) (*Employee, error) {
	if strings.TrimSpace(input.FullName) == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.NationalID) == "" {
		return nil, fmt.Errorf("%w: national id is required", ErrInvalidInput)
	}
	if !input.Salary.IsPositive() {
		return nil, fmt.Errorf("%w: salary must be positive, got %s", ErrInvalidInput, input.Salary)
	}
	if input.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}

	now := e.now()
	hireMonth := MonthOf(input.StartDate)
	current := CurrentMonth(now)
	if hireMonth.After(current) {
		return nil, fmt.Errorf("%w: %s starts in %s", ErrHireDateInFuture, input.FullName, hireMonth)
	}

	emp := Employee{
		ID:            EmployeeID(e.store.NewKey()),
		FullName:      strings.TrimSpace(input.FullName),
		NationalID:    strings.TrimSpace(input.NationalID),
		StartDate:     input.StartDate,
		CurrentSalary: input.Salary.RoundCents(),
		Status:        EmployeeActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	batch := NewBatch()
	batch.Put(EmployeePath(emp.ID), emp)

	hirePeriod := SalaryPeriod{
		ID:         PeriodID(e.store.NewKey()),
		EmployeeID: emp.ID,
		Amount:     emp.CurrentSalary,
		Start:      hireMonth,
		End:        nil,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	batch.Put(SalaryPeriodPath(emp.ID, hirePeriod.ID), hirePeriod)

	// Accounts must exist in the store before the generator can see them, so
	// the backfill stages movements against these records directly.
	accounts := make([]Account, 0, len(Concepts()))
	for _, concept := range Concepts() {
		account := Account{
			ID:         AccountID(e.store.NewKey()),
			EmployeeID: emp.ID,
			Concept:    concept,
			Status:     AccountActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		accounts = append(accounts, account)
		batch.Put(AccountPath(emp.ID, account.ID), account)
	}
	if err := e.stageBackfill(batch, emp, accounts, hirePeriod.Amount, hireMonth, current, now); err != nil {
		return nil, err
	}

	if err := e.store.Apply(ctx, batch); err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}
	e.emit(ctx, actor, AuditEmployeeCreated, "employee", string(emp.ID), map[string]any{
		"fullName": emp.FullName,
		"salary":   emp.CurrentSalary,
		"start":    hireMonth.String(),
	})
	return &emp, nil
}

// stageBackfill generates the initial credits for freshly staged accounts,
// which are not yet readable through the registry.
func (e *Engine) stageBackfill(batch Batch, emp Employee, accounts []Account, salary Money, from, to Month, now time.Time) error {
	for _, account := range accounts {
		rule, ok := e.generator.rules[account.Concept]
		if !ok {
			return fmt.Errorf("no accrual rule for concept %q", account.Concept)
		}
		var movements []Movement
		for m := from; m.BeforeOrEqual(to); m = m.Next() {
			accrual := rule.Accrue(salary, emp.StartDate, m)
			mv := Movement{
				ID:         MovementID(e.store.NewKey()),
				AccountID:  account.ID,
				Concept:    account.Concept,
				Type:       MovementCredit,
				Amount:     accrual.Amount,
				Month:      m,
				Days:       accrual.Days,
				BaseSalary: salary,
				Status:     StatusPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			movements = append(movements, mv)
			batch.Put(MovementPath(account.ID, mv.ID), mv)
		}
		e.registry.StageBalanceRefresh(batch, account, movements, now)
	}
	return nil
}

func (e *Engine) GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error) {
	return e.loadEmployee(ctx, id)
}

// ListEmployees returns every employee ordered by full name.
func (e *Engine) ListEmployees(ctx context.Context) ([]Employee, error) {
	employees, err := listRecords[Employee](ctx, e.store, EmployeesPrefix())
	if err != nil {
		return nil, err
	}
	sort.Slice(employees, func(i, j int) bool {
		return employees[i].FullName < employees[j].FullName
	})
	return employees, nil
}

// DeleteEmployee removes the employee and everything keyed under them:
// salary periods, accounts, movements, payments. One batch, one commit.
func (e *Engine) DeleteEmployee(ctx context.Context, actor Actor, id EmployeeID) error {
	unlock := e.lockEmployee(id)
	defer unlock()

	emp, err := e.loadEmployee(ctx, id)
	if err != nil {
		return err
	}

	batch := NewBatch()
	batch.Delete(EmployeePath(id))
	for _, prefix := range []string{SalaryHistoryPrefix(id), AccountsPrefix(id), PaymentsPrefix(id)} {
		docs, err := e.store.List(ctx, prefix)
		if err != nil {
			return err
		}
		for path := range docs {
			batch.Delete(path)
		}
	}
	accounts, err := e.registry.Accounts(ctx, id)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		docs, err := e.store.List(ctx, MovementsPrefix(account.ID))
		if err != nil {
			return err
		}
		for path := range docs {
			batch.Delete(path)
		}
	}

	if err := e.store.Apply(ctx, batch); err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	e.emit(ctx, actor, AuditEmployeeDeleted, "employee", string(id), map[string]any{
		"fullName": emp.FullName,
	})
	return nil
}

// =============================================================================
// ACCOUNTS & BALANCES
// =============================================================================

// AccountBalance pairs an account with its recomputed balance and, for
// day-tracked concepts, the pending day count.
type AccountBalance struct {
	Account     Account `json:"account"`
	Balance     Money   `json:"balance"`
	PendingDays float64 `json:"pendingDays"`
}

// Balances returns one entry per concept with the authoritative balance
// recomputed from movements.
func (e *Engine) Balances(ctx context.Context, id EmployeeID) ([]AccountBalance, error) {
	if _, err := e.loadEmployee(ctx, id); err != nil {
		return nil, err
	}
	accounts, err := e.registry.Accounts(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]AccountBalance, 0, len(accounts))
	for _, account := range accounts {
		movements, err := e.registry.Movements(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, AccountBalance{
			Account:     account,
			Balance:     BalanceOf(movements),
			PendingDays: PendingDaysOf(movements),
		})
	}
	return out, nil
}

// GetOrCreateAccount returns the employee's account for the concept,
// creating a zero-balance active one if it does not exist yet.
func (e *Engine) GetOrCreateAccount(ctx context.Context, id EmployeeID, concept Concept) (*Account, error) {
	if !concept.Valid() {
		return nil, fmt.Errorf("%w: unknown concept %q", ErrInvalidInput, concept)
	}
	unlock := e.lockEmployee(id)
	defer unlock()

	if _, err := e.loadEmployee(ctx, id); err != nil {
		return nil, err
	}
	account, err := e.registry.AccountByConcept(ctx, id, concept)
	if err == nil {
		return account, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	now := e.now()
	created := Account{
		ID:         AccountID(e.store.NewKey()),
		EmployeeID: id,
		Concept:    concept,
		Status:     AccountActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	batch := NewBatch()
	batch.Put(AccountPath(id, created.ID), created)
	if err := e.store.Apply(ctx, batch); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &created, nil
}

// AccountMovements returns the movements of the employee's account for one
// concept, newest first.
func (e *Engine) AccountMovements(ctx context.Context, id EmployeeID, concept Concept) ([]Movement, error) {
	account, err := e.registry.AccountByConcept(ctx, id, concept)
	if err != nil {
		return nil, err
	}
	return e.registry.Movements(ctx, account.ID)
}

// =============================================================================
// SALARY OPERATIONS
// =============================================================================

func (e *Engine) SalaryHistory(ctx context.Context, id EmployeeID) ([]SalaryPeriod, error) {
	if _, err := e.loadEmployee(ctx, id); err != nil {
		return nil, err
	}
	return e.history.History(ctx, id)
}

// UpdateSalary applies a salary change effective at the given month. See
// HistoryManager.StageUpdate for the ordering rule and the cascade.
func (e *Engine) UpdateSalary(ctx context.Context, actor Actor, id EmployeeID, newAmount Money, effective Month) (*SalaryPeriod, error) {
	unlock := e.lockEmployee(id)
	defer unlock()

	emp, err := e.loadEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.now()
	batch := NewBatch()
	period, err := e.history.StageUpdate(ctx, batch, emp, newAmount.RoundCents(), effective, now)
	if err != nil {
		return nil, err
	}
	if err := e.store.Apply(ctx, batch); err != nil {
		return nil, fmt.Errorf("update salary: %w", err)
	}
	e.emit(ctx, actor, AuditSalaryUpdated, "employee", string(id), map[string]any{
		"amount":    period.Amount,
		"effective": effective.String(),
	})
	return period, nil
}

// DeletePeriod removes the most recent salary period and regenerates its
// range at the previous salary. See HistoryManager.StageDelete.
func (e *Engine) DeletePeriod(ctx context.Context, actor Actor, id EmployeeID, periodID PeriodID) error {
	unlock := e.lockEmployee(id)
	defer unlock()

	emp, err := e.loadEmployee(ctx, id)
	if err != nil {
		return err
	}

	now := e.now()
	batch := NewBatch()
	deleted, err := e.history.StageDelete(ctx, batch, emp, periodID, now)
	if err != nil {
		return err
	}
	if err := e.store.Apply(ctx, batch); err != nil {
		return fmt.Errorf("delete salary period: %w", err)
	}
	e.emit(ctx, actor, AuditPeriodDeleted, "salaryPeriod", string(periodID), map[string]any{
		"employeeId": string(id),
		"amount":     deleted.Amount,
		"start":      deleted.Start.String(),
	})
	return nil
}

// =============================================================================
// ACCRUAL OPERATIONS
// =============================================================================

// GenerateAccruals upserts the credits of [from, to] using the salary in
// force each month. Re-invoking over an already generated range leaves the
// balances unchanged.
func (e *Engine) GenerateAccruals(ctx context.Context, actor Actor, id EmployeeID, from, to Month) error {
	unlock := e.lockEmployee(id)
	defer unlock()

	emp, err := e.loadEmployee(ctx, id)
	if err != nil {
		return err
	}
	periods, err := e.history.History(ctx, id)
	if err != nil {
		return err
	}

	now := e.now()
	batch := NewBatch()
	if err := e.generator.Stage(ctx, batch, *emp, SalaryResolver(periods), from, to, now); err != nil {
		return err
	}
	if err := e.store.Apply(ctx, batch); err != nil {
		return fmt.Errorf("generate accruals: %w", err)
	}
	e.emit(ctx, actor, AuditAccrualsGenerated, "employee", string(id), map[string]any{
		"from": from.String(),
		"to":   to.String(),
	})
	return nil
}

// RegenerateAccruals rebuilds the full range from the hire month through the
// current month. Settled history is untouched; pending credits are rewritten
// in place from the salary history.
func (e *Engine) RegenerateAccruals(ctx context.Context, actor Actor, id EmployeeID) error {
	emp, err := e.loadEmployee(ctx, id)
	if err != nil {
		return err
	}
	return e.GenerateAccruals(ctx, actor, id, MonthOf(emp.StartDate), CurrentMonth(e.now()))
}

// =============================================================================
// PAYMENT OPERATIONS
// =============================================================================

// SubmitPayment settles the selections against the employee's ledgers. The
// balance check happens under the employee lock, so concurrent submissions
// cannot both pass it.
func (e *Engine) SubmitPayment(ctx context.Context, actor Actor, id EmployeeID, selections map[Concept]Selection, month Month) (*Payment, error) {
	unlock := e.lockEmployee(id)
	defer unlock()

	emp, err := e.loadEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.now()
	batch := NewBatch()
	payment, err := e.processor.StageSubmit(ctx, batch, *emp, selections, month, now)
	if err != nil {
		return nil, err
	}
	if err := e.store.Apply(ctx, batch); err != nil {
		return nil, fmt.Errorf("submit payment: %w", err)
	}
	e.emit(ctx, actor, AuditPaymentSubmitted, "payment", string(payment.ID), map[string]any{
		"employeeId": string(id),
		"total":      payment.Total,
		"month":      month.String(),
	})
	return payment, nil
}

// DeletePayment removes the payment and its debit movements in one commit.
func (e *Engine) DeletePayment(ctx context.Context, actor Actor, id EmployeeID, paymentID PaymentID) error {
	unlock := e.lockEmployee(id)
	defer unlock()

	if _, err := e.loadEmployee(ctx, id); err != nil {
		return err
	}

	now := e.now()
	batch := NewBatch()
	payment, err := e.processor.StageDelete(ctx, batch, id, paymentID, now)
	if err != nil {
		return err
	}
	if err := e.store.Apply(ctx, batch); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	e.emit(ctx, actor, AuditPaymentDeleted, "payment", string(paymentID), map[string]any{
		"employeeId": string(id),
		"total":      payment.Total,
	})
	return nil
}

func (e *Engine) Payments(ctx context.Context, id EmployeeID) ([]Payment, error) {
	if _, err := e.loadEmployee(ctx, id); err != nil {
		return nil, err
	}
	return e.processor.Payments(ctx, id)
}

// GetPayment returns one payment by ID.
func (e *Engine) GetPayment(ctx context.Context, id EmployeeID, paymentID PaymentID) (*Payment, error) {
	payment, err := getRecord[Payment](ctx, e.store, PaymentPath(id, paymentID))
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	return payment, nil
}
