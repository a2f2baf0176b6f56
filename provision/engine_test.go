package provision_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral/provision-engine/benefits"
	"github.com/austral/provision-engine/provision"
	"github.com/austral/provision-engine/provision/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// The clock is pinned so backfills and seniority are deterministic.
var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, provision.Zone)

func newTestEngine(t *testing.T) (*provision.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	engine := provision.NewEngine(mem, benefits.DefaultRules(),
		provision.WithClock(func() time.Time { return testNow }),
		provision.WithAuditSink(provision.NopAuditSink{}),
	)
	return engine, mem
}

// createTestEmployee hires at January 2024 with salary 36000, which backfills
// six months of credits (January through June).
func createTestEmployee(t *testing.T, engine *provision.Engine) *provision.Employee {
	t.Helper()
	emp, err := engine.CreateEmployee(context.Background(), "tester", provision.CreateEmployeeInput{
		FullName:   "Ana Perez",
		NationalID: "4.123.456-7",
		StartDate:  time.Date(2024, time.January, 10, 0, 0, 0, 0, provision.Zone),
		Salary:     provision.NewMoneyFromInt(36000),
	})
	require.NoError(t, err)
	return emp
}

func balanceFor(t *testing.T, engine *provision.Engine, id provision.EmployeeID, concept provision.Concept) provision.AccountBalance {
	t.Helper()
	balances, err := engine.Balances(context.Background(), id)
	require.NoError(t, err)
	for _, b := range balances {
		if b.Account.Concept == concept {
			return b
		}
	}
	t.Fatalf("no balance for concept %s", concept)
	return provision.AccountBalance{}
}

// =============================================================================
// EMPLOYEE CREATION & BACKFILL
// =============================================================================

func TestEngine_CreateEmployee_BackfillsAccruals(t *testing.T) {
	// GIVEN: An employee hired January 2024 at salary 36000
	// WHEN: Created with the clock at June 2024
	// THEN: Six months of credits exist per concept, with the known amounts
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	assert.Equal(t, "36000.00", emp.CurrentSalary.String())

	license := balanceFor(t, engine, emp.ID, provision.ConceptLicense)
	assert.Equal(t, "12024.00", license.Balance.String()) // 6 x 2004.00
	assert.InDelta(t, 10.02, license.PendingDays, 0.001)  // 6 x 1.67

	vacation := balanceFor(t, engine, emp.ID, provision.ConceptVacationPay)
	assert.Equal(t, "43200.00", vacation.Balance.String()) // 6 x 7200.00

	bonus := balanceFor(t, engine, emp.ID, provision.ConceptBonus)
	assert.Equal(t, "18000.00", bonus.Balance.String()) // 6 x 3000.00

	movements, err := engine.AccountMovements(ctx, emp.ID, provision.ConceptBonus)
	require.NoError(t, err)
	require.Len(t, movements, 6)
	// Newest first
	assert.Equal(t, "2024-06", movements[0].Month.String())
	assert.Equal(t, "2024-01", movements[5].Month.String())
	for _, mv := range movements {
		assert.Equal(t, provision.MovementCredit, mv.Type)
		assert.Equal(t, provision.StatusPending, mv.Status)
		assert.Equal(t, "3000.00", mv.Amount.String())
		assert.Equal(t, "36000.00", mv.BaseSalary.String())
	}

	// The hire period opens at the hire month and stays open
	periods, err := engine.SalaryHistory(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "2024-01", periods[0].Start.String())
	assert.True(t, periods[0].Open())
}

func TestEngine_CreateEmployee_KnownMonthlyAmounts(t *testing.T) {
	// GIVEN: Salary 30000 from January 2023
	// THEN: Every bonus credit is exactly 2500.00
	engine, _ := newTestEngine(t)
	emp, err := engine.CreateEmployee(context.Background(), "tester", provision.CreateEmployeeInput{
		FullName:   "Juan Gomez",
		NationalID: "3.987.654-1",
		StartDate:  time.Date(2023, time.January, 1, 0, 0, 0, 0, provision.Zone),
		Salary:     provision.NewMoneyFromInt(30000),
	})
	require.NoError(t, err)

	movements, err := engine.AccountMovements(context.Background(), emp.ID, provision.ConceptBonus)
	require.NoError(t, err)
	require.Len(t, movements, 18) // 2023-01 .. 2024-06
	for _, mv := range movements {
		assert.Equal(t, "2500.00", mv.Amount.String())
	}
}

func TestEngine_CreateEmployee_Validation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	base := provision.CreateEmployeeInput{
		FullName:   "Ana Perez",
		NationalID: "4.123.456-7",
		StartDate:  time.Date(2024, time.January, 10, 0, 0, 0, 0, provision.Zone),
		Salary:     provision.NewMoneyFromInt(36000),
	}

	missing := base
	missing.FullName = "  "
	_, err := engine.CreateEmployee(ctx, "tester", missing)
	assert.ErrorIs(t, err, provision.ErrInvalidInput)

	broke := base
	broke.Salary = provision.NewMoneyFromInt(0)
	_, err = engine.CreateEmployee(ctx, "tester", broke)
	assert.ErrorIs(t, err, provision.ErrInvalidInput)

	future := base
	future.StartDate = time.Date(2024, time.August, 1, 0, 0, 0, 0, provision.Zone)
	_, err = engine.CreateEmployee(ctx, "tester", future)
	assert.ErrorIs(t, err, provision.ErrHireDateInFuture)
}

func TestEngine_DeleteEmployee_RemovesEverything(t *testing.T) {
	// GIVEN: An employee with periods, accounts, movements and a payment
	// WHEN: The employee is deleted
	// THEN: No document of theirs survives
	engine, mem := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	_, err := engine.SubmitPayment(ctx, "tester", emp.ID, map[provision.Concept]provision.Selection{
		provision.ConceptBonus: {Amount: provision.NewMoneyFromInt(1000)},
	}, provision.NewMonth(2024, time.June))
	require.NoError(t, err)

	require.NoError(t, engine.DeleteEmployee(ctx, "tester", emp.ID))

	assert.Equal(t, 0, mem.Len())
	_, err = engine.GetEmployee(ctx, emp.ID)
	assert.ErrorIs(t, err, provision.ErrEmployeeNotFound)
}

// =============================================================================
// ACCRUAL GENERATION
// =============================================================================

func TestEngine_RegenerateAccruals_Idempotent(t *testing.T) {
	// GIVEN: An employee with a full backfill
	// WHEN: Regenerating twice more
	// THEN: Balances and movement counts do not change
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	before := balanceFor(t, engine, emp.ID, provision.ConceptBonus)

	require.NoError(t, engine.RegenerateAccruals(ctx, "tester", emp.ID))
	require.NoError(t, engine.RegenerateAccruals(ctx, "tester", emp.ID))

	after := balanceFor(t, engine, emp.ID, provision.ConceptBonus)
	assert.True(t, before.Balance.Equal(after.Balance))

	movements, err := engine.AccountMovements(ctx, emp.ID, provision.ConceptBonus)
	require.NoError(t, err)
	assert.Len(t, movements, 6)
}

func TestEngine_GenerateAccruals_LeavesSettledHistoryAlone(t *testing.T) {
	// GIVEN: A payment debit on the bonus ledger
	// WHEN: Accruals are regenerated
	// THEN: The debit survives and the balance still reflects it
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	_, err := engine.SubmitPayment(ctx, "tester", emp.ID, map[provision.Concept]provision.Selection{
		provision.ConceptBonus: {Amount: provision.NewMoneyFromInt(5000)},
	}, provision.NewMonth(2024, time.June))
	require.NoError(t, err)

	require.NoError(t, engine.RegenerateAccruals(ctx, "tester", emp.ID))

	bonus := balanceFor(t, engine, emp.ID, provision.ConceptBonus)
	assert.Equal(t, "13000.00", bonus.Balance.String())
}

// =============================================================================
// SALARY UPDATES
// =============================================================================

func TestEngine_UpdateSalary_OrderingRule(t *testing.T) {
	// GIVEN: The open period starts January 2024
	// THEN: Effective months up to February are rejected, March is accepted
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()
	amount := provision.NewMoneyFromInt(40000)

	_, err := engine.UpdateSalary(ctx, "tester", emp.ID, amount, provision.NewMonth(2024, time.January))
	assert.ErrorIs(t, err, provision.ErrPeriodOrder)

	_, err = engine.UpdateSalary(ctx, "tester", emp.ID, amount, provision.NewMonth(2024, time.February))
	assert.ErrorIs(t, err, provision.ErrPeriodOrder)
	var orderErr *provision.PeriodOrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, "2024-03", orderErr.Minimum.String())

	_, err = engine.UpdateSalary(ctx, "tester", emp.ID, amount, provision.NewMonth(2024, time.March))
	assert.NoError(t, err)
}

func TestEngine_UpdateSalary_RecalculatesPendingCredits(t *testing.T) {
	// GIVEN: Six bonus credits of 3000 at salary 36000
	// WHEN: Salary becomes 42000 effective April 2024
	// THEN: April through June are rewritten in place to 3500, earlier months stay
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	period, err := engine.UpdateSalary(ctx, "tester", emp.ID,
		provision.NewMoneyFromInt(42000), provision.NewMonth(2024, time.April))
	require.NoError(t, err)
	assert.Equal(t, "2024-04", period.Start.String())
	assert.True(t, period.Open())

	// 3 x 3000 + 3 x 3500
	bonus := balanceFor(t, engine, emp.ID, provision.ConceptBonus)
	assert.Equal(t, "19500.00", bonus.Balance.String())

	movements, err := engine.AccountMovements(ctx, emp.ID, provision.ConceptBonus)
	require.NoError(t, err)
	require.Len(t, movements, 6)
	assert.Equal(t, "3500.00", movements[0].Amount.String()) // 2024-06
	assert.Equal(t, "42000.00", movements[0].BaseSalary.String())
	assert.Equal(t, "3000.00", movements[5].Amount.String()) // 2024-01

	// The previous period closed the month before the effective month
	periods, err := engine.SalaryHistory(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	require.NotNil(t, periods[0].End)
	assert.Equal(t, "2024-03", periods[0].End.String())

	// Current salary activated immediately (effective month is in the past)
	got, err := engine.GetEmployee(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "42000.00", got.CurrentSalary.String())
}

func TestEngine_UpdateSalary_FutureEffectiveMonth(t *testing.T) {
	// GIVEN: A salary change effective August 2024, clock at June
	// THEN: The period is recorded but no credit changes and the current
	//       salary stays until re-triggered
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	_, err := engine.UpdateSalary(ctx, "tester", emp.ID,
		provision.NewMoneyFromInt(50000), provision.NewMonth(2024, time.August))
	require.NoError(t, err)

	got, err := engine.GetEmployee(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "36000.00", got.CurrentSalary.String())

	bonus := balanceFor(t, engine, emp.ID, provision.ConceptBonus)
	assert.Equal(t, "18000.00", bonus.Balance.String())

	periods, err := engine.SalaryHistory(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	require.NotNil(t, periods[0].End)
	assert.Equal(t, "2024-07", periods[0].End.String())
}

// =============================================================================
// SALARY PERIOD DELETION
// =============================================================================

func TestEngine_DeletePeriod_Rules(t *testing.T) {
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	periods, err := engine.SalaryHistory(ctx, emp.ID)
	require.NoError(t, err)
	hirePeriod := periods[0].ID

	// The hire period can never be deleted
	err = engine.DeletePeriod(ctx, "tester", emp.ID, hirePeriod)
	assert.ErrorIs(t, err, provision.ErrPeriodNotDeletable)

	// Unknown period
	err = engine.DeletePeriod(ctx, "tester", emp.ID, "nope")
	assert.ErrorIs(t, err, provision.ErrPeriodNotFound)

	// After two updates only the latest period is deletable
	middle, err := engine.UpdateSalary(ctx, "tester", emp.ID,
		provision.NewMoneyFromInt(40000), provision.NewMonth(2024, time.March))
	require.NoError(t, err)
	_, err = engine.UpdateSalary(ctx, "tester", emp.ID,
		provision.NewMoneyFromInt(45000), provision.NewMonth(2024, time.May))
	require.NoError(t, err)

	err = engine.DeletePeriod(ctx, "tester", emp.ID, middle.ID)
	assert.ErrorIs(t, err, provision.ErrPeriodNotDeletable)
	var delErr *provision.PeriodDeleteError
	require.ErrorAs(t, err, &delErr)
	assert.Equal(t, "not latest", delErr.Reason)
}

func TestEngine_DeletePeriod_RegeneratesAtPreviousSalary(t *testing.T) {
	// GIVEN: A salary update to 42000 effective April, recalced credits
	// WHEN: The new period is deleted
	// THEN: The hire period reopens, salary reverts and the credits return
	//       to 3000, with no duplicates
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	period, err := engine.UpdateSalary(ctx, "tester", emp.ID,
		provision.NewMoneyFromInt(42000), provision.NewMonth(2024, time.April))
	require.NoError(t, err)

	require.NoError(t, engine.DeletePeriod(ctx, "tester", emp.ID, period.ID))

	periods, err := engine.SalaryHistory(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.True(t, periods[0].Open())

	got, err := engine.GetEmployee(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "36000.00", got.CurrentSalary.String())

	bonus := balanceFor(t, engine, emp.ID, provision.ConceptBonus)
	assert.Equal(t, "18000.00", bonus.Balance.String())

	movements, err := engine.AccountMovements(ctx, emp.ID, provision.ConceptBonus)
	require.NoError(t, err)
	assert.Len(t, movements, 6)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestEngine_SubmitPayment_SettlesSelections(t *testing.T) {
	// GIVEN: Bonus balance 18000 and vacation balance 43200
	// WHEN: Paying bonus 5000 and vacation 1000 for June
	// THEN: One payment with total 6000 and two completed debits
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	days := decimal.RequireFromString("2")
	payment, err := engine.SubmitPayment(ctx, "tester", emp.ID, map[provision.Concept]provision.Selection{
		provision.ConceptBonus:       {Amount: provision.NewMoneyFromInt(5000)},
		provision.ConceptVacationPay: {Amount: provision.NewMoneyFromInt(1000), Days: &days},
	}, provision.NewMonth(2024, time.June))
	require.NoError(t, err)

	assert.Equal(t, "6000.00", payment.Total.String())
	assert.Equal(t, provision.PaymentCompleted, payment.Status)
	require.Len(t, payment.Details, 2)

	bonus := balanceFor(t, engine, emp.ID, provision.ConceptBonus)
	assert.Equal(t, "13000.00", bonus.Balance.String())

	movements, err := engine.AccountMovements(ctx, emp.ID, provision.ConceptBonus)
	require.NoError(t, err)
	require.Len(t, movements, 7)
	var debit *provision.Movement
	for i := range movements {
		if movements[i].Type == provision.MovementDebit {
			debit = &movements[i]
		}
	}
	require.NotNil(t, debit)
	assert.Equal(t, provision.MovementDebit, debit.Type)
	assert.Equal(t, provision.StatusCompleted, debit.Status)
	assert.Equal(t, payment.ID, debit.PaymentRef)

	payments, err := engine.Payments(ctx, emp.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestEngine_SubmitPayment_OverpaymentRejected(t *testing.T) {
	// GIVEN: Bonus balance 18000
	// WHEN: Requesting 18000.01
	// THEN: Rejected with balance context and nothing is written
	engine, mem := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	docsBefore := mem.Len()
	_, err := engine.SubmitPayment(ctx, "tester", emp.ID, map[provision.Concept]provision.Selection{
		provision.ConceptBonus: {Amount: provision.MustParseMoney("18000.01")},
	}, provision.NewMonth(2024, time.June))

	assert.ErrorIs(t, err, provision.ErrInsufficientBalance)
	var balErr *provision.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Equal(t, "18000.00", balErr.Available.String())
	assert.Equal(t, "18000.01", balErr.Requested.String())

	assert.Equal(t, docsBefore, mem.Len())
	payments, err := engine.Payments(ctx, emp.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	// Paying exactly the balance is fine
	_, err = engine.SubmitPayment(ctx, "tester", emp.ID, map[provision.Concept]provision.Selection{
		provision.ConceptBonus: {Amount: provision.NewMoneyFromInt(18000)},
	}, provision.NewMonth(2024, time.June))
	assert.NoError(t, err)
}

func TestEngine_SubmitPayment_Validation(t *testing.T) {
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()
	month := provision.NewMonth(2024, time.June)

	_, err := engine.SubmitPayment(ctx, "tester", emp.ID,
		map[provision.Concept]provision.Selection{}, month)
	assert.ErrorIs(t, err, provision.ErrInvalidInput)

	_, err = engine.SubmitPayment(ctx, "tester", emp.ID, map[provision.Concept]provision.Selection{
		"overtime": {Amount: provision.NewMoneyFromInt(100)},
	}, month)
	assert.ErrorIs(t, err, provision.ErrInvalidInput)

	_, err = engine.SubmitPayment(ctx, "tester", emp.ID, map[provision.Concept]provision.Selection{
		provision.ConceptBonus: {Amount: provision.NewMoneyFromInt(-5)},
	}, month)
	assert.ErrorIs(t, err, provision.ErrInvalidInput)
}

func TestEngine_DeletePayment_RestoresBalance(t *testing.T) {
	// GIVEN: A settled payment debiting the bonus ledger
	// WHEN: The payment is deleted
	// THEN: The debits disappear and the balance recovers by itself
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	payment, err := engine.SubmitPayment(ctx, "tester", emp.ID, map[provision.Concept]provision.Selection{
		provision.ConceptBonus: {Amount: provision.NewMoneyFromInt(5000)},
	}, provision.NewMonth(2024, time.June))
	require.NoError(t, err)

	require.NoError(t, engine.DeletePayment(ctx, "tester", emp.ID, payment.ID))

	bonus := balanceFor(t, engine, emp.ID, provision.ConceptBonus)
	assert.Equal(t, "18000.00", bonus.Balance.String())

	movements, err := engine.AccountMovements(ctx, emp.ID, provision.ConceptBonus)
	require.NoError(t, err)
	assert.Len(t, movements, 6)

	payments, err := engine.Payments(ctx, emp.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	err = engine.DeletePayment(ctx, "tester", emp.ID, payment.ID)
	assert.ErrorIs(t, err, provision.ErrPaymentNotFound)
}

// =============================================================================
// AUDIT
// =============================================================================

func TestEngine_AuditTrail(t *testing.T) {
	// GIVEN: An engine with the default store-backed audit sink
	// WHEN: Mutations run
	// THEN: One audit entry per mutation lands under auditLogs/
	mem := store.NewMemory()
	engine := provision.NewEngine(mem, benefits.DefaultRules(),
		provision.WithClock(func() time.Time { return testNow }),
	)
	ctx := context.Background()

	emp, err := engine.CreateEmployee(ctx, "hr-admin", provision.CreateEmployeeInput{
		FullName:   "Ana Perez",
		NationalID: "4.123.456-7",
		StartDate:  time.Date(2024, time.January, 10, 0, 0, 0, 0, provision.Zone),
		Salary:     provision.NewMoneyFromInt(36000),
	})
	require.NoError(t, err)
	_, err = engine.SubmitPayment(ctx, "hr-admin", emp.ID, map[provision.Concept]provision.Selection{
		provision.ConceptBonus: {Amount: provision.NewMoneyFromInt(1000)},
	}, provision.NewMonth(2024, time.June))
	require.NoError(t, err)

	docs, err := mem.List(ctx, "auditLogs")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	actions := make(map[provision.AuditAction]provision.AuditEntry)
	for _, raw := range docs {
		var entry provision.AuditEntry
		require.NoError(t, json.Unmarshal(raw, &entry))
		actions[entry.Action] = entry
	}
	require.Contains(t, actions, provision.AuditEmployeeCreated)
	require.Contains(t, actions, provision.AuditPaymentSubmitted)
	assert.Equal(t, provision.Actor("hr-admin"), actions[provision.AuditEmployeeCreated].Actor)
	assert.Equal(t, "employee", actions[provision.AuditEmployeeCreated].EntityType)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestEngine_GetOrCreateAccount_Idempotent(t *testing.T) {
	engine, _ := newTestEngine(t)
	emp := createTestEmployee(t, engine)
	ctx := context.Background()

	first, err := engine.GetOrCreateAccount(ctx, emp.ID, provision.ConceptBonus)
	require.NoError(t, err)
	second, err := engine.GetOrCreateAccount(ctx, emp.ID, provision.ConceptBonus)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = engine.GetOrCreateAccount(ctx, emp.ID, "overtime")
	assert.ErrorIs(t, err, provision.ErrInvalidInput)
}
