package benefits_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral/provision-engine/benefits"
	"github.com/austral/provision-engine/provision"
)

// =============================================================================
// FORMULA TESTS
// =============================================================================

func hired(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, provision.Zone)
}

func TestDailyWage(t *testing.T) {
	// GIVEN: Salary 36000
	// THEN: Daily wage is salary/30 = 1200.00
	assert.Equal(t, "1200.00", benefits.DailyWage(provision.NewMoneyFromInt(36000)).String())

	// Rounding to cents
	assert.Equal(t, "1166.67", benefits.DailyWage(provision.NewMoneyFromInt(35000)).String())
}

func TestMonthlyLicenseDays_UnderFiveYears(t *testing.T) {
	// GIVEN: Employee with less than 5 years of service
	// THEN: 20 days/year accrue at 1.67 days/month
	days := benefits.MonthlyLicenseDays(hired(2022, time.March), provision.NewMonth(2024, time.June))
	assert.Equal(t, "1.67", days.StringFixed(2))
}

func TestMonthlyLicenseDays_SeniorityExtraDays(t *testing.T) {
	// GIVEN: Employee hired January 2010
	// WHEN: Accruing for January 2020 (10 years = 120 months of service)
	// THEN: 20 base + floor((10-5)/4) = 21 days/year -> 1.75 days/month
	days := benefits.MonthlyLicenseDays(hired(2010, time.January), provision.NewMonth(2020, time.January))
	assert.Equal(t, "1.75", days.StringFixed(2))

	// Exactly 5 years: no extra day yet
	days = benefits.MonthlyLicenseDays(hired(2015, time.January), provision.NewMonth(2020, time.January))
	assert.Equal(t, "1.67", days.StringFixed(2))

	// 13 years: 20 + floor(8/4) = 22 days/year -> 1.83 days/month
	days = benefits.MonthlyLicenseDays(hired(2007, time.January), provision.NewMonth(2020, time.January))
	assert.Equal(t, "1.83", days.StringFixed(2))
}

func TestLicenseRule_Accrue(t *testing.T) {
	// GIVEN: Salary 36000, junior employee
	// THEN: Amount = round(1200.00 * 1.67, 2) = 2004.00, days carried on the accrual
	rule := benefits.LicenseRule{}
	accrual := rule.Accrue(provision.NewMoneyFromInt(36000), hired(2023, time.January), provision.NewMonth(2024, time.January))

	assert.Equal(t, "2004.00", accrual.Amount.String())
	require.NotNil(t, accrual.Days)
	assert.Equal(t, "1.67", accrual.Days.StringFixed(2))
}

func TestVacationPayRule_Accrue(t *testing.T) {
	// GIVEN: Salary 36000
	// THEN: 20% = 7200.00
	rule := benefits.VacationPayRule{}
	accrual := rule.Accrue(provision.NewMoneyFromInt(36000), hired(2023, time.January), provision.NewMonth(2024, time.January))

	assert.Equal(t, "7200.00", accrual.Amount.String())
	assert.Nil(t, accrual.Days)
}

func TestBonusRule_Accrue(t *testing.T) {
	// GIVEN: Salary 36000
	// THEN: One twelfth = 3000.00
	rule := benefits.BonusRule{}
	accrual := rule.Accrue(provision.NewMoneyFromInt(36000), hired(2023, time.January), provision.NewMonth(2024, time.January))
	assert.Equal(t, "3000.00", accrual.Amount.String())

	// Salary 30000 -> 2500.00
	accrual = rule.Accrue(provision.NewMoneyFromInt(30000), hired(2023, time.January), provision.NewMonth(2023, time.February))
	assert.Equal(t, "2500.00", accrual.Amount.String())
}

func TestDefaultRules_CoverAllConcepts(t *testing.T) {
	rules := benefits.DefaultRules()
	require.Len(t, rules, 3)

	seen := make(map[provision.Concept]bool)
	for _, r := range rules {
		seen[r.Concept()] = true
	}
	for _, c := range provision.Concepts() {
		assert.True(t, seen[c], "missing rule for %s", c)
	}
}
