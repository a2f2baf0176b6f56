/*
Package benefits defines the accrual formulas for the three benefit
concepts.

PURPOSE:
  One rule per concept, each a pure function of (salary, employment start,
  month). The ledger mechanics in the provision package know nothing about
  payroll; everything formula-shaped lives here.

FORMULAS:
  license:     20 days/year base (1.67 days/month). After 5 full years of
               service, one extra day/year per additional 4 years. Amount =
               round(dailyWage * monthlyDays, 2), dailyWage = round(salary/30, 2).
  vacationPay: round(salary * 0.20, 2)
  bonus:       round(salary / 12, 2)

  Seniority is evaluated against the accrual month itself, not the wall
  clock, so regenerating past months is deterministic.

SEE ALSO:
  - provision/accrual.go: the ConceptRule interface and the generator
*/
package benefits

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/austral/provision-engine/provision"
)

var (
	thirty       = decimal.NewFromInt(30)
	twelve       = decimal.NewFromInt(12)
	vacationRate = decimal.RequireFromString("0.20")
)

// DefaultRules returns the standard rule set, one per concept.
func DefaultRules() []provision.ConceptRule {
	return []provision.ConceptRule{LicenseRule{}, VacationPayRule{}, BonusRule{}}
}

// DailyWage is the salary divided over a 30-day month, in cents.
func DailyWage(salary provision.Money) provision.Money {
	return salary.Div(thirty).RoundCents()
}

// MonthlyLicenseDays returns the license days accrued in month for an
// employee hired at employmentStart, rounded to 2 decimals.
func MonthlyLicenseDays(employmentStart time.Time, month provision.Month) decimal.Decimal {
	months := provision.MonthsBetween(provision.MonthOf(employmentStart), month)
	annualDays := int64(20)
	// One extra day per 4 years beyond the first 5 full years of service.
	if months > 60 {
		annualDays += int64((months - 60) / 48)
	}
	return decimal.NewFromInt(annualDays).Div(twelve).Round(2)
}

// =============================================================================
// LICENSE
// =============================================================================

// LicenseRule accrues paid-license days and their monetary value.
type LicenseRule struct{}

func (LicenseRule) Concept() provision.Concept { return provision.ConceptLicense }

func (LicenseRule) Accrue(salary provision.Money, employmentStart time.Time, month provision.Month) provision.Accrual {
	days := MonthlyLicenseDays(employmentStart, month)
	amount := DailyWage(salary).Mul(days).RoundCents()
	return provision.Accrual{Amount: amount, Days: &days}
}

// =============================================================================
// VACATION PAY
// =============================================================================

// VacationPayRule accrues the vacation supplement at 20% of salary.
type VacationPayRule struct{}

func (VacationPayRule) Concept() provision.Concept { return provision.ConceptVacationPay }

func (VacationPayRule) Accrue(salary provision.Money, _ time.Time, _ provision.Month) provision.Accrual {
	return provision.Accrual{Amount: salary.Mul(vacationRate).RoundCents()}
}

// =============================================================================
// BONUS
// =============================================================================

// BonusRule accrues one twelfth of the salary toward the year-end bonus.
type BonusRule struct{}

func (BonusRule) Concept() provision.Concept { return provision.ConceptBonus }

func (BonusRule) Accrue(salary provision.Money, _ time.Time, _ provision.Month) provision.Accrual {
	return provision.Accrual{Amount: salary.Div(twelve).RoundCents()}
}
