package provision

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// MONTH - Calendar month in the ledger time zone
// =============================================================================

// Zone is the fixed local time zone all ledger dates are normalized in.
// Movement dates are always the first day of a calendar month in this zone.
var Zone = loadZone()

func loadZone() *time.Location {
	loc, err := time.LoadLocation("America/Montevideo")
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}

// Month is a calendar month. The engine keys every accrual and payment by
// month, never by day, so Month is the primary time unit of the ledger.
type Month struct {
	year int
	mon  time.Month
}

func NewMonth(year int, mon time.Month) Month {
	// time.Date normalizes out-of-range months (e.g. month 13 -> next January)
	t := time.Date(year, mon, 1, 0, 0, 0, 0, Zone)
	return Month{year: t.Year(), mon: t.Month()}
}

// MonthOf returns the calendar month containing t, evaluated in Zone.
func MonthOf(t time.Time) Month {
	local := t.In(Zone)
	return Month{year: local.Year(), mon: local.Month()}
}

// CurrentMonth returns the month containing now.
func CurrentMonth(now time.Time) Month { return MonthOf(now) }

// ParseMonth parses "2006-01" and, for convenience, full dates "2006-01-02".
func ParseMonth(s string) (Month, error) {
	if t, err := time.ParseInLocation("2006-01", s, Zone); err == nil {
		return MonthOf(t), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, Zone); err == nil {
		return MonthOf(t), nil
	}
	return Month{}, fmt.Errorf("invalid month %q (want YYYY-MM)", s)
}

// Start returns the first instant of the month, the canonical movement date.
func (m Month) Start() time.Time {
	return time.Date(m.year, m.mon, 1, 0, 0, 0, 0, Zone)
}

// End returns the last day of the month at midnight, used when closing a
// salary period.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, -1)
}

func (m Month) Year() int         { return m.year }
func (m Month) Month() time.Month { return m.mon }
func (m Month) IsZero() bool      { return m.year == 0 && m.mon == 0 }

func (m Month) index() int { return m.year*12 + int(m.mon) - 1 }

// Comparison
func (m Month) Before(o Month) bool        { return m.index() < o.index() }
func (m Month) After(o Month) bool         { return m.index() > o.index() }
func (m Month) Equal(o Month) bool         { return m.index() == o.index() }
func (m Month) BeforeOrEqual(o Month) bool { return m.index() <= o.index() }
func (m Month) AfterOrEqual(o Month) bool  { return m.index() >= o.index() }

// Arithmetic
func (m Month) AddMonths(n int) Month { return NewMonth(m.year, m.mon+time.Month(n)) }
func (m Month) Prev() Month           { return m.AddMonths(-1) }
func (m Month) Next() Month           { return m.AddMonths(1) }

// MonthsBetween returns the number of whole months from a to b; negative if
// b is earlier.
func MonthsBetween(a, b Month) int { return b.index() - a.index() }

func (m Month) String() string { return m.Start().Format("2006-01") }

func (m Month) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

func (m *Month) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MonthPtr is a convenience for the nullable end of a salary period.
func MonthPtr(m Month) *Month { return &m }
