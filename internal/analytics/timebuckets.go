package analytics

import (
	"fmt"

	"fanrevenue/internal/core"
)

const (
	hoursPerDay = 24
	daysPerWeek = 7
)

func (c *ActivityCell) add(r core.TransactionRecord) {
	c.Revenue += r.Amount
	c.TransactionCount++
}

// maxima tracks the largest revenue and count seen across cells.
type maxima struct {
	revenue int64
	count   int
}

func (m *maxima) observe(c ActivityCell) {
	m.revenue = max(m.revenue, c.Revenue)
	m.count = max(m.count, c.TransactionCount)
}

// DayOfMonth builds one entry per calendar day of year/month, including
// days without activity. Only dated records inside that month count.
func DayOfMonth(records []core.TransactionRecord, year, month int) (DailyActivity, error) {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return DailyActivity{}, fmt.Errorf("day of month %04d-%02d: %w", year, month, err)
	}

	n := core.DaysInMonth(year, month)
	days := make([]DayActivity, n)
	for i := range days {
		days[i].Day = i + 1
	}
	for _, r := range records {
		if r.Date.InMonth(year, month) {
			days[r.Date.Day()-1].add(r)
		}
	}

	var m maxima
	for _, d := range days {
		m.observe(d.ActivityCell)
	}
	return DailyActivity{
		Year:            year,
		Month:           month,
		Days:            days,
		MaxRevenue:      m.revenue,
		MaxTransactions: m.count,
	}, nil
}

// HourOfDay aggregates every dated record by hour, regardless of month.
func HourOfDay(records []core.TransactionRecord) HourlyActivity {
	hours := make([]HourActivity, hoursPerDay)
	for i := range hours {
		hours[i].Hour = i
	}
	for _, r := range records {
		if r.Date.Valid {
			hours[r.Date.Hour()].add(r)
		}
	}

	var m maxima
	for _, h := range hours {
		m.observe(h.ActivityCell)
	}
	return HourlyActivity{Hours: hours, MaxRevenue: m.revenue, MaxTransactions: m.count}
}

// WeekdayHour aggregates every dated record into a 7x24 matrix, Sunday
// first. Each row carries its own maxima for per-row normalization.
func WeekdayHour(records []core.TransactionRecord) WeekdayHourActivity {
	rows := make([]WeekdayRow, daysPerWeek)
	for i := range rows {
		rows[i] = WeekdayRow{Weekday: i, Hours: make([]ActivityCell, hoursPerDay)}
	}
	for _, r := range records {
		if r.Date.Valid {
			rows[int(r.Date.Weekday())].Hours[r.Date.Hour()].add(r)
		}
	}

	var total maxima
	for i := range rows {
		var m maxima
		for _, c := range rows[i].Hours {
			m.observe(c)
		}
		rows[i].MaxRevenue = m.revenue
		rows[i].MaxTransactions = m.count
		total.observe(ActivityCell{Revenue: m.revenue, TransactionCount: m.count})
	}
	return WeekdayHourActivity{Weekdays: rows, MaxRevenue: total.revenue, MaxTransactions: total.count}
}

// AnalyzeCalendar builds all three matrices from the same records. The
// day-of-month view keeps those dated in year/month; the hour and weekday
// views span everything.
func AnalyzeCalendar(records []core.TransactionRecord, year, month int) (Calendar, error) {
	daily, err := DayOfMonth(records, year, month)
	if err != nil {
		return Calendar{}, err
	}
	return Calendar{
		Daily:       daily,
		Hourly:      HourOfDay(records),
		WeekdayHour: WeekdayHour(records),
	}, nil
}
