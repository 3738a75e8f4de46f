package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanrevenue/internal/core"
)

func TestDayOfMonth_Length(t *testing.T) {
	cases := []struct {
		year, month, want int
	}{
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 4, 30},
		{2024, 12, 31},
	}
	for _, tc := range cases {
		d, err := DayOfMonth(nil, tc.year, tc.month)
		require.NoError(t, err)
		require.Len(t, d.Days, tc.want)
		assert.Equal(t, 1, d.Days[0].Day)
		assert.Equal(t, tc.want, d.Days[tc.want-1].Day)
		assert.Zero(t, d.MaxRevenue)
	}
}

func TestDayOfMonth_InvalidMonth(t *testing.T) {
	_, err := DayOfMonth(nil, 2024, 13)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestDayOfMonth_OnlyTargetMonth(t *testing.T) {
	records := []core.TransactionRecord{
		rec("a", 100, at(2024, time.January, 5, 10)),
		rec("b", 300, at(2024, time.January, 5, 22)),
		rec("c", 200, at(2024, time.January, 31, 0)),
		rec("d", 999, at(2024, time.February, 5, 10)),
		rec("e", 999, core.Date{}),
	}
	d, err := DayOfMonth(records, 2024, 1)
	require.NoError(t, err)

	assert.Equal(t, ActivityCell{Revenue: 400, TransactionCount: 2}, d.Days[4].ActivityCell)
	assert.Equal(t, ActivityCell{Revenue: 200, TransactionCount: 1}, d.Days[30].ActivityCell)
	assert.Equal(t, int64(400), d.MaxRevenue)
	assert.Equal(t, 2, d.MaxTransactions)
}

func TestHourOfDay(t *testing.T) {
	records := []core.TransactionRecord{
		rec("a", 100, at(2024, time.January, 5, 10)),
		rec("b", 300, at(2023, time.July, 5, 10)),
		rec("c", 50, at(2024, time.March, 1, 0)),
		rec("d", 999, core.Date{}),
	}
	h := HourOfDay(records)

	require.Len(t, h.Hours, 24)
	assert.Equal(t, 10, h.Hours[10].Hour)
	assert.Equal(t, ActivityCell{Revenue: 400, TransactionCount: 2}, h.Hours[10].ActivityCell)
	assert.Equal(t, ActivityCell{Revenue: 50, TransactionCount: 1}, h.Hours[0].ActivityCell)
	assert.Equal(t, int64(400), h.MaxRevenue)
	assert.Equal(t, 2, h.MaxTransactions)
}

func TestWeekdayHour(t *testing.T) {
	// 2024-01-07 is a Sunday, 2024-01-10 a Wednesday.
	records := []core.TransactionRecord{
		rec("a", 100, at(2024, time.January, 7, 9)),
		rec("b", 500, at(2024, time.January, 10, 21)),
		rec("c", 200, at(2024, time.January, 10, 21)),
		rec("d", 999, core.Date{}),
	}
	w := WeekdayHour(records)

	require.Len(t, w.Weekdays, 7)
	for i, row := range w.Weekdays {
		assert.Equal(t, i, row.Weekday)
		require.Len(t, row.Hours, 24)
	}
	assert.Equal(t, ActivityCell{Revenue: 100, TransactionCount: 1}, w.Weekdays[0].Hours[9])
	assert.Equal(t, ActivityCell{Revenue: 700, TransactionCount: 2}, w.Weekdays[3].Hours[21])
	assert.Equal(t, int64(100), w.Weekdays[0].MaxRevenue)
	assert.Equal(t, int64(700), w.Weekdays[3].MaxRevenue)
	assert.Zero(t, w.Weekdays[6].MaxRevenue)
	assert.Equal(t, int64(700), w.MaxRevenue)
	assert.Equal(t, 2, w.MaxTransactions)
}

func TestAnalyzeCalendar_Scopes(t *testing.T) {
	jan := []core.TransactionRecord{rec("a", 100, at(2024, time.January, 5, 10))}
	all := append([]core.TransactionRecord{rec("b", 300, at(2023, time.December, 5, 10))}, jan...)

	c, err := AnalyzeCalendar(all, 2024, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(100), c.Daily.MaxRevenue)
	assert.Equal(t, int64(100), c.Daily.Days[4].Revenue)
	assert.Equal(t, int64(400), c.Hourly.Hours[10].Revenue)
	// 2023-12-05 is a Tuesday and 2024-01-05 a Friday.
	assert.Equal(t, int64(300), c.WeekdayHour.Weekdays[2].Hours[10].Revenue)
	assert.Equal(t, int64(100), c.WeekdayHour.Weekdays[5].Hours[10].Revenue)
}
