package analytics

import (
	"cmp"
	"math"
	"slices"
	"time"

	"fanrevenue/internal/core"
)

const (
	oneDay = 24 * time.Hour

	// daysPerMonth approximates a month for purchase frequency. Kept at 30
	// for output parity with existing dashboards.
	daysPerMonth = 30

	highValueQuantile   = 0.2
	mediumValueQuantile = 0.6
)

// AggregateCustomers rolls records up per buyer, in first-seen order.
func AggregateCustomers(records []core.TransactionRecord) []CustomerAggregate {
	index := make(map[string]int)
	out := make([]CustomerAggregate, 0)
	for _, r := range records {
		i, ok := index[r.BuyerID]
		if !ok {
			i = len(out)
			index[r.BuyerID] = i
			out = append(out, CustomerAggregate{BuyerID: r.BuyerID})
		}
		c := &out[i]
		c.TotalSpent += r.Amount
		c.TransactionCount++
		if !r.Date.Valid {
			continue
		}
		if !c.FirstPurchase.Valid || r.Date.Before(c.FirstPurchase) {
			c.FirstPurchase = r.Date
		}
		if !c.LastPurchase.Valid || c.LastPurchase.Before(r.Date) {
			c.LastPurchase = r.Date
		}
	}
	return out
}

// span is the time between first and last purchase, 0 if either is unknown.
func (c CustomerAggregate) span() time.Duration {
	if !c.FirstPurchase.Valid || !c.LastPurchase.Valid {
		return 0
	}
	return c.LastPurchase.Sub(c.FirstPurchase.Time)
}

// Frequency estimates purchases per 30-day month. Single-purchase
// buyers have no interval and report 0.
func (c CustomerAggregate) Frequency() float64 {
	if c.TransactionCount <= 1 {
		return 0
	}
	days := c.span().Hours() / 24
	months := math.Max(1, math.Ceil(days/daysPerMonth))
	return float64(c.TransactionCount) / months
}

// ActiveDays is the first-to-last purchase span rounded up to whole days.
func (c CustomerAggregate) ActiveDays() int {
	return int(math.Ceil(float64(c.span()) / float64(oneDay)))
}

func bySpentDesc(a, b CustomerAggregate) int {
	return cmp.Compare(b.TotalSpent, a.TotalSpent)
}

// thresholds picks the spend of the buyers at the 20% and 60% positions of
// the spend ranking. The cut is by head count, not by revenue share.
func thresholds(ranked []CustomerAggregate) (high, medium int64) {
	n := len(ranked)
	if n == 0 {
		return 0, 0
	}
	high = ranked[int(math.Floor(highValueQuantile*float64(n)))].TotalSpent
	medium = ranked[int(math.Floor(mediumValueQuantile*float64(n)))].TotalSpent
	return high, medium
}

func classify(c CustomerAggregate, high, medium int64) string {
	switch {
	case c.TotalSpent >= high:
		return SegmentHighValue
	case c.TotalSpent >= medium:
		return SegmentMediumValue
	case c.TransactionCount > 1:
		return SegmentLowValue
	default:
		return SegmentNew
	}
}

// AnalyzeCustomers computes segmentation, repeat detection, leaderboards and
// trends. An empty input yields a zeroed analysis with empty lists and the
// four segments at zero.
func AnalyzeCustomers(records []core.TransactionRecord) CustomerAnalysis {
	buyers := AggregateCustomers(records)
	ranked := slices.Clone(buyers)
	slices.SortStableFunc(ranked, bySpentDesc)
	high, medium := thresholds(ranked)

	var totalRevenue int64
	for _, r := range records {
		totalRevenue += r.Amount
	}

	a := CustomerAnalysis{
		TotalCustomers:       len(buyers),
		HighValueThreshold:   high,
		MediumValueThreshold: medium,
		AllRepeaters:         make([]CustomerSummary, 0),
	}

	segments := map[string]*SegmentSummary{
		SegmentHighValue:   {Name: SegmentHighValue},
		SegmentMediumValue: {Name: SegmentMediumValue},
		SegmentLowValue:    {Name: SegmentLowValue},
		SegmentNew:         {Name: SegmentNew},
	}

	summaries := make([]CustomerSummary, len(buyers))
	for i, b := range buyers {
		s := CustomerSummary{
			CustomerAggregate:       b,
			AverageTransactionValue: ratio(float64(b.TotalSpent), float64(b.TransactionCount)),
			PurchaseFrequency:       b.Frequency(),
			Segment:                 classify(b, high, medium),
		}
		summaries[i] = s

		seg := segments[s.Segment]
		seg.Count++
		seg.TotalSpent += b.TotalSpent

		if b.TransactionCount > 1 {
			a.RepeatCustomers++
			a.AllRepeaters = append(a.AllRepeaters, s)
		} else {
			a.NewCustomers++
		}
	}

	a.Segments = make([]SegmentSummary, 0, len(segments))
	for _, name := range []string{SegmentHighValue, SegmentMediumValue, SegmentLowValue, SegmentNew} {
		seg := segments[name]
		seg.AverageSpent = ratio(float64(seg.TotalSpent), float64(seg.Count))
		a.Segments = append(a.Segments, *seg)
	}

	a.RepeatRate = percent(float64(a.RepeatCustomers), float64(a.TotalCustomers))
	a.AverageSpendPerCustomer = ratio(float64(totalRevenue), float64(a.TotalCustomers))

	a.TopSpenders = slices.Clone(summaries)
	slices.SortStableFunc(a.TopSpenders, func(x, y CustomerSummary) int {
		return bySpentDesc(x.CustomerAggregate, y.CustomerAggregate)
	})
	a.TopSpenders = a.TopSpenders[:min(len(a.TopSpenders), LeaderboardSize)]

	a.RecentCustomers = slices.Clone(summaries)
	slices.SortStableFunc(a.RecentCustomers, func(x, y CustomerSummary) int {
		switch {
		case y.LastPurchase.Before(x.LastPurchase):
			return -1
		case x.LastPurchase.Before(y.LastPurchase):
			return 1
		}
		return 0
	})
	a.RecentCustomers = a.RecentCustomers[:min(len(a.RecentCustomers), LeaderboardSize)]

	a.MonthlyTrend = monthlyTrend(records, buyers)
	a.LifetimeValue = lifetimeValues(ranked)
	return a
}

// monthlyTrend counts a record as new when it happened exactly at the
// buyer's first purchase, otherwise as returning.
func monthlyTrend(records []core.TransactionRecord, buyers []CustomerAggregate) []MonthlyCustomerTrend {
	first := make(map[string]core.Date, len(buyers))
	for _, b := range buyers {
		first[b.BuyerID] = b.FirstPurchase
	}

	byMonth := map[string]*MonthlyCustomerTrend{}
	for _, r := range records {
		key := r.Date.MonthKey()
		if key == "" {
			continue
		}
		m, ok := byMonth[key]
		if !ok {
			m = &MonthlyCustomerTrend{Month: key}
			byMonth[key] = m
		}
		if fp := first[r.BuyerID]; fp.Valid && r.Date.Time.Equal(fp.Time) {
			m.NewCustomers++
		} else {
			m.ReturningCustomers++
		}
		m.TotalRevenue += r.Amount
	}

	out := make([]MonthlyCustomerTrend, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b MonthlyCustomerTrend) int {
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}

func lifetimeValues(ranked []CustomerAggregate) []LifetimeValue {
	out := make([]LifetimeValue, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, LifetimeValue{CustomerAggregate: c, DaysActive: c.ActiveDays()})
	}
	return out
}
