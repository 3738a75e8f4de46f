package analytics

import (
	"cmp"
	"slices"

	"fanrevenue/internal/core"
)

// itemTotals accumulates sales for one product name.
type itemTotals struct {
	name    string
	kind    core.Kind
	revenue int64
	count   int
}

// itemGroups keeps groups in first-seen order so that stable sorts break
// ties by appearance.
type itemGroups struct {
	order []*itemTotals
	index map[string]*itemTotals
}

func newItemGroups() *itemGroups {
	return &itemGroups{index: make(map[string]*itemTotals)}
}

func (g *itemGroups) add(r core.TransactionRecord) {
	t, ok := g.index[r.Target]
	if !ok {
		t = &itemTotals{name: r.Target, kind: r.Kind}
		g.index[r.Target] = t
		g.order = append(g.order, t)
	}
	t.revenue += r.Amount
	t.count++
}

func (g *itemGroups) details() []ItemDetail {
	out := make([]ItemDetail, 0, len(g.order))
	for _, t := range g.order {
		out = append(out, ItemDetail{
			Name:         t.name,
			SalesCount:   t.count,
			TotalRevenue: t.revenue,
			AveragePrice: ratio(float64(t.revenue), float64(t.count)),
		})
	}
	slices.SortStableFunc(out, func(a, b ItemDetail) int {
		return cmp.Compare(b.SalesCount, a.SalesCount)
	})
	return out
}

// monthlyItemGroups is itemGroups keyed by "YYYY-MM".
type monthlyItemGroups map[string]*itemGroups

func (m monthlyItemGroups) add(r core.TransactionRecord) {
	key := r.Date.MonthKey()
	if key == "" {
		return
	}
	g, ok := m[key]
	if !ok {
		g = newItemGroups()
		m[key] = g
	}
	g.add(r)
}

func (m monthlyItemGroups) list() []MonthlyItems {
	months := make([]string, 0, len(m))
	for k := range m {
		months = append(months, k)
	}
	slices.Sort(months)

	out := make([]MonthlyItems, 0, len(months))
	for _, month := range months {
		details := m[month].details()
		items := make([]MonthlyItem, len(details))
		for i, d := range details {
			items[i] = MonthlyItem{Name: d.Name, SalesCount: d.SalesCount, TotalRevenue: d.TotalRevenue}
		}
		out = append(out, MonthlyItems{Month: month, Items: items})
	}
	return out
}

// AnalyzeRevenue computes the revenue summary of a record set. An empty or
// nil input yields a zeroed analysis with empty lists.
func AnalyzeRevenue(records []core.TransactionRecord) RevenueAnalysis {
	a := RevenueAnalysis{TotalTransactions: len(records)}

	products := newItemGroups()
	plans := newItemGroups()
	singles := newItemGroups()
	monthlyPlans := monthlyItemGroups{}
	monthlySingles := monthlyItemGroups{}
	monthly := map[string]*MonthlyRevenue{}

	for _, r := range records {
		a.TotalRevenue += r.Amount
		a.TotalFees += r.Fee
		products.add(r)

		switch {
		case r.IsPlan():
			a.PlanPurchases++
			plans.add(r)
			monthlyPlans.add(r)
		case r.IsSingleItem():
			a.SinglePurchases++
			singles.add(r)
			monthlySingles.add(r)
		}

		if key := r.Date.MonthKey(); key != "" {
			m, ok := monthly[key]
			if !ok {
				m = &MonthlyRevenue{Month: key}
				monthly[key] = m
			}
			m.Revenue += r.Amount
			m.Fees += r.Fee
			m.TransactionCount++
		}
	}
	a.NetRevenue = a.TotalRevenue - a.TotalFees

	buyers := AggregateCustomers(records)
	a.UniqueCustomers = len(buyers)
	a.TopBuyers = topBuyers(buyers)

	repeaters := 0
	for _, b := range buyers {
		if b.TransactionCount > 1 {
			repeaters++
		}
	}

	a.TopProducts = topProducts(products)
	a.PlanDetails = plans.details()
	a.SingleItemDetails = singles.details()
	a.MonthlyPlanDetails = monthlyPlans.list()
	a.MonthlySingleItemDetails = monthlySingles.list()
	a.MonthlyRevenue = monthlySeries(monthly)

	a.AverageTransactionValue = ratio(float64(a.TotalRevenue), float64(a.TotalTransactions))
	a.AverageSpendingPerCustomer = ratio(float64(a.TotalRevenue), float64(a.UniqueCustomers))
	a.FeeRate = percent(float64(a.TotalFees), float64(a.TotalRevenue))
	a.RepeatRate = percent(float64(repeaters), float64(a.UniqueCustomers))
	return a
}

func topBuyers(buyers []CustomerAggregate) []BuyerRevenue {
	sorted := slices.Clone(buyers)
	slices.SortStableFunc(sorted, bySpentDesc)
	sorted = sorted[:min(len(sorted), LeaderboardSize)]

	out := make([]BuyerRevenue, 0, len(sorted))
	for _, b := range sorted {
		out = append(out, BuyerRevenue{
			BuyerID:          b.BuyerID,
			TotalSpent:       b.TotalSpent,
			TransactionCount: b.TransactionCount,
			AverageSpent:     ratio(float64(b.TotalSpent), float64(b.TransactionCount)),
		})
	}
	return out
}

func topProducts(g *itemGroups) []ProductRevenue {
	out := make([]ProductRevenue, 0, len(g.order))
	for _, t := range g.order {
		out = append(out, ProductRevenue{Name: t.name, Kind: t.kind, Revenue: t.revenue, Count: t.count})
	}
	slices.SortStableFunc(out, func(a, b ProductRevenue) int {
		return cmp.Compare(b.Revenue, a.Revenue)
	})
	return out[:min(len(out), LeaderboardSize)]
}

func monthlySeries(monthly map[string]*MonthlyRevenue) []MonthlyRevenue {
	out := make([]MonthlyRevenue, 0, len(monthly))
	for _, m := range monthly {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b MonthlyRevenue) int {
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}
