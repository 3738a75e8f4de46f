// Package analytics turns transaction records into revenue, customer and
// activity aggregates.
//
// Every function here is a pure full recompute over its input slice: no
// shared state, no I/O, no logging. Callers may run them concurrently for
// different record sets. All ratio fields default to 0 when their
// denominator is 0, and every list field is non-nil so that an empty input
// serializes as empty arrays.
package analytics

import "fanrevenue/internal/core"

// LeaderboardSize is the length of every top-N list.
const LeaderboardSize = 10

// Segment names.
const (
	SegmentHighValue   = "high_value"
	SegmentMediumValue = "medium_value"
	SegmentLowValue    = "low_value"
	SegmentNew         = "new"
)

type (
	// RevenueAnalysis is the cached per-bucket revenue summary.
	RevenueAnalysis struct {
		TotalRevenue      int64 `json:"totalRevenue"`
		TotalFees         int64 `json:"totalFees"`
		NetRevenue        int64 `json:"netRevenue"`
		TotalTransactions int   `json:"totalTransactions"`
		PlanPurchases     int   `json:"planPurchases"`
		SinglePurchases   int   `json:"singlePurchases"`

		TopBuyers   []BuyerRevenue   `json:"topBuyers"`
		TopProducts []ProductRevenue `json:"topProducts"`

		PlanDetails       []ItemDetail `json:"planDetails"`
		SingleItemDetails []ItemDetail `json:"singleItemDetails"`

		MonthlyPlanDetails       []MonthlyItems   `json:"monthlyPlanDetails"`
		MonthlySingleItemDetails []MonthlyItems   `json:"monthlySingleItemDetails"`
		MonthlyRevenue           []MonthlyRevenue `json:"monthlyRevenue"`

		AverageTransactionValue    float64 `json:"averageTransactionValue"`
		UniqueCustomers            int     `json:"uniqueCustomers"`
		AverageSpendingPerCustomer float64 `json:"averageSpendingPerCustomer"`
		FeeRate                    float64 `json:"feeRate"`
		RepeatRate                 float64 `json:"repeatRate"`
	}

	BuyerRevenue struct {
		BuyerID          string  `json:"buyerId"`
		TotalSpent       int64   `json:"totalSpent"`
		TransactionCount int     `json:"transactionCount"`
		AverageSpent     float64 `json:"averageSpent"`
	}

	ProductRevenue struct {
		Name    string    `json:"name"`
		Kind    core.Kind `json:"kind"`
		Revenue int64     `json:"revenue"`
		Count   int       `json:"count"`
	}

	ItemDetail struct {
		Name         string  `json:"name"`
		SalesCount   int     `json:"salesCount"`
		TotalRevenue int64   `json:"totalRevenue"`
		AveragePrice float64 `json:"averagePrice"`
	}

	MonthlyItem struct {
		Name         string `json:"name"`
		SalesCount   int    `json:"salesCount"`
		TotalRevenue int64  `json:"totalRevenue"`
	}

	// MonthlyItems groups item sales under a "YYYY-MM" key.
	MonthlyItems struct {
		Month string        `json:"month"`
		Items []MonthlyItem `json:"items"`
	}

	MonthlyRevenue struct {
		Month            string `json:"month"`
		Revenue          int64  `json:"revenue"`
		Fees             int64  `json:"fees"`
		TransactionCount int    `json:"transactionCount"`
	}
)

type (
	// CustomerAggregate is the per-buyer rollup shared by segmentation and
	// repeat detection. First and last purchase only consider dated records.
	CustomerAggregate struct {
		BuyerID          string    `json:"buyerId"`
		TotalSpent       int64     `json:"totalSpent"`
		TransactionCount int       `json:"transactionCount"`
		FirstPurchase    core.Date `json:"firstPurchaseDate"`
		LastPurchase     core.Date `json:"lastPurchaseDate"`
	}

	CustomerSummary struct {
		CustomerAggregate
		AverageTransactionValue float64 `json:"averageTransactionValue"`
		PurchaseFrequency       float64 `json:"purchaseFrequency"`
		Segment                 string  `json:"segment"`
	}

	SegmentSummary struct {
		Name         string  `json:"name"`
		Count        int     `json:"count"`
		TotalSpent   int64   `json:"totalSpent"`
		AverageSpent float64 `json:"averageSpent"`
	}

	MonthlyCustomerTrend struct {
		Month              string `json:"month"`
		NewCustomers       int    `json:"newCustomers"`
		ReturningCustomers int    `json:"returningCustomers"`
		TotalRevenue       int64  `json:"totalRevenue"`
	}

	LifetimeValue struct {
		CustomerAggregate
		DaysActive int `json:"daysActive"`
	}

	CustomerAnalysis struct {
		TotalCustomers          int     `json:"totalCustomers"`
		RepeatCustomers         int     `json:"repeatCustomers"`
		NewCustomers            int     `json:"newCustomers"`
		RepeatRate              float64 `json:"repeatRate"`
		AverageSpendPerCustomer float64 `json:"averageSpendPerCustomer"`

		HighValueThreshold   int64 `json:"highValueThreshold"`
		MediumValueThreshold int64 `json:"mediumValueThreshold"`

		TopSpenders     []CustomerSummary `json:"topSpenders"`
		RecentCustomers []CustomerSummary `json:"recentCustomers"`
		AllRepeaters    []CustomerSummary `json:"allRepeaters"`

		// Segments is always ordered high, medium, low, new.
		Segments      []SegmentSummary       `json:"segments"`
		MonthlyTrend  []MonthlyCustomerTrend `json:"monthlyTrend"`
		LifetimeValue []LifetimeValue        `json:"lifetimeValue"`
	}
)

type (
	// ActivityCell is one bucket of an activity matrix.
	ActivityCell struct {
		Revenue          int64 `json:"revenue"`
		TransactionCount int   `json:"transactionCount"`
	}

	DayActivity struct {
		Day int `json:"day"`
		ActivityCell
	}

	HourActivity struct {
		Hour int `json:"hour"`
		ActivityCell
	}

	// DailyActivity covers every day of one calendar month.
	DailyActivity struct {
		Year            int           `json:"year"`
		Month           int           `json:"month"`
		Days            []DayActivity `json:"days"`
		MaxRevenue      int64         `json:"maxRevenue"`
		MaxTransactions int           `json:"maxTransactions"`
	}

	// HourlyActivity has 24 entries, hour 0 first.
	HourlyActivity struct {
		Hours           []HourActivity `json:"hours"`
		MaxRevenue      int64          `json:"maxRevenue"`
		MaxTransactions int            `json:"maxTransactions"`
	}

	// WeekdayRow is one weekday (0=Sunday) with 24 hourly cells.
	WeekdayRow struct {
		Weekday         int            `json:"weekday"`
		Hours           []ActivityCell `json:"hours"`
		MaxRevenue      int64          `json:"maxRevenue"`
		MaxTransactions int            `json:"maxTransactions"`
	}

	WeekdayHourActivity struct {
		Weekdays        []WeekdayRow `json:"weekdays"`
		MaxRevenue      int64        `json:"maxRevenue"`
		MaxTransactions int          `json:"maxTransactions"`
	}

	// Calendar bundles the three activity matrices.
	Calendar struct {
		Daily       DailyActivity       `json:"daily"`
		Hourly      HourlyActivity      `json:"hourly"`
		WeekdayHour WeekdayHourActivity `json:"weekdayHour"`
	}
)

// ratio returns num/den, or 0 when den is 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// percent returns num/den*100, or 0 when den is 0.
func percent(num, den float64) float64 {
	return ratio(num, den) * 100
}
