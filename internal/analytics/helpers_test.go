package analytics

import (
	"time"

	"fanrevenue/internal/core"
)

func at(year int, month time.Month, day, hour int) core.Date {
	return core.NewDate(time.Date(year, month, day, hour, 0, 0, 0, time.UTC))
}

func rec(buyer string, amount int64, date core.Date) core.TransactionRecord {
	return core.TransactionRecord{
		Date:    date,
		Amount:  amount,
		Kind:    core.KindSingleItemPurchase,
		Target:  "item",
		BuyerID: buyer,
	}
}

// januaryExample is the three-record set used across the analyzer tests.
func januaryExample() []core.TransactionRecord {
	return []core.TransactionRecord{
		rec("A", 1000, at(2024, time.January, 5, 0)),
		rec("A", 2000, at(2024, time.January, 20, 0)),
		rec("B", 3000, at(2024, time.January, 10, 0)),
	}
}
