package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	// KindPlanPurchase is a recurring membership plan payment.
	KindPlanPurchase Kind = "プラン購入"
	// KindSingleItemPurchase is a one-off item purchase.
	KindSingleItemPurchase Kind = "単品購入"

	// UnknownName replaces a missing buyer or product name. All buyer-less rows
	// therefore collapse into one synthetic customer.
	UnknownName = "不明"
)

type (
	// Kind is the transaction type column. Values other than the two known
	// kinds are kept verbatim.
	Kind string

	// Date is a timestamp that may be absent. An invalid Date marks a source
	// value that could not be parsed.
	Date struct {
		time.Time
		Valid bool
	}

	// TransactionRecord is one normalized transaction row. Amounts are JPY.
	TransactionRecord struct {
		Date    Date   `json:"date"`
		Amount  int64  `json:"amount"`
		Fee     int64  `json:"fee"`
		Kind    Kind   `json:"kind"`
		Target  string `json:"target"`
		BuyerID string `json:"buyerId"`
	}
)

var (
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidYear  = errors.New("invalid year")
	ErrNotAList     = errors.New("records must be a list")
)

// NewDate returns a valid Date.
func NewDate(t time.Time) Date {
	return Date{Time: t, Valid: true}
}

// MonthKey returns "YYYY-MM", or "" when the date is invalid.
func (d Date) MonthKey() string {
	if !d.Valid {
		return ""
	}
	return d.Format("2006-01")
}

// InMonth reports whether the date falls in the given calendar month.
func (d Date) InMonth(year, month int) bool {
	return d.Valid && d.Year() == year && int(d.Month()) == month
}

// Before orders invalid dates first.
func (d Date) Before(o Date) bool {
	switch {
	case !d.Valid:
		return o.Valid
	case !o.Valid:
		return false
	}
	return d.Time.Before(o.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339Nano))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*d = NewDate(t)
	return nil
}

// IsPlan reports whether the record is a plan purchase.
func (r TransactionRecord) IsPlan() bool {
	return r.Kind == KindPlanPurchase
}

// IsSingleItem reports whether the record is a single item purchase.
func (r TransactionRecord) IsSingleItem() bool {
	return r.Kind == KindSingleItemPurchase
}

// ParseKind maps the known spellings of the two transaction kinds to their
// canonical value. Anything else passes through trimmed.
func ParseKind(s string) Kind {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "プラン購入", "プラン", "plan", "planpurchase", "plan_purchase", "subscription":
		return KindPlanPurchase
	case "単品購入", "単品", "single", "singleitempurchase", "single_item_purchase", "item":
		return KindSingleItemPurchase
	}
	return Kind(s)
}

// ValidateYearMonth checks a bucket period.
func ValidateYearMonth(year, month int) error {
	if year < 1 || year > 9999 {
		return ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// DaysInMonth uses day 0 of the following month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
