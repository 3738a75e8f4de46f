package core

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeDefaults(t *testing.T) {
	n := NewNormalizer(fixedParser(2024, time.June))
	rec := n.Normalize(RawRecord{Amount: "abc", Kind: " plan "})
	if rec.Amount != 0 || rec.Fee != 0 {
		t.Fatalf("expected zero amounts, got %d/%d", rec.Amount, rec.Fee)
	}
	if rec.Target != UnknownName || rec.BuyerID != UnknownName {
		t.Fatalf("expected unknown sentinels, got %q/%q", rec.Target, rec.BuyerID)
	}
	if rec.Date.Valid {
		t.Fatalf("expected invalid date")
	}
	if rec.Kind != KindPlanPurchase {
		t.Fatalf("expected plan kind, got %q", rec.Kind)
	}
}

func TestNormalizeKeepsUnknownKind(t *testing.T) {
	n := NewNormalizer(fixedParser(2024, time.June))
	rec := n.Normalize(RawRecord{Kind: "投げ銭", Amount: "300", BuyerID: "u1", Target: "tip"})
	if rec.Kind != Kind("投げ銭") {
		t.Fatalf("expected pass-through kind, got %q", rec.Kind)
	}
	if rec.IsPlan() || rec.IsSingleItem() {
		t.Fatalf("unknown kind must not match either kind")
	}
}

func TestNormalizeAllPreservesOrder(t *testing.T) {
	n := NewNormalizer(fixedParser(2024, time.June))
	out := n.NormalizeAll([]RawRecord{{BuyerID: "a"}, {BuyerID: "b"}, {BuyerID: "c"}})
	if len(out) != 3 || out[0].BuyerID != "a" || out[2].BuyerID != "c" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestDecodeRawRecords(t *testing.T) {
	raws, err := DecodeRawRecords([]byte(`[{"date":"2024-01-05","amount":1000,"fee":"100","buyerId":"A"},{"amount":null}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raws) != 2 || raws[0].Amount != "1000" || raws[0].Fee != "100" || raws[1].Amount != "" {
		t.Fatalf("unexpected raws: %+v", raws)
	}

	for _, in := range []string{`{"amount":1}`, `"x"`, ``, `42`} {
		if _, err := DecodeRawRecords([]byte(in)); !errors.Is(err, ErrNotAList) {
			t.Fatalf("%q: expected ErrNotAList, got %v", in, err)
		}
	}

	raws, err = DecodeRawRecords([]byte(`[]`))
	if err != nil || raws == nil || len(raws) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v (%v)", raws, err)
	}
}

func TestRawRecordFromMap(t *testing.T) {
	r := RawRecordFromMap(map[string]string{
		"日付":   "2024-01-05",
		"金額":   "1,000",
		"手数料":  "100",
		"種類":   "単品購入",
		"商品名":  "Photo set",
		"購入者":  "fan-1",
		"memo": "ignored",
	})
	if r.Date != "2024-01-05" || r.Amount != "1,000" || r.Fee != "100" || r.Kind != "単品購入" || r.Target != "Photo set" || r.BuyerID != "fan-1" {
		t.Fatalf("unexpected mapping: %+v", r)
	}
}

func TestDecodeHeaderRows(t *testing.T) {
	raws, err := DecodeHeaderRows([]byte(`[{"日付":"2024-01-05","金額":1200,"購入者":"fan-1"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raws) != 1 || raws[0].Amount != "1200" || raws[0].BuyerID != "fan-1" || raws[0].Date != "2024-01-05" {
		t.Fatalf("unexpected rows: %+v", raws)
	}
	if _, err := DecodeHeaderRows([]byte(`{"日付":"2024-01-05"}`)); !errors.Is(err, ErrNotAList) {
		t.Fatalf("expected ErrNotAList, got %v", err)
	}
}

func TestValidateYearMonth(t *testing.T) {
	if err := ValidateYearMonth(2024, 1); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidateYearMonth(2024, 13); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if err := ValidateYearMonth(0, 1); !errors.Is(err, ErrInvalidYear) {
		t.Fatalf("expected ErrInvalidYear, got %v", err)
	}
}
