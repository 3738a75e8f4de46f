package core

import (
	"testing"
	"time"
)

func fixedParser(year int, month time.Month) DateParser {
	return DateParser{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(year, month, 15, 12, 0, 0, 0, time.UTC) },
	}
}

func TestDateParserISO(t *testing.T) {
	p := fixedParser(2024, time.June)
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-05", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-01-05T10:30:00", time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)},
		{"2024-01-05 10:30:15", time.Date(2024, 1, 5, 10, 30, 15, 0, time.UTC)},
		{"2024/01/05 08:00", time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)},
		{"2024-01-05T10:30:00+09:00", time.Date(2024, 1, 5, 1, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		d := p.Parse(tc.in)
		if !d.Valid {
			t.Fatalf("%q: expected valid date", tc.in)
		}
		if !d.Time.Equal(tc.want) {
			t.Fatalf("%q: got %v, want %v", tc.in, d.Time, tc.want)
		}
	}
}

func TestDateParserLocaleYearInference(t *testing.T) {
	// Evaluated in January: March belongs to the previous year.
	p := fixedParser(2025, time.January)
	d := p.Parse("3月10日 9:00:00")
	if !d.Valid {
		t.Fatalf("expected valid date")
	}
	want := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	if !d.Time.Equal(want) {
		t.Fatalf("got %v, want %v", d.Time, want)
	}

	// Same or earlier month stays in the current year.
	d = p.Parse("1月2日 23:59:59")
	if !d.Valid || d.Year() != 2025 {
		t.Fatalf("expected 2025, got %v (valid=%v)", d.Time, d.Valid)
	}
}

func TestDateParserLocaleWithoutSeconds(t *testing.T) {
	p := fixedParser(2024, time.December)
	d := p.Parse("12月24日 18:05")
	if !d.Valid || d.Hour() != 18 || d.Minute() != 5 || d.Second() != 0 {
		t.Fatalf("unexpected parse: %v valid=%v", d.Time, d.Valid)
	}
}

func TestDateParserUnparseable(t *testing.T) {
	p := fixedParser(2024, time.June)
	for _, in := range []string{"", "   ", "yesterday", "13月1日 0:00:00", "2月30日 10:00:00", "5月1日 25:00:00", "2024-13-01"} {
		if d := p.Parse(in); d.Valid {
			t.Fatalf("%q: expected unparseable, got %v", in, d.Time)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC))
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Valid || !back.Time.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v", back)
	}

	b, _ = Date{}.MarshalJSON()
	if string(b) != "null" {
		t.Fatalf("invalid date should encode as null, got %s", b)
	}
}

func TestDateJSONKeepsSubseconds(t *testing.T) {
	d := NewDate(time.Date(2024, 1, 5, 9, 0, 0, 123456789, time.UTC))
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `"2024-01-05T09:00:00.123456789Z"`; string(b) != want {
		t.Fatalf("MarshalJSON = %s, want %s", b, want)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Time.Equal(d.Time) {
		t.Fatalf("round trip lost precision: %v", back.Time)
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct{ y, m, want int }{
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 1, 31},
		{2024, 4, 30},
		{2024, 12, 31},
	}
	for _, tc := range cases {
		if got := DaysInMonth(tc.y, tc.m); got != tc.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", tc.y, tc.m, got, tc.want)
		}
	}
}
