package core

import "testing"

func TestParseYen(t *testing.T) {
	cases := []struct {
		in  string
		out int64
	}{
		{"1200", 1200},
		{"1,200", 1200},
		{"¥500", 500},
		{"￥3,000", 3000},
		{"980円", 980},
		{" 42 ", 42},
		{"12.9", 12},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"-300", 0},
		{"1.2.3", 0},
	}
	for _, tc := range cases {
		if got := ParseYen(tc.in); got != tc.out {
			t.Fatalf("ParseYen(%q) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestFormatYen(t *testing.T) {
	cases := map[int64]string{
		0:        "¥0",
		999:      "¥999",
		1000:     "¥1,000",
		1234567:  "¥1,234,567",
		-45000:   "-¥45,000",
	}
	for in, want := range cases {
		if got := FormatYen(in); got != want {
			t.Errorf("FormatYen(%d) = %q, want %q", in, got, want)
		}
	}
}
