// Package core provides the transaction domain types and the record
// normalizer.
//
// This file contains the coercion of free-form amount columns into whole yen.
package core

import (
	"math"
	"strconv"
	"strings"
)

// yenReplacer strips currency symbols, unit suffixes and digit grouping.
var yenReplacer = strings.NewReplacer(
	"¥", "",
	"￥", "",
	"円", "",
	",", "",
	"，", "",
	" ", "",
	"　", "",
)

// ParseYen converts an amount column into non-negative whole yen.
//
// Missing, non-numeric and negative values coerce to 0; fractional values
// are truncated. Coercion never fails because a bad amount is a tolerated
// data defect, not an error.
//
// Examples:
//
//	ParseYen("1,200")  -> 1200
//	ParseYen("¥500")   -> 500
//	ParseYen("980円")  -> 980
//	ParseYen("12.9")   -> 12
//	ParseYen("abc")    -> 0
//	ParseYen("-300")   -> 0
func ParseYen(s string) int64 {
	s = yenReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0
		}
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}
