package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string, number or null.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// RawRecord is a row as delivered by the upload collaborator, before any
// coercion.
type RawRecord struct {
	Date    FlexString `json:"date"`
	Amount  FlexString `json:"amount"`
	Fee     FlexString `json:"fee"`
	Kind    FlexString `json:"kind"`
	Target  FlexString `json:"target"`
	BuyerID FlexString `json:"buyerId"`
}

// columnAliases maps lower-cased header names to RawRecord fields.
var columnAliases = map[string]string{
	"date":     "date",
	"日付":       "date",
	"購入日時":     "date",
	"決済日時":     "date",
	"amount":   "amount",
	"金額":       "amount",
	"売上":       "amount",
	"fee":      "fee",
	"手数料":      "fee",
	"kind":     "kind",
	"type":     "kind",
	"種類":       "kind",
	"購入種別":     "kind",
	"target":   "target",
	"product":  "target",
	"対象":       "target",
	"商品名":      "target",
	"buyer":    "buyer",
	"buyerid":  "buyer",
	"buyer_id": "buyer",
	"購入者":      "buyer",
	"ユーザー":     "buyer",
}

// RawRecordFromMap builds a RawRecord from a header-keyed row. Unknown
// columns are ignored.
func RawRecordFromMap(row map[string]string) RawRecord {
	var r RawRecord
	for k, v := range row {
		switch columnAliases[strings.ToLower(strings.TrimSpace(k))] {
		case "date":
			r.Date = FlexString(v)
		case "amount":
			r.Amount = FlexString(v)
		case "fee":
			r.Fee = FlexString(v)
		case "kind":
			r.Kind = FlexString(v)
		case "target":
			r.Target = FlexString(v)
		case "buyer":
			r.BuyerID = FlexString(v)
		}
	}
	return r
}

// DecodeRawRecords decodes a JSON array of rows. Anything other than an
// array at the top level is a structural defect.
func DecodeRawRecords(data []byte) ([]RawRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, ErrNotAList
	}
	var raws []RawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if raws == nil {
		raws = []RawRecord{}
	}
	return raws, nil
}

// DecodeHeaderRows decodes a JSON array of objects keyed by spreadsheet
// headers, resolving header aliases with RawRecordFromMap.
func DecodeHeaderRows(data []byte) ([]RawRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, ErrNotAList
	}
	var rows []map[string]FlexString
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	out := make([]RawRecord, len(rows))
	for i, row := range rows {
		m := make(map[string]string, len(row))
		for k, v := range row {
			m[k] = string(v)
		}
		out[i] = RawRecordFromMap(m)
	}
	return out, nil
}

// Normalizer applies the tolerated-defect defaults to raw rows.
type Normalizer struct {
	Dates DateParser
}

// NewNormalizer returns a normalizer using the given date parser.
func NewNormalizer(dates DateParser) Normalizer {
	return Normalizer{Dates: dates}
}

// Normalize converts one raw row. It never fails: missing names become
// UnknownName, bad amounts become 0 and bad dates become invalid Dates.
func (n Normalizer) Normalize(raw RawRecord) TransactionRecord {
	return TransactionRecord{
		Date:    n.Dates.Parse(string(raw.Date)),
		Amount:  ParseYen(string(raw.Amount)),
		Fee:     ParseYen(string(raw.Fee)),
		Kind:    ParseKind(string(raw.Kind)),
		Target:  nameOrUnknown(string(raw.Target)),
		BuyerID: nameOrUnknown(string(raw.BuyerID)),
	}
}

// NormalizeAll converts rows preserving their order.
func (n Normalizer) NormalizeAll(raws []RawRecord) []TransactionRecord {
	out := make([]TransactionRecord, len(raws))
	for i, raw := range raws {
		out[i] = n.Normalize(raw)
	}
	return out
}

func nameOrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "undefined" {
		return UnknownName
	}
	return s
}

// FormatYen renders whole yen with digit grouping, e.g. "¥12,345".
func FormatYen(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-¥" + b.String()
	}
	return "¥" + b.String()
}
