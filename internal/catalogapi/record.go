// Package catalogapi holds the wire schema shared by the catalog client and the
// sandbox service. Records are parsed and validated here so that nothing past
// the HTTP boundary handles raw JSON.
package catalogapi

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	fieldID    = "id"
	fieldTitle = "title"
	fieldPrice = "price"
)

// ErrMalformedRecord is returned when a document does not match the record schema.
var ErrMalformedRecord = errors.New("catalogapi: malformed record")

// Record is the wire shape shared by books and cart items. Fields other than
// id, title and price are kept verbatim in Extra.
type Record struct {
	ID    string
	Title string
	Price decimal.NullDecimal
	Extra map[string]stdjson.RawMessage
}

// RequireID reports an error when the record lacks a server-assigned id.
func (r Record) RequireID() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	return nil
}

// DecodeRecord parses a single JSON object.
func DecodeRecord(data []byte) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Record{}, fmt.Errorf("%w: empty document", ErrMalformedRecord)
	}

	var fields map[string]stdjson.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Record{}, fmt.Errorf("%w: expected object: %v", ErrMalformedRecord, err)
	}
	return fromFields(fields)
}

// DecodeRecords parses a JSON array of objects. A null or empty body yields an
// empty, non-nil slice.
func DecodeRecords(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Record{}, nil
	}

	var raw []stdjson.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: expected array: %v", ErrMalformedRecord, err)
	}

	records := make([]Record, 0, len(raw))
	for i, item := range raw {
		rec, err := DecodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// MarshalJSON emits id (when set), title, price (when valid, as a JSON number)
// and then the pass-through fields in key order.
func (r Record) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	first := true
	writeField := func(key string, value []byte) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
		return nil
	}

	if r.ID != "" {
		v, err := json.Marshal(r.ID)
		if err != nil {
			return nil, err
		}
		if err := writeField(fieldID, v); err != nil {
			return nil, err
		}
	}
	v, err := json.Marshal(r.Title)
	if err != nil {
		return nil, err
	}
	if err := writeField(fieldTitle, v); err != nil {
		return nil, err
	}
	if r.Price.Valid {
		if err := writeField(fieldPrice, []byte(r.Price.Decimal.String())); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		if k == fieldID || k == fieldTitle || k == fieldPrice {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw := bytes.TrimSpace(r.Extra[k])
		if len(raw) == 0 {
			raw = []byte("null")
		}
		if err := writeField(k, raw); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func fromFields(fields map[string]stdjson.RawMessage) (Record, error) {
	var rec Record
	for key, raw := range fields {
		switch key {
		case fieldID:
			id, err := decodeID(raw)
			if err != nil {
				return Record{}, err
			}
			rec.ID = id
		case fieldTitle:
			title, err := decodeTitle(raw)
			if err != nil {
				return Record{}, err
			}
			rec.Title = title
		case fieldPrice:
			price, err := decodePrice(raw)
			if err != nil {
				return Record{}, err
			}
			rec.Price = price
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]stdjson.RawMessage)
			}
			rec.Extra[key] = append(stdjson.RawMessage(nil), raw...)
		}
	}
	return rec, nil
}

func isNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeID accepts JSON strings and numbers; numbers keep their literal text.
func decodeID(raw []byte) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n stdjson.Number
	if err := json.Unmarshal(raw, &n); err == nil && n.String() != "" {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: id must be a string or number, got %s", ErrMalformedRecord, string(raw))
}

func decodeTitle(raw []byte) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: title must be a string, got %s", ErrMalformedRecord, string(raw))
	}
	return s, nil
}

// decodePrice accepts JSON numbers and numeric strings.
func decodePrice(raw []byte) (decimal.NullDecimal, error) {
	if isNull(raw) {
		return decimal.NullDecimal{}, nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(bytes.TrimSpace(raw)); err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: price must be numeric, got %s", ErrMalformedRecord, string(raw))
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}
