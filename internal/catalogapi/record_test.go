package catalogapi

import (
	stdjson "encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantID    string
		wantTitle string
		wantPrice string
		wantExtra []string
	}{
		{
			name:      "string id and numeric price",
			body:      `{"id":"1","title":"Dune","price":12.5}`,
			wantID:    "1",
			wantTitle: "Dune",
			wantPrice: "12.5",
		},
		{
			name:      "numeric id",
			body:      `{"id":42,"title":"Emma","price":7}`,
			wantID:    "42",
			wantTitle: "Emma",
			wantPrice: "7",
		},
		{
			name:      "quoted price",
			body:      `{"id":"3","title":"Ulysses","price":"19.99"}`,
			wantID:    "3",
			wantTitle: "Ulysses",
			wantPrice: "19.99",
		},
		{
			name:      "missing price",
			body:      `{"id":"4","title":"Beloved"}`,
			wantID:    "4",
			wantTitle: "Beloved",
		},
		{
			name:      "extra fields are kept",
			body:      `{"id":"5","title":"Solaris","author":"Lem","createdAt":1497710300}`,
			wantID:    "5",
			wantTitle: "Solaris",
			wantExtra: []string{"author", "createdAt"},
		},
		{
			name:      "input without id",
			body:      `{"title":"Draft"}`,
			wantTitle: "Draft",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := DecodeRecord([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, rec.ID)
			assert.Equal(t, tc.wantTitle, rec.Title)
			if tc.wantPrice == "" {
				assert.False(t, rec.Price.Valid)
			} else {
				require.True(t, rec.Price.Valid)
				assert.True(t, decimal.RequireFromString(tc.wantPrice).Equal(rec.Price.Decimal))
			}
			for _, key := range tc.wantExtra {
				assert.Contains(t, rec.Extra, key)
			}
			assert.Len(t, rec.Extra, len(tc.wantExtra))
		})
	}
}

func TestDecodeRecordRejectsMalformedDocuments(t *testing.T) {
	bodies := map[string]string{
		"empty":          ``,
		"null":           `null`,
		"array":          `[{"id":"1"}]`,
		"boolean id":     `{"id":true,"title":"x"}`,
		"numeric title":  `{"id":"1","title":5}`,
		"textual price":  `{"id":"1","title":"x","price":"cheap"}`,
		"object price":   `{"id":"1","title":"x","price":{}}`,
		"not json":       `<html>`,
		"truncated json": `{"id":"1"`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRecord([]byte(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord), "got %v", err)
		})
	}
}

func TestDecodeRecordsPreservesOrder(t *testing.T) {
	recs, err := DecodeRecords([]byte(`[{"id":"2","title":"B"},{"id":"1","title":"A"},{"id":"3","title":"C"}]`))
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"2", "1", "3"}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
}

func TestDecodeRecordsEmpty(t *testing.T) {
	for _, body := range []string{``, `null`, `[]`} {
		recs, err := DecodeRecords([]byte(body))
		require.NoError(t, err)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	}
}

func TestDecodeRecordsReportsElement(t *testing.T) {
	_, err := DecodeRecords([]byte(`[{"id":"1","title":"A"},{"id":"2","title":false}]`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "element 1")

	_, err = DecodeRecords([]byte(`{"id":"1"}`))
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestRecordMarshalJSON(t *testing.T) {
	rec := Record{
		ID:    "9",
		Title: "Dune",
		Price: decimal.NewNullDecimal(decimal.RequireFromString("12.50")),
		Extra: map[string]stdjson.RawMessage{
			"author": stdjson.RawMessage(`"Herbert"`),
			"id":     stdjson.RawMessage(`"shadowed"`),
		},
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"9","title":"Dune","price":12.5,"author":"Herbert"}`, string(data))

	draft, err := json.Marshal(Record{Title: "Draft"})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Draft"}`, string(draft))
}

func TestRecordRoundTripKeepsPassThroughFields(t *testing.T) {
	in := `{"id":"5","title":"Solaris","price":3.25,"author":"Lem","tags":["sf","classic"]}`
	rec, err := DecodeRecord([]byte(in))
	require.NoError(t, err)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestRequireID(t *testing.T) {
	assert.NoError(t, Record{ID: "1"}.RequireID())
	assert.ErrorIs(t, Record{}.RequireID(), ErrMalformedRecord)
}
