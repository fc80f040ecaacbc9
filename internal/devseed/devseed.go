// Package devseed loads fixture files for the in-memory catalog used by the
// sandbox service and mock runtime mode.
package devseed

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/joshuaai/book-store/internal/catalogapi"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CatalogSeed is the on-disk fixture format:
//
//	{"books": [{"id": "1", "title": "Dune", "price": 12.5}], "cart": []}
//
// Records use the same wire shape as the REST API. Ids are optional; the
// mock assigns fresh ones when absent.
type CatalogSeed struct {
	Books []catalogapi.Record
	Cart  []catalogapi.Record
}

type seedFile struct {
	Books []jsoniter.RawMessage `json:"books"`
	Cart  []jsoniter.RawMessage `json:"cart"`
}

// LoadCatalogSeed reads and validates a seed file.
func LoadCatalogSeed(path string) (CatalogSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CatalogSeed{}, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return ParseCatalogSeed(data)
}

// ParseCatalogSeed decodes seed content already in memory.
func ParseCatalogSeed(data []byte) (CatalogSeed, error) {
	var raw seedFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return CatalogSeed{}, fmt.Errorf("devseed: decode seed: %w", err)
	}
	books, err := decodeAll("books", raw.Books)
	if err != nil {
		return CatalogSeed{}, err
	}
	cart, err := decodeAll("cart", raw.Cart)
	if err != nil {
		return CatalogSeed{}, err
	}
	return CatalogSeed{Books: books, Cart: cart}, nil
}

func decodeAll(section string, items []jsoniter.RawMessage) ([]catalogapi.Record, error) {
	out := make([]catalogapi.Record, 0, len(items))
	for i, item := range items {
		rec, err := catalogapi.DecodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("devseed: %s[%d]: %w", section, i, err)
		}
		if rec.Title == "" {
			return nil, fmt.Errorf("devseed: %s[%d]: title is required", section, i)
		}
		out = append(out, rec)
	}
	return out, nil
}
