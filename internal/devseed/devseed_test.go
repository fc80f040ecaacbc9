package devseed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuaai/book-store/internal/catalogapi"
)

func TestLoadCatalogSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	content := `{
		"books": [
			{"id": "1", "title": "Dune", "price": 12.5},
			{"title": "Emma", "author": "Austen"}
		],
		"cart": [{"id": "1", "title": "Dune", "price": 12.5}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	seed, err := LoadCatalogSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Books, 2)
	require.Len(t, seed.Cart, 1)
	assert.Equal(t, "1", seed.Books[0].ID)
	assert.Equal(t, "", seed.Books[1].ID)
	assert.Contains(t, seed.Books[1].Extra, "author")
}

func TestParseCatalogSeedErrors(t *testing.T) {
	cases := map[string]string{
		"not json":      `[`,
		"bad record":    `{"books":[{"id":"1","title":3}]}`,
		"missing title": `{"cart":[{"id":"1"}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalogSeed([]byte(content))
			assert.Error(t, err)
		})
	}
}

func TestParseCatalogSeedBadRecordIsMalformed(t *testing.T) {
	_, err := ParseCatalogSeed([]byte(`{"books":[{"id":"1","price":"cheap","title":"x"}]}`))
	assert.ErrorIs(t, err, catalogapi.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "books[0]")
}

func TestLoadCatalogSeedMissingFile(t *testing.T) {
	_, err := LoadCatalogSeed(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
