package catalog

import (
	"context"
	"fmt"

	"github.com/joshuaai/book-store/internal/catalogapi"
	"github.com/joshuaai/book-store/internal/httpx"
)

// NewWithRepository returns a Client served by an in-process repository.
// Payloads still travel as JSON so that the same decoding and validation
// apply as over HTTP.
func NewWithRepository(repo Repository) *Client {
	return NewWithBackend(&repositoryBackend{repo: repo})
}

type repositoryBackend struct {
	repo Repository
}

func (b *repositoryBackend) ListBooks(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	books, err := b.repo.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]catalogapi.Record, 0, len(books))
	for _, bk := range books {
		recs = append(recs, bk.Record())
	}
	return httpx.MarshalJSON(recs)
}

func (b *repositoryBackend) CreateBook(ctx context.Context, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := catalogapi.DecodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	book, err := b.repo.CreateBook(ctx, NewBook{Title: rec.Title, Price: rec.Price})
	if err != nil {
		return nil, err
	}
	return httpx.MarshalJSON(book.Record())
}

func (b *repositoryBackend) GetBook(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	book, err := b.repo.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	return httpx.MarshalJSON(book.Record())
}

func (b *repositoryBackend) AddToCart(ctx context.Context, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := catalogapi.DecodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	item, err := b.repo.AddCartItem(ctx, CartItemFromRecord(rec))
	if err != nil {
		return nil, err
	}
	return httpx.MarshalJSON(item.Record())
}

func (b *repositoryBackend) ListCart(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, err := b.repo.ListCart(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]catalogapi.Record, 0, len(items))
	for _, it := range items {
		recs = append(recs, it.Record())
	}
	return httpx.MarshalJSON(recs)
}
