package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"maps"

	"github.com/shopspring/decimal"

	"github.com/joshuaai/book-store/internal/catalogapi"
)

// Book is a catalog entry as returned by the remote service.
type Book struct {
	ID    string
	Title string
	// Price is invalid when the service returned no price.
	Price decimal.NullDecimal
	// Extra holds fields the service returned beyond id, title and price.
	Extra map[string]json.RawMessage
}

// CartItem mirrors Book; the cart collection stores the same shape.
type CartItem struct {
	ID    string
	Title string
	Price decimal.NullDecimal
	Extra map[string]json.RawMessage
}

// NewBook is the input for CreateBook. The service assigns the id.
type NewBook struct {
	Title string
	Price decimal.NullDecimal
}

// Repository is an in-process implementation of the catalog collections.
// The sandbox service serves any Repository over HTTP.
type Repository interface {
	ListBooks(ctx context.Context) ([]Book, error)
	CreateBook(ctx context.Context, in NewBook) (Book, error)
	GetBook(ctx context.Context, id string) (Book, error)
	AddCartItem(ctx context.Context, item CartItem) (CartItem, error)
	ListCart(ctx context.Context) ([]CartItem, error)
}

var (
	// ErrRemoteCall wraps every failure of a call to the catalog service:
	// transport errors, non-2xx statuses and malformed responses.
	ErrRemoteCall = errors.New("catalog: remote call failed")
	// ErrInvalidInput is returned before any request is issued when the
	// caller's input is unusable.
	ErrInvalidInput = errors.New("catalog: invalid input")
	// ErrNotFound is returned by repositories for unknown ids.
	ErrNotFound = errors.New("catalog: not found")
)

// BookFromRecord converts a decoded wire record.
func BookFromRecord(r catalogapi.Record) Book {
	return Book{ID: r.ID, Title: r.Title, Price: r.Price, Extra: maps.Clone(r.Extra)}
}

// Record converts the book to its wire shape.
func (b Book) Record() catalogapi.Record {
	return catalogapi.Record{ID: b.ID, Title: b.Title, Price: b.Price, Extra: maps.Clone(b.Extra)}
}

// CartItemFromRecord converts a decoded wire record.
func CartItemFromRecord(r catalogapi.Record) CartItem {
	return CartItem{ID: r.ID, Title: r.Title, Price: r.Price, Extra: maps.Clone(r.Extra)}
}

// Record converts the cart item to its wire shape.
func (c CartItem) Record() catalogapi.Record {
	return catalogapi.Record{ID: c.ID, Title: c.Title, Price: c.Price, Extra: maps.Clone(c.Extra)}
}

// CartItemFromBook builds the add-to-cart payload for a book.
func CartItemFromBook(b Book) CartItem {
	return CartItem{ID: b.ID, Title: b.Title, Price: b.Price, Extra: maps.Clone(b.Extra)}
}

// Record converts the creation input to its wire shape.
func (n NewBook) Record() catalogapi.Record {
	return catalogapi.Record{Title: n.Title, Price: n.Price}
}
