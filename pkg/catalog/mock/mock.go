// Package mock provides an in-memory catalog with the same collection
// semantics as the hosted REST mock: books and cart items live in insertion
// order and every insert gets a fresh id.
package mock

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"

	"github.com/joshuaai/book-store/internal/devseed"
	"github.com/joshuaai/book-store/pkg/catalog"
)

// IDGenerator returns the next id for the named collection ("books" or "cart").
type IDGenerator func(collection string) string

// Mock implements catalog.Repository.
type Mock struct {
	mu     sync.RWMutex
	books  []catalog.Book
	cart   []catalog.CartItem
	seq    map[string]int
	nextID IDGenerator
}

// Option configures the mock instance.
type Option func(*Mock)

// WithIDGenerator overrides the sequential id assignment.
func WithIDGenerator(fn IDGenerator) Option {
	return func(m *Mock) {
		if fn != nil {
			m.nextID = fn
		}
	}
}

// New creates an empty mock catalog.
func New(opts ...Option) *Mock {
	m := &Mock{seq: make(map[string]int)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ catalog.Repository = (*Mock)(nil)

const (
	collectionBooks = "books"
	collectionCart  = "cart"
)

// Seed appends fixture records. Records without an id get one assigned;
// sequential ids continue past the highest numeric id seeded.
func (m *Mock) Seed(seed devseed.CatalogSeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range seed.Books {
		if strings.TrimSpace(rec.Title) == "" {
			return fmt.Errorf("mock catalog: seed book missing title")
		}
		b := catalog.BookFromRecord(rec)
		b.ID = m.claimID(collectionBooks, b.ID)
		m.books = append(m.books, b)
	}
	for _, rec := range seed.Cart {
		if strings.TrimSpace(rec.Title) == "" {
			return fmt.Errorf("mock catalog: seed cart item missing title")
		}
		it := catalog.CartItemFromRecord(rec)
		it.ID = m.claimID(collectionCart, it.ID)
		m.cart = append(m.cart, it)
	}
	return nil
}

// Reset drops every record and restarts id sequences.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books = nil
	m.cart = nil
	m.seq = make(map[string]int)
}

// ListBooks returns copies of all books in insertion order.
func (m *Mock) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Book, 0, len(m.books))
	for _, b := range m.books {
		out = append(out, cloneBook(b))
	}
	return out, nil
}

// CreateBook stores a new book under a fresh id.
func (m *Mock) CreateBook(ctx context.Context, in catalog.NewBook) (catalog.Book, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Book{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return catalog.Book{}, fmt.Errorf("%w: title is required", catalog.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b := catalog.Book{ID: m.claimID(collectionBooks, ""), Title: in.Title, Price: in.Price}
	m.books = append(m.books, b)
	return cloneBook(b), nil
}

// GetBook returns catalog.ErrNotFound for unknown ids.
func (m *Mock) GetBook(ctx context.Context, id string) (catalog.Book, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Book{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.books {
		if b.ID == id {
			return cloneBook(b), nil
		}
	}
	return catalog.Book{}, fmt.Errorf("%w: book %q", catalog.ErrNotFound, id)
}

// AddCartItem stores a copy of item. The cart is its own collection, so the
// stored item always gets a cart id regardless of the id it arrived with.
func (m *Mock) AddCartItem(ctx context.Context, item catalog.CartItem) (catalog.CartItem, error) {
	if err := ctx.Err(); err != nil {
		return catalog.CartItem{}, err
	}
	if strings.TrimSpace(item.Title) == "" {
		return catalog.CartItem{}, fmt.Errorf("%w: title is required", catalog.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := cloneItem(item)
	stored.ID = m.claimID(collectionCart, "")
	m.cart = append(m.cart, stored)
	return cloneItem(stored), nil
}

// ListCart returns copies of all cart items in insertion order.
func (m *Mock) ListCart(ctx context.Context) ([]catalog.CartItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.CartItem, 0, len(m.cart))
	for _, it := range m.cart {
		out = append(out, cloneItem(it))
	}
	return out, nil
}

// claimID returns want when set, otherwise the next generated id. Caller
// holds m.mu.
func (m *Mock) claimID(collection, want string) string {
	if want != "" {
		if n, err := strconv.Atoi(want); err == nil && n > m.seq[collection] {
			m.seq[collection] = n
		}
		return want
	}
	if m.nextID != nil {
		return m.nextID(collection)
	}
	m.seq[collection]++
	return strconv.Itoa(m.seq[collection])
}

func cloneBook(b catalog.Book) catalog.Book {
	b.Extra = maps.Clone(b.Extra)
	return b
}

func cloneItem(it catalog.CartItem) catalog.CartItem {
	it.Extra = maps.Clone(it.Extra)
	return it
}
