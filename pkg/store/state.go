package store

import (
	"slices"

	"github.com/joshuaai/book-store/pkg/catalog"
)

// State is an immutable snapshot. Reduce never modifies the slices of a State
// it receives, so snapshots handed to readers stay valid.
type State struct {
	Books       []catalog.Book
	Cart        []catalog.CartItem
	CurrentBook *catalog.Book
	// Version counts applied events.
	Version uint64
}

// BookByID prefers the current book, which holds the latest fetch of a single
// book, over the copy in the books slice.
func (s State) BookByID(id string) (catalog.Book, bool) {
	if s.CurrentBook != nil && s.CurrentBook.ID == id {
		return *s.CurrentBook, true
	}
	for _, b := range s.Books {
		if b.ID == id {
			return b, true
		}
	}
	return catalog.Book{}, false
}

// Reduce applies ev to s and returns the next state. Unknown events leave the
// slices untouched.
func Reduce(s State, ev Event) State {
	next := s
	next.Version++

	switch e := ev.(type) {
	case BooksListed:
		next.Books = slices.Clone(e.Books)
		if next.Books == nil {
			next.Books = []catalog.Book{}
		}
	case BookCreated:
		next.Books = upsert(s.Books, e.Book, func(b catalog.Book) string { return b.ID })
	case BookFetched:
		b := e.Book
		next.CurrentBook = &b
	case CartItemAdded:
		next.Cart = upsert(s.Cart, e.Item, func(it catalog.CartItem) string { return it.ID })
	case CartListed:
		next.Cart = slices.Clone(e.Items)
		if next.Cart == nil {
			next.Cart = []catalog.CartItem{}
		}
	}
	return next
}

// upsert returns a copy of items with v appended, or replacing the element
// that has the same id.
func upsert[T any](items []T, v T, id func(T) string) []T {
	out := slices.Clone(items)
	key := id(v)
	for i := range out {
		if id(out[i]) == key {
			out[i] = v
			return out
		}
	}
	return append(out, v)
}
