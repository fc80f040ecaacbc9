package store

import "github.com/joshuaai/book-store/pkg/catalog"

// Kind names an event in the store vocabulary.
type Kind string

const (
	KindBooksListed   Kind = "BOOKS_LISTED"
	KindBookCreated   Kind = "BOOK_CREATED"
	KindBookFetched   Kind = "BOOK_FETCHED"
	KindCartItemAdded Kind = "CART_ITEM_ADDED"
	KindCartListed    Kind = "CART_LISTED"
)

// Event is applied to the store by Dispatch.
type Event interface {
	Kind() Kind
}

// BooksListed replaces the books slice.
type BooksListed struct {
	Books []catalog.Book
}

// BookCreated appends one book.
type BookCreated struct {
	Book catalog.Book
}

// BookFetched sets the current book.
type BookFetched struct {
	Book catalog.Book
}

// CartItemAdded appends one cart item.
type CartItemAdded struct {
	Item catalog.CartItem
}

// CartListed replaces the cart slice.
type CartListed struct {
	Items []catalog.CartItem
}

func (BooksListed) Kind() Kind   { return KindBooksListed }
func (BookCreated) Kind() Kind   { return KindBookCreated }
func (BookFetched) Kind() Kind   { return KindBookFetched }
func (CartItemAdded) Kind() Kind { return KindCartItemAdded }
func (CartListed) Kind() Kind    { return KindCartListed }
