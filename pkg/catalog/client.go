package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/joshuaai/book-store/internal/catalogapi"
	"github.com/joshuaai/book-store/internal/httpx"
)

const (
	pathBooks = "book"
	pathCart  = "cart"
)

// Client provides access to the remote catalog REST API.
type Client struct {
	backend Backend
}

// New constructs a Client bound to the provided base URL, e.g.
// "http://59453bfccf46400011a81298.mockapi.io/api".
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return &Client{backend: &httpBackend{client: httpClient}}
}

// NewWithBackend allows callers to supply a custom backend.
func NewWithBackend(b Backend) *Client {
	return &Client{backend: b}
}

// Backend performs the raw exchanges with the catalog service. Request and
// response bodies are JSON documents; decoding happens in the Client.
type Backend interface {
	ListBooks(ctx context.Context) ([]byte, error)
	CreateBook(ctx context.Context, body []byte) ([]byte, error)
	GetBook(ctx context.Context, id string) ([]byte, error)
	AddToCart(ctx context.Context, body []byte) ([]byte, error)
	ListCart(ctx context.Context) ([]byte, error)
}

// ListBooks fetches the whole books collection in service order.
func (c *Client) ListBooks(ctx context.Context) ([]Book, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	data, err := c.backend.ListBooks(ctx)
	if err != nil {
		return nil, remoteErr("list books", err)
	}
	recs, err := decodeRecords(data)
	if err != nil {
		return nil, remoteErr("decode books", err)
	}
	books := make([]Book, 0, len(recs))
	for _, r := range recs {
		books = append(books, BookFromRecord(r))
	}
	return books, nil
}

// CreateBook posts a new book and returns the stored copy with its assigned id.
func (c *Client) CreateBook(ctx context.Context, in NewBook) (Book, error) {
	if strings.TrimSpace(in.Title) == "" {
		return Book{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := c.check(); err != nil {
		return Book{}, err
	}
	body, err := httpx.MarshalJSON(in.Record())
	if err != nil {
		return Book{}, fmt.Errorf("catalog: encode book: %w", err)
	}
	data, err := c.backend.CreateBook(ctx, body)
	if err != nil {
		return Book{}, remoteErr("create book", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return Book{}, remoteErr("decode created book", err)
	}
	return BookFromRecord(rec), nil
}

// GetBook fetches a single book. A 404 is reported like any other failure;
// use IsNotFound to tell it apart.
func (c *Client) GetBook(ctx context.Context, id string) (Book, error) {
	if strings.TrimSpace(id) == "" {
		return Book{}, fmt.Errorf("%w: book id is required", ErrInvalidInput)
	}
	if err := c.check(); err != nil {
		return Book{}, err
	}
	data, err := c.backend.GetBook(ctx, id)
	if err != nil {
		return Book{}, remoteErr("get book "+id, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return Book{}, remoteErr("decode book "+id, err)
	}
	return BookFromRecord(rec), nil
}

// AddToCart posts an item to the cart collection and returns the stored copy.
func (c *Client) AddToCart(ctx context.Context, item CartItem) (CartItem, error) {
	if strings.TrimSpace(item.Title) == "" {
		return CartItem{}, fmt.Errorf("%w: cart item title is required", ErrInvalidInput)
	}
	if err := c.check(); err != nil {
		return CartItem{}, err
	}
	body, err := httpx.MarshalJSON(item.Record())
	if err != nil {
		return CartItem{}, fmt.Errorf("catalog: encode cart item: %w", err)
	}
	data, err := c.backend.AddToCart(ctx, body)
	if err != nil {
		return CartItem{}, remoteErr("add to cart", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return CartItem{}, remoteErr("decode cart item", err)
	}
	return CartItemFromRecord(rec), nil
}

// ListCart fetches the whole cart collection in service order.
func (c *Client) ListCart(ctx context.Context) ([]CartItem, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	data, err := c.backend.ListCart(ctx)
	if err != nil {
		return nil, remoteErr("list cart", err)
	}
	recs, err := decodeRecords(data)
	if err != nil {
		return nil, remoteErr("decode cart", err)
	}
	items := make([]CartItem, 0, len(recs))
	for _, r := range recs {
		items = append(items, CartItemFromRecord(r))
	}
	return items, nil
}

// IsNotFound reports whether err stems from a 404 or an unknown id.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var httpErr *httpx.HTTPError
	return errors.As(err, &httpErr) && httpErr.NotFound()
}

func (c *Client) check() error {
	if c == nil || c.backend == nil {
		return errors.New("catalog: client is nil")
	}
	return nil
}

func remoteErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRemoteCall, op, err)
}

func decodeRecord(data []byte) (catalogapi.Record, error) {
	rec, err := catalogapi.DecodeRecord(data)
	if err != nil {
		return catalogapi.Record{}, err
	}
	if err := rec.RequireID(); err != nil {
		return catalogapi.Record{}, err
	}
	return rec, nil
}

func decodeRecords(data []byte) ([]catalogapi.Record, error) {
	recs, err := catalogapi.DecodeRecords(data)
	if err != nil {
		return nil, err
	}
	for i, r := range recs {
		if err := r.RequireID(); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return recs, nil
}

type httpBackend struct {
	client *httpx.Client
}

func (b *httpBackend) ListBooks(ctx context.Context) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("catalog: http backend not configured")
	}
	return b.client.GetJSON(ctx, pathBooks)
}

func (b *httpBackend) CreateBook(ctx context.Context, body []byte) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("catalog: http backend not configured")
	}
	return b.client.PostJSON(ctx, pathBooks, body)
}

func (b *httpBackend) GetBook(ctx context.Context, id string) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("catalog: http backend not configured")
	}
	return b.client.GetJSON(ctx, pathBooks+"/"+url.PathEscape(id))
}

func (b *httpBackend) AddToCart(ctx context.Context, body []byte) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("catalog: http backend not configured")
	}
	return b.client.PostJSON(ctx, pathCart, body)
}

func (b *httpBackend) ListCart(ctx context.Context) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("catalog: http backend not configured")
	}
	return b.client.GetJSON(ctx, pathCart)
}
