// Package pgstore persists the catalog collections in PostgreSQL. It lets the
// sandbox service keep books and cart items across restarts.
//
//	pool, _ := pgxpool.New(ctx, dsn)
//	store, _ := pgstore.New(pool)
//	_ = store.EnsureSchema(ctx)
package pgstore

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/joshuaai/book-store/pkg/catalog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	dialectPostgres   = "postgres"
	defaultBooksTable = "books"
	defaultCartTable  = "cart_items"
	colID             = "id"
	colTitle          = "title"
	colPrice          = "price"
	colExtra          = "extra"
	castJsonb         = "?::jsonb"
	castText          = "?::text"
	castNumeric       = "?::numeric"
)

// ErrNilPool is returned by New when no pool is supplied.
var ErrNilPool = errors.New("pgstore: nil database pool")

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements catalog.Repository on two tables.
type Store struct {
	db         DB
	booksTable string
	cartTable  string
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithTableNames overrides the default "books" and "cart_items" tables.
func WithTableNames(books, cart string) Option {
	return func(s *Store) error {
		if strings.TrimSpace(books) == "" || strings.TrimSpace(cart) == "" {
			return errors.New("pgstore: table names must not be empty")
		}
		s.booksTable = books
		s.cartTable = cart
		return nil
	}
}

// WithLogger logs every statement at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// New wraps a pgx pool.
func New(pool *pgxpool.Pool, opts ...Option) (*Store, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	return newStore(pool, opts...)
}

func newStore(db DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, booksTable: defaultBooksTable, cartTable: defaultCartTable}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

var _ catalog.Repository = (*Store)(nil)

// EnsureSchema creates both tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, table := range []string{s.booksTable, s.cartTable} {
		stmt := schemaSQL(table)
		s.debug(stmt)
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgstore: create table %s: %w", table, err)
		}
	}
	return nil
}

func schemaSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	id bigserial PRIMARY KEY,
	title text NOT NULL,
	price numeric,
	extra jsonb NOT NULL DEFAULT '{}'::jsonb
)`, table)
}

// ListBooks returns all books ordered by id.
func (s *Store) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	rows, err := s.queryAll(ctx, s.booksTable)
	if err != nil {
		return nil, err
	}
	books := make([]catalog.Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, catalog.Book(r))
	}
	return books, nil
}

// CreateBook inserts a book and returns it with its generated id.
func (s *Store) CreateBook(ctx context.Context, in catalog.NewBook) (catalog.Book, error) {
	if strings.TrimSpace(in.Title) == "" {
		return catalog.Book{}, fmt.Errorf("%w: title is required", catalog.ErrInvalidInput)
	}
	r, err := s.insert(ctx, s.booksTable, row{Title: in.Title, Price: in.Price})
	if err != nil {
		return catalog.Book{}, err
	}
	return catalog.Book(r), nil
}

// GetBook returns catalog.ErrNotFound for unknown or non-numeric ids.
func (s *Store) GetBook(ctx context.Context, id string) (catalog.Book, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return catalog.Book{}, fmt.Errorf("%w: book %q", catalog.ErrNotFound, id)
	}
	query, err := buildSelectByID(s.booksTable, n)
	if err != nil {
		return catalog.Book{}, err
	}
	s.debug(query)
	r, err := scanRow(s.db.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Book{}, fmt.Errorf("%w: book %q", catalog.ErrNotFound, id)
	}
	if err != nil {
		return catalog.Book{}, fmt.Errorf("pgstore: get book: %w", err)
	}
	return catalog.Book(r), nil
}

// AddCartItem inserts a copy of item under a new cart id.
func (s *Store) AddCartItem(ctx context.Context, item catalog.CartItem) (catalog.CartItem, error) {
	if strings.TrimSpace(item.Title) == "" {
		return catalog.CartItem{}, fmt.Errorf("%w: title is required", catalog.ErrInvalidInput)
	}
	r, err := s.insert(ctx, s.cartTable, row(item))
	if err != nil {
		return catalog.CartItem{}, err
	}
	return catalog.CartItem(r), nil
}

// ListCart returns all cart items ordered by id.
func (s *Store) ListCart(ctx context.Context) ([]catalog.CartItem, error) {
	rows, err := s.queryAll(ctx, s.cartTable)
	if err != nil {
		return nil, err
	}
	items := make([]catalog.CartItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, catalog.CartItem(r))
	}
	return items, nil
}

// row has the same layout as catalog.Book and catalog.CartItem.
type row struct {
	ID    string
	Title string
	Price decimal.NullDecimal
	Extra map[string]stdjson.RawMessage
}

func (s *Store) queryAll(ctx context.Context, table string) ([]row, error) {
	query, err := buildSelectAll(table)
	if err != nil {
		return nil, err
	}
	s.debug(query)
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]row, 0)
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("pgstore: scan %s: %w", table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: iterate %s: %w", table, err)
	}
	return out, nil
}

func (s *Store) insert(ctx context.Context, table string, r row) (row, error) {
	query, err := buildInsert(table, r)
	if err != nil {
		return row{}, err
	}
	s.debug(query)
	stored, err := scanRow(s.db.QueryRow(ctx, query))
	if err != nil {
		return row{}, fmt.Errorf("pgstore: insert into %s: %w", table, err)
	}
	return stored, nil
}

func (s *Store) debug(query string) {
	if s.logger != nil {
		s.logger.Debug("pgstore: executing sql", "query", query)
	}
}

func selectColumns() []any {
	return []any{
		goqu.C(colID),
		goqu.C(colTitle),
		goqu.L(castText, goqu.C(colPrice)).As(colPrice),
		goqu.C(colExtra),
	}
}

func buildSelectAll(table string) (string, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(table).
		Select(selectColumns()...).
		Order(goqu.I(colID).Asc()).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("pgstore: build select: %w", err)
	}
	return query, nil
}

func buildSelectByID(table string, id int64) (string, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(table).
		Select(selectColumns()...).
		Where(goqu.C(colID).Eq(id)).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("pgstore: build select: %w", err)
	}
	return query, nil
}

func buildInsert(table string, r row) (string, error) {
	extra := r.Extra
	if extra == nil {
		extra = map[string]stdjson.RawMessage{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("pgstore: encode extra: %w", err)
	}
	var price any
	if r.Price.Valid {
		price = goqu.L(castNumeric, r.Price.Decimal.String())
	}
	query, _, err := goqu.Dialect(dialectPostgres).
		Insert(table).
		Rows(goqu.Record{
			colTitle: r.Title,
			colPrice: price,
			colExtra: goqu.L(castJsonb, string(extraJSON)),
		}).
		Returning(selectColumns()...).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("pgstore: build insert: %w", err)
	}
	return query, nil
}

func scanRow(src pgx.Row) (row, error) {
	var (
		id    int64
		r     row
		price *string
		extra []byte
	)
	if err := src.Scan(&id, &r.Title, &price, &extra); err != nil {
		return row{}, err
	}
	r.ID = strconv.FormatInt(id, 10)
	if price != nil {
		d, err := decimal.NewFromString(*price)
		if err != nil {
			return row{}, fmt.Errorf("pgstore: price %q: %w", *price, err)
		}
		r.Price = decimal.NewNullDecimal(d)
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &r.Extra); err != nil {
			return row{}, fmt.Errorf("pgstore: extra: %w", err)
		}
		if len(r.Extra) == 0 {
			r.Extra = nil
		}
	}
	return r, nil
}
