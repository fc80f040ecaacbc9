// Package actions issues catalog requests and turns each successful response
// into exactly one store event. Each operation returns the state produced by
// its own event, so callers never have to re-read a store that other requests
// may have advanced since. Failures are returned to the caller and leave the
// store untouched.
package actions

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joshuaai/book-store/pkg/catalog"
	"github.com/joshuaai/book-store/pkg/store"
)

const instrumentationName = "github.com/joshuaai/book-store/pkg/actions"

const (
	metricCalls    = "bookstore.actions.calls"
	metricDuration = "bookstore.actions.duration"
	attrAction     = "action"
	attrOutcome    = "outcome"
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Catalog is the remote catalog as seen by the action layer. *catalog.Client
// implements it.
type Catalog interface {
	ListBooks(ctx context.Context) ([]catalog.Book, error)
	CreateBook(ctx context.Context, in catalog.NewBook) (catalog.Book, error)
	GetBook(ctx context.Context, id string) (catalog.Book, error)
	AddToCart(ctx context.Context, item catalog.CartItem) (catalog.CartItem, error)
	ListCart(ctx context.Context) ([]catalog.CartItem, error)
}

// Dispatcher receives the events produced by successful calls. *store.Store
// implements it.
type Dispatcher interface {
	Dispatch(ev store.Event) store.State
}

// Actions binds a catalog to a dispatcher.
type Actions struct {
	catalog  Catalog
	dispatch Dispatcher
	logger   *slog.Logger
	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

type config struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures Actions.
type Option func(*config)

// WithLogger sets the logger for failed calls.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// New returns Actions that call cat and dispatch into d.
func New(cat Catalog, d Dispatcher, opts ...Option) (*Actions, error) {
	if cat == nil {
		return nil, errors.New("actions: catalog is required")
	}
	if d == nil {
		return nil, errors.New("actions: dispatcher is required")
	}
	cfg := config{
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	meter := cfg.meterProvider.Meter(instrumentationName)
	calls, err := meter.Int64Counter(metricCalls,
		metric.WithDescription("Catalog calls issued by the action layer"))
	if err != nil {
		return nil, errors.Wrap(err, "actions: create counter")
	}
	duration, err := meter.Float64Histogram(metricDuration,
		metric.WithDescription("Duration of catalog calls issued by the action layer"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, errors.Wrap(err, "actions: create histogram")
	}

	return &Actions{
		catalog:  cat,
		dispatch: d,
		logger:   cfg.logger,
		tracer:   cfg.tracerProvider.Tracer(instrumentationName),
		calls:    calls,
		duration: duration,
	}, nil
}

// ListBooks fetches all books and replaces the books slice.
func (a *Actions) ListBooks(ctx context.Context) (store.State, error) {
	return a.run(ctx, "ListBooks", nil, func(ctx context.Context) (store.Event, error) {
		books, err := a.catalog.ListBooks(ctx)
		if err != nil {
			return nil, err
		}
		return store.BooksListed{Books: books}, nil
	})
}

// CreateBook posts a new book and appends the created book to the books slice.
func (a *Actions) CreateBook(ctx context.Context, in catalog.NewBook) (store.State, error) {
	attrs := []attribute.KeyValue{attribute.String("book.title", in.Title)}
	return a.run(ctx, "CreateBook", attrs, func(ctx context.Context) (store.Event, error) {
		b, err := a.catalog.CreateBook(ctx, in)
		if err != nil {
			return nil, err
		}
		return store.BookCreated{Book: b}, nil
	})
}

// GetBookByID fetches one book and records it as the current book.
func (a *Actions) GetBookByID(ctx context.Context, id string) (store.State, error) {
	attrs := []attribute.KeyValue{attribute.String("book.id", id)}
	return a.run(ctx, "GetBookByID", attrs, func(ctx context.Context) (store.Event, error) {
		b, err := a.catalog.GetBook(ctx, id)
		if err != nil {
			return nil, err
		}
		return store.BookFetched{Book: b}, nil
	})
}

// AddToCart posts item to the cart and appends the stored item to the cart slice.
func (a *Actions) AddToCart(ctx context.Context, item catalog.CartItem) (store.State, error) {
	attrs := []attribute.KeyValue{attribute.String("book.id", item.ID)}
	return a.run(ctx, "AddToCart", attrs, func(ctx context.Context) (store.Event, error) {
		stored, err := a.catalog.AddToCart(ctx, item)
		if err != nil {
			return nil, err
		}
		return store.CartItemAdded{Item: stored}, nil
	})
}

// ListCart fetches the cart and replaces the cart slice.
func (a *Actions) ListCart(ctx context.Context) (store.State, error) {
	return a.run(ctx, "ListCart", nil, func(ctx context.Context) (store.Event, error) {
		items, err := a.catalog.ListCart(ctx)
		if err != nil {
			return nil, err
		}
		return store.CartListed{Items: items}, nil
	})
}

// run performs one call, dispatches its event and returns the state that event
// produced. The event is dropped when ctx was cancelled while the call was in
// flight.
func (a *Actions) run(ctx context.Context, name string, attrs []attribute.KeyValue, call func(context.Context) (store.Event, error)) (store.State, error) {
	ctx, span := a.tracer.Start(ctx, "actions."+name, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	ev, err := call(ctx)
	if err == nil {
		err = ctx.Err()
	}
	elapsed := time.Since(start)

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	set := metric.WithAttributes(attribute.String(attrAction, name), attribute.String(attrOutcome, outcome))
	a.calls.Add(ctx, 1, set)
	a.duration.Record(ctx, elapsed.Seconds(), set)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.WarnContext(ctx, "catalog call failed",
			"action", name,
			"duration_ms", elapsed.Milliseconds(),
			"error", err.Error(),
		)
		return store.State{}, errors.Wrap(err, name)
	}

	st := a.dispatch.Dispatch(ev)
	span.SetAttributes(attribute.String("store.event", string(ev.Kind())), attribute.Int64("store.version", int64(st.Version)))
	span.SetStatus(codes.Ok, "")
	return st, nil
}
