package frontend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuaai/book-store/pkg/actions"
	"github.com/joshuaai/book-store/pkg/catalog"
	"github.com/joshuaai/book-store/pkg/catalog/mock"
	"github.com/joshuaai/book-store/pkg/router"
	"github.com/joshuaai/book-store/pkg/store"
	"github.com/joshuaai/book-store/pkg/views"
)

func newTestServer(t *testing.T, cat actions.Catalog, opts ...Option) *httptest.Server {
	t.Helper()
	st := store.New()
	a, err := actions.New(cat, st)
	require.NoError(t, err)
	srv := httptest.NewServer(New(st, a, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestCreateBookAddToCartFlow(t *testing.T) {
	srv := newTestServer(t, catalog.NewWithRepository(mock.New()))
	client := noRedirect()

	resp, err := client.PostForm(srv.URL+"/books", url.Values{"title": {"Dune"}, "price": {"12.50"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/books?notice=Submitted+book%3A+Dune", resp.Header.Get("Location"))

	status, body := get(t, srv, "/books?notice=Submitted+book%3A+Dune")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<a href="/books/1">Dune</a>`)
	assert.Contains(t, body, "Submitted book: Dune")

	status, body = get(t, srv, "/books/1")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h1>Dune</h1>")

	resp, err = client.PostForm(srv.URL+"/books/1", url.Values{"id": {"1"}, "title": {"Dune"}, "price": {"12.5"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/cart"))

	status, body = get(t, srv, "/cart")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<td>Dune</td>")
	assert.Contains(t, body, "<td>12.50</td>")
}

func TestStaticPagesAndNotFound(t *testing.T) {
	srv := newTestServer(t, catalog.NewWithRepository(mock.New()))

	status, body := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h1>Book Store</h1>")

	status, _ = get(t, srv, "/about/")
	assert.Equal(t, http.StatusOK, status)

	status, _ = get(t, srv, "/unknown")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUnknownBookIsBadGateway(t *testing.T) {
	srv := newTestServer(t, catalog.NewWithRepository(mock.New()))
	status, body := get(t, srv, "/books/404")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body, "bad gateway")
}

func TestRemoteFailureIsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(upstream.Close)
	cl, err := catalog.New(upstream.URL)
	require.NoError(t, err)

	var logs bytes.Buffer
	srv := newTestServer(t, cl, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	status, _ := get(t, srv, "/cart")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, logs.String(), "page effect failed")
	assert.Contains(t, logs.String(), "route=cart")
}

func TestInvalidFormIsBadRequest(t *testing.T) {
	srv := newTestServer(t, catalog.NewWithRepository(mock.New()))
	resp, err := noRedirect().PostForm(srv.URL+"/books", url.Values{"title": {""}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, catalog.NewWithRepository(mock.New()))

	resp, err := noRedirect().PostForm(srv.URL+"/about", url.Values{})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/books", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, catalog.NewWithRepository(mock.New()))

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc", resp.Header.Get("X-Request-ID"))
}

type panicView struct{ views.Home }

func (panicView) Activate(map[string]string) []views.Effect {
	return []views.Effect{func(context.Context, views.Actions) (store.State, error) { panic("boom") }}
}

func TestPanicRecovery(t *testing.T) {
	routes := router.MustNew(router.Route[views.View]{Name: "boom", Pattern: "/", Target: panicView{}})
	var logs bytes.Buffer
	srv := newTestServer(t, catalog.NewWithRepository(mock.New()),
		WithRoutes(routes),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)

	status, _ := get(t, srv, "/")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, logs.String(), "panic recovered")
}

type rejectingCatalog struct{ actions.Catalog }

func (rejectingCatalog) CreateBook(context.Context, catalog.NewBook) (catalog.Book, error) {
	return catalog.Book{}, errors.Join(catalog.ErrInvalidInput, errors.New("rejected"))
}

func TestInvalidInputFromCatalogIsBadRequest(t *testing.T) {
	srv := newTestServer(t, rejectingCatalog{})
	resp, err := noRedirect().PostForm(srv.URL+"/books", url.Values{"title": {"Dune"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// revisedCatalog lists a book under one title and returns a newer title when
// the book is fetched on its own.
type revisedCatalog struct{ actions.Catalog }

func (revisedCatalog) ListBooks(context.Context) ([]catalog.Book, error) {
	return []catalog.Book{{ID: "1", Title: "Old"}}, nil
}

func (revisedCatalog) GetBook(_ context.Context, id string) (catalog.Book, error) {
	return catalog.Book{ID: id, Title: "New " + id}, nil
}

func TestBookPageShowsFetchedCopyAfterList(t *testing.T) {
	srv := newTestServer(t, revisedCatalog{})

	status, body := get(t, srv, "/books")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, ">Old</a>")

	status, body = get(t, srv, "/books/1")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h1>New 1</h1>")
	assert.NotContains(t, body, "Old")
}

// interleavedDispatcher applies each event and then, once, a fetch of
// another book, as a concurrent request on the same store would.
type interleavedDispatcher struct {
	*store.Store
	other store.Event
	once  sync.Once
}

func (d *interleavedDispatcher) Dispatch(ev store.Event) store.State {
	st := d.Store.Dispatch(ev)
	d.once.Do(func() { d.Store.Dispatch(d.other) })
	return st
}

func TestBookPageIgnoresConcurrentFetch(t *testing.T) {
	st := store.New()
	d := &interleavedDispatcher{Store: st, other: store.BookFetched{Book: catalog.Book{ID: "2", Title: "Other"}}}
	a, err := actions.New(revisedCatalog{}, d)
	require.NoError(t, err)
	srv := httptest.NewServer(New(st, a).Handler())
	t.Cleanup(srv.Close)

	status, body := get(t, srv, "/books/1")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h1>New 1</h1>")
	assert.NotContains(t, body, "Book not found.")
	assert.Equal(t, "2", st.State().CurrentBook.ID)
}

func TestBookWithoutPriceKeepsPriceAbsent(t *testing.T) {
	m := mock.New()
	srv := newTestServer(t, catalog.NewWithRepository(m))
	client := noRedirect()

	resp, err := client.PostForm(srv.URL+"/books", url.Values{"title": {"Draft"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	status, body := get(t, srv, "/books/1")
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "Price:")
	assert.Contains(t, body, `name="price" value=""`)

	resp, err = client.PostForm(srv.URL+"/books/1", url.Values{"id": {"1"}, "title": {"Draft"}, "price": {""}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	cart, err := m.ListCart(context.Background())
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.False(t, cart[0].Price.Valid)
}
