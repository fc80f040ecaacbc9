package views

import (
	"bytes"
	"context"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuaai/book-store/pkg/catalog"
	"github.com/joshuaai/book-store/pkg/store"
)

type recordingActions struct {
	calls []string
	newBk catalog.NewBook
	item  catalog.CartItem
}

func (r *recordingActions) ListBooks(context.Context) (store.State, error) {
	r.calls = append(r.calls, "ListBooks")
	return store.State{}, nil
}

func (r *recordingActions) CreateBook(_ context.Context, in catalog.NewBook) (store.State, error) {
	r.calls = append(r.calls, "CreateBook")
	r.newBk = in
	return store.State{}, nil
}

func (r *recordingActions) GetBookByID(_ context.Context, id string) (store.State, error) {
	r.calls = append(r.calls, "GetBookByID:"+id)
	return store.State{}, nil
}

func (r *recordingActions) AddToCart(_ context.Context, item catalog.CartItem) (store.State, error) {
	r.calls = append(r.calls, "AddToCart")
	r.item = item
	return store.State{}, nil
}

func (r *recordingActions) ListCart(context.Context) (store.State, error) {
	r.calls = append(r.calls, "ListCart")
	return store.State{}, nil
}

func runEffects(t *testing.T, effects []Effect) *recordingActions {
	t.Helper()
	rec := &recordingActions{}
	for _, eff := range effects {
		_, err := eff(context.Background(), rec)
		require.NoError(t, err)
	}
	return rec
}

func mustPrice(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestRoutesResolveToViews(t *testing.T) {
	r := Routes()
	m, ok := r.Resolve("/books/42")
	require.True(t, ok)
	assert.IsType(t, BookDetails{}, m.Route.Target)
	assert.Equal(t, "42", m.Params["id"])

	_, ok = r.Resolve("/unknown")
	assert.False(t, ok)
}

func TestActivation(t *testing.T) {
	assert.Empty(t, Home{}.Activate(nil))
	assert.Empty(t, About{}.Activate(nil))
	assert.Equal(t, []string{"ListBooks"}, runEffects(t, BooksPage{}.Activate(nil)).calls)
	assert.Equal(t, []string{"ListCart"}, runEffects(t, CartPage{}.Activate(nil)).calls)
	assert.Equal(t, []string{"GetBookByID:42"}, runEffects(t, BookDetails{}.Activate(map[string]string{"id": "42"})).calls)
}

func TestBooksPageRendersTitlesAndForm(t *testing.T) {
	st := store.Reduce(store.State{}, store.BooksListed{Books: []catalog.Book{
		{ID: "1", Title: "Dune"},
		{ID: "2", Title: "<Emma>"},
	}})
	var buf bytes.Buffer
	require.NoError(t, BooksPage{}.Render(&buf, Page{State: st, Route: RouteBooks, Notice: "Submitted book: Dune"}))

	html := buf.String()
	assert.Contains(t, html, `<a href="/books/1">Dune</a>`)
	assert.Contains(t, html, "&lt;Emma&gt;")
	assert.Contains(t, html, `<form method="post" action="/books">`)
	assert.Contains(t, html, "Submitted book: Dune")
	assert.Contains(t, html, `class="active">Books</a>`)
	assert.Contains(t, html, `<a href="/cart">Cart</a>`)
	assert.NotContains(t, html, ">Book</a>")
}

func TestBookLinksEscapeIDs(t *testing.T) {
	st := store.Reduce(store.State{}, store.BooksListed{Books: []catalog.Book{{ID: "a/b", Title: "Slashes"}}})
	var buf bytes.Buffer
	require.NoError(t, BooksPage{}.Render(&buf, Page{State: st, Route: RouteBooks}))
	assert.Contains(t, buf.String(), `<a href="/books/a%2Fb">Slashes</a>`)
}

func TestCartPageRendersRows(t *testing.T) {
	st := store.Reduce(store.State{}, store.CartListed{Items: []catalog.CartItem{
		{ID: "1", Title: "Dune", Price: mustPrice("12.5")},
		{ID: "2", Title: "Emma"},
	}})
	var buf bytes.Buffer
	require.NoError(t, CartPage{}.Render(&buf, Page{State: st}))
	assert.Contains(t, buf.String(), "<td>Dune</td>\n<td>12.50</td>")
	assert.Contains(t, buf.String(), "<td>Emma</td>\n<td></td>")
}

func TestBookDetailsRendersCurrentBook(t *testing.T) {
	st := store.Reduce(store.State{}, store.BookFetched{Book: catalog.Book{ID: "42", Title: "Dune", Price: mustPrice("9")}})
	var buf bytes.Buffer
	require.NoError(t, BookDetails{}.Render(&buf, Page{State: st, Params: map[string]string{"id": "42"}}))

	html := buf.String()
	assert.Contains(t, html, "<title>Dune | Book Store</title>")
	assert.Contains(t, html, `name="title" value="Dune"`)
	assert.Contains(t, html, "Price: 9.00")
	assert.Contains(t, html, `<form method="post" action="/books/42">`)

	buf.Reset()
	require.NoError(t, BookDetails{}.Render(&buf, Page{State: st, Params: map[string]string{"id": "7"}}))
	assert.Contains(t, buf.String(), "Book not found.")
}

func TestBookDetailsPrefersFetchedCopy(t *testing.T) {
	st := store.Reduce(store.State{}, store.BooksListed{Books: []catalog.Book{{ID: "1", Title: "Old"}}})
	st = store.Reduce(st, store.BookFetched{Book: catalog.Book{ID: "1", Title: "New"}})

	var buf bytes.Buffer
	require.NoError(t, BookDetails{}.Render(&buf, Page{State: st, Params: map[string]string{"id": "1"}}))
	assert.Contains(t, buf.String(), "<h1>New</h1>")
	assert.NotContains(t, buf.String(), "Old")
}

func TestBookWithoutPrice(t *testing.T) {
	st := store.Reduce(store.State{}, store.BookFetched{Book: catalog.Book{ID: "7", Title: "Draft"}})
	var buf bytes.Buffer
	require.NoError(t, BookDetails{}.Render(&buf, Page{State: st, Params: map[string]string{"id": "7"}}))

	html := buf.String()
	assert.NotContains(t, html, "Price:")
	assert.Contains(t, html, `name="price" value=""`)

	sub, err := BookDetails{}.Submit(map[string]string{"id": "7"}, url.Values{"title": {"Draft"}, "price": {""}})
	require.NoError(t, err)
	assert.False(t, runEffects(t, sub.Effects).item.Price.Valid)
}

func TestBooksPageSubmit(t *testing.T) {
	sub, err := BooksPage{}.Submit(nil, url.Values{"title": {"  Dune "}, "price": {"9.99"}})
	require.NoError(t, err)
	assert.Equal(t, "Submitted book: Dune", sub.Notice)
	assert.Equal(t, "/books", sub.Redirect)

	rec := runEffects(t, sub.Effects)
	assert.Equal(t, []string{"CreateBook"}, rec.calls)
	assert.Equal(t, "Dune", rec.newBk.Title)
	require.True(t, rec.newBk.Price.Valid)
	assert.True(t, decimal.RequireFromString("9.99").Equal(rec.newBk.Price.Decimal))

	sub, err = BooksPage{}.Submit(nil, url.Values{"title": {"Emma"}})
	require.NoError(t, err)
	assert.False(t, runEffects(t, sub.Effects).newBk.Price.Valid)
}

func TestBooksPageSubmitRejectsBadInput(t *testing.T) {
	for name, form := range map[string]url.Values{
		"empty title":    {"title": {" "}},
		"textual price":  {"title": {"Dune"}, "price": {"cheap"}},
		"negative price": {"title": {"Dune"}, "price": {"-1"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := BooksPage{}.Submit(nil, form)
			assert.ErrorIs(t, err, ErrInvalidForm)
		})
	}
}

func TestBookDetailsSubmitAddsToCart(t *testing.T) {
	sub, err := BookDetails{}.Submit(map[string]string{"id": "42"}, url.Values{"title": {"Dune"}, "price": {"12"}})
	require.NoError(t, err)
	assert.Equal(t, "/cart", sub.Redirect)

	rec := runEffects(t, sub.Effects)
	assert.Equal(t, []string{"AddToCart"}, rec.calls)
	assert.Equal(t, "42", rec.item.ID)
	require.True(t, rec.item.Price.Valid)
	assert.True(t, decimal.NewFromInt(12).Equal(rec.item.Price.Decimal))

	_, err = BookDetails{}.Submit(map[string]string{"id": "42"}, url.Values{})
	assert.ErrorIs(t, err, ErrInvalidForm)
}

func TestStaticPages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Home{}.Render(&buf, Page{Route: RouteHome}))
	assert.Contains(t, buf.String(), "<h1>Book Store</h1>")

	buf.Reset()
	require.NoError(t, About{}.Render(&buf, Page{Route: RouteAbout}))
	assert.Contains(t, buf.String(), "<h1>About</h1>")
}
