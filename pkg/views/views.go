// Package views renders store snapshots as HTML pages and turns user intents
// into effects that call the action layer.
package views

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joshuaai/book-store/pkg/catalog"
	"github.com/joshuaai/book-store/pkg/router"
	"github.com/joshuaai/book-store/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Route names.
const (
	RouteHome  = "home"
	RouteAbout = "about"
	RouteBooks = "books"
	RouteBook  = "book"
	RouteCart  = "cart"
)

// ErrInvalidForm is returned by Submit when form input is unusable.
var ErrInvalidForm = errors.New("views: invalid form")

// Actions is the action layer as seen by effects. *actions.Actions
// implements it. Each call returns the state produced by its own event.
type Actions interface {
	ListBooks(ctx context.Context) (store.State, error)
	CreateBook(ctx context.Context, in catalog.NewBook) (store.State, error)
	GetBookByID(ctx context.Context, id string) (store.State, error)
	AddToCart(ctx context.Context, item catalog.CartItem) (store.State, error)
	ListCart(ctx context.Context) (store.State, error)
}

// Effect is one action call a view asks for. It returns the state its call
// produced; a page is rendered from the state of its last effect.
type Effect func(ctx context.Context, a Actions) (store.State, error)

// View is a routed page.
type View interface {
	Title() string
	// Activate returns the fetches to run each time the page is displayed.
	Activate(params map[string]string) []Effect
	Render(w io.Writer, p Page) error
}

// Submitter is implemented by views that accept form posts.
type Submitter interface {
	Submit(params map[string]string, form url.Values) (Submission, error)
}

// Submission is what a form post asks for: effects to run, a notice for the
// user and where to go afterwards.
type Submission struct {
	Effects  []Effect
	Notice   string
	Redirect string
}

// NavLink is one entry of the page header.
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// Page carries everything a view renders from.
type Page struct {
	State  store.State
	Params map[string]string
	Notice string
	Route  string
}

// Routes returns the route table of the book store. Navigation lists the
// routes without parameters in declaration order.
func Routes() *router.Router[View] {
	return router.MustNew(
		router.Route[View]{Name: RouteHome, Pattern: "/", Target: Home{}},
		router.Route[View]{Name: RouteAbout, Pattern: "/about", Target: About{}},
		router.Route[View]{Name: RouteBooks, Pattern: "/books", Target: BooksPage{}},
		router.Route[View]{Name: RouteBook, Pattern: "/books/:id", Target: BookDetails{}},
		router.Route[View]{Name: RouteCart, Pattern: "/cart", Target: CartPage{}},
	)
}

var table = Routes()

var funcs = template.FuncMap{
	"price": formatPrice,
	"path":  pathFor,
}

// pathFor builds a link from a route name and key/value parameter pairs.
func pathFor(name string, pairs ...string) (string, error) {
	if len(pairs)%2 != 0 {
		return "", fmt.Errorf("views: path %q: odd number of parameters", name)
	}
	params := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		params[pairs[i]] = pairs[i+1]
	}
	return table.Path(name, params)
}

// formatPrice renders a missing price as an empty string.
func formatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return ""
	}
	return p.Decimal.StringFixed(2)
}

func navLinks(active string) []NavLink {
	var links []NavLink
	for _, r := range table.Routes() {
		if strings.Contains(r.Pattern, ":") {
			continue
		}
		href, err := table.Path(r.Name, nil)
		if err != nil {
			continue
		}
		links = append(links, NavLink{Label: r.Target.Title(), Href: href, Active: r.Name == active})
	}
	return links
}

func mustParse(page string) *template.Template {
	return template.Must(template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page))
}

var (
	homeTmpl  = mustParse("home.html")
	aboutTmpl = mustParse("about.html")
	booksTmpl = mustParse("books.html")
	bookTmpl  = mustParse("book.html")
	cartTmpl  = mustParse("cart.html")
)

type layoutData struct {
	Page
	Title string
	Nav   []NavLink
	Book  *catalog.Book
}

func render(w io.Writer, t *template.Template, title string, p Page, book *catalog.Book) error {
	data := layoutData{Page: p, Title: title, Nav: navLinks(p.Route), Book: book}
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("views: render %s: %w", title, err)
	}
	return nil
}

// Home is the landing page.
type Home struct{}

func (Home) Title() string                       { return "Home" }
func (Home) Activate(map[string]string) []Effect { return nil }
func (v Home) Render(w io.Writer, p Page) error  { return render(w, homeTmpl, v.Title(), p, nil) }

// About is a static page.
type About struct{}

func (About) Title() string                       { return "About" }
func (About) Activate(map[string]string) []Effect { return nil }
func (v About) Render(w io.Writer, p Page) error  { return render(w, aboutTmpl, v.Title(), p, nil) }

// BooksPage lists the catalog and hosts the book form.
type BooksPage struct{}

func (BooksPage) Title() string { return "Books" }

// Activate fetches the book list on every display.
func (BooksPage) Activate(map[string]string) []Effect {
	return []Effect{func(ctx context.Context, a Actions) (store.State, error) { return a.ListBooks(ctx) }}
}

func (v BooksPage) Render(w io.Writer, p Page) error {
	return render(w, booksTmpl, v.Title(), p, nil)
}

// Submit creates a book from the form and echoes the submitted title back.
func (BooksPage) Submit(_ map[string]string, form url.Values) (Submission, error) {
	title := strings.TrimSpace(form.Get("title"))
	if title == "" {
		return Submission{}, fmt.Errorf("%w: title is required", ErrInvalidForm)
	}
	price, err := parsePrice(form.Get("price"))
	if err != nil {
		return Submission{}, err
	}
	in := catalog.NewBook{Title: title, Price: price}
	return Submission{
		Effects:  []Effect{func(ctx context.Context, a Actions) (store.State, error) { return a.CreateBook(ctx, in) }},
		Notice:   "Submitted book: " + title,
		Redirect: "/books",
	}, nil
}

// BookDetails shows one book with an add-to-cart form.
type BookDetails struct{}

func (BookDetails) Title() string { return "Book" }

// Activate fetches the book named by the id parameter.
func (BookDetails) Activate(params map[string]string) []Effect {
	id := params["id"]
	return []Effect{func(ctx context.Context, a Actions) (store.State, error) { return a.GetBookByID(ctx, id) }}
}

func (v BookDetails) Render(w io.Writer, p Page) error {
	var book *catalog.Book
	if b, ok := p.State.BookByID(p.Params["id"]); ok {
		book = &b
	}
	title := v.Title()
	if book != nil {
		title = book.Title
	}
	return render(w, bookTmpl, title, p, book)
}

// Submit adds the posted book to the cart.
func (BookDetails) Submit(params map[string]string, form url.Values) (Submission, error) {
	id := strings.TrimSpace(form.Get("id"))
	if id == "" {
		id = params["id"]
	}
	title := strings.TrimSpace(form.Get("title"))
	if id == "" || title == "" {
		return Submission{}, fmt.Errorf("%w: id and title are required", ErrInvalidForm)
	}
	price, err := parsePrice(form.Get("price"))
	if err != nil {
		return Submission{}, err
	}
	item := catalog.CartItem{ID: id, Title: title, Price: price}
	return Submission{
		Effects:  []Effect{func(ctx context.Context, a Actions) (store.State, error) { return a.AddToCart(ctx, item) }},
		Notice:   "Added to cart: " + title,
		Redirect: "/cart",
	}, nil
}

// CartPage shows the cart as a table.
type CartPage struct{}

func (CartPage) Title() string { return "Cart" }

// Activate fetches the cart on every display.
func (CartPage) Activate(map[string]string) []Effect {
	return []Effect{func(ctx context.Context, a Actions) (store.State, error) { return a.ListCart(ctx) }}
}

func (v CartPage) Render(w io.Writer, p Page) error {
	return render(w, cartTmpl, v.Title(), p, nil)
}

func parsePrice(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: price %q is not a number", ErrInvalidForm, raw)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: price must not be negative", ErrInvalidForm)
	}
	return decimal.NewNullDecimal(d), nil
}
