// Package frontend serves the book store pages over HTTP. Each GET runs the
// page's activation effects before rendering; each form POST runs the
// submission effects and redirects.
package frontend

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/joshuaai/book-store/internal/logging"
	"github.com/joshuaai/book-store/pkg/catalog"
	"github.com/joshuaai/book-store/pkg/router"
	"github.com/joshuaai/book-store/pkg/store"
	"github.com/joshuaai/book-store/pkg/views"
)

// Server renders routed views from a store.
type Server struct {
	routes  *router.Router[views.View]
	store   *store.Store
	actions views.Actions
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for access logs and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRoutes replaces the default route table.
func WithRoutes(routes *router.Router[views.View]) Option {
	return func(s *Server) {
		if routes != nil {
			s.routes = routes
		}
	}
}

// New returns a server reading st and calling a.
func New(st *store.Store, a views.Actions, opts ...Option) *Server {
	s := &Server{
		routes:  views.Routes(),
		store:   st,
		actions: a,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the server wrapped in request id, recovery and access log
// middleware.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s
	h = panicRecoveryMiddleware(h, s.logger)
	h = accessLogMiddleware(h, s.logger)
	return requestIDMiddleware(h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, ok := s.routes.Resolve(r.URL.EscapedPath())
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.show(w, r, m)
	case http.MethodPost:
		s.submit(w, r, m)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) show(w http.ResponseWriter, r *http.Request, m router.Match[views.View]) {
	view := m.Route.Target
	st, err := s.run(r, view.Activate(m.Params))
	if err != nil {
		s.fail(w, r, m.Route.Name, err)
		return
	}

	var buf bytes.Buffer
	page := views.Page{
		State:  st,
		Params: m.Params,
		Notice: r.URL.Query().Get("notice"),
		Route:  m.Route.Name,
	}
	if err := view.Render(&buf, page); err != nil {
		s.logger.ErrorContext(r.Context(), "render failed",
			"request_id", RequestIDFromContext(r.Context()),
			"route", m.Route.Name,
			"error", err.Error(),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, m router.Match[views.View]) {
	sub, ok := m.Route.Target.(views.Submitter)
	if !ok {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	submission, err := sub.Submit(m.Params, r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.run(r, submission.Effects); err != nil {
		if errors.Is(err, catalog.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.fail(w, r, m.Route.Name, err)
		return
	}

	target := submission.Redirect
	if target == "" {
		target = r.URL.Path
	}
	if submission.Notice != "" {
		target += "?" + url.Values{"notice": {submission.Notice}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// run executes effects in order and stops at the first failure. It returns
// the state produced by the last effect, or the current store state when there
// are no effects. Other requests may dispatch in between, so pages never
// re-read the store after their own fetch.
func (s *Server) run(r *http.Request, effects []views.Effect) (store.State, error) {
	if len(effects) == 0 {
		return s.store.State(), nil
	}
	var st store.State
	for _, eff := range effects {
		next, err := eff(r.Context(), s.actions)
		if err != nil {
			return store.State{}, err
		}
		st = next
	}
	return st, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, route string, err error) {
	s.logger.ErrorContext(r.Context(), "page effect failed",
		"request_id", RequestIDFromContext(r.Context()),
		"route", route,
		"not_found", catalog.IsNotFound(err),
		"error", err.Error(),
	)
	http.Error(w, "bad gateway", http.StatusBadGateway)
}
