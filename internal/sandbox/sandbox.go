// Package sandbox serves a catalog.Repository over the REST surface of the
// hosted catalog mock: /book, /book/{id} and /cart under a path prefix.
package sandbox

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joshuaai/book-store/internal/catalogapi"
	"github.com/joshuaai/book-store/internal/httpx"
	"github.com/joshuaai/book-store/internal/logging"
	"github.com/joshuaai/book-store/pkg/catalog"
)

const maxBodyBytes = 1 << 20

// FailConfig injects failures into a fraction of requests.
type FailConfig struct {
	Rate float64
	Code int
}

// Config controls the handler.
type Config struct {
	Prefix  string
	Latency time.Duration
	Fail    FailConfig
	Logger  *slog.Logger
	// Rand returns a value in [0,1); defaults to math/rand/v2.
	Rand func() float64
}

// NewHandler returns the REST handler for repo.
func NewHandler(repo catalog.Repository, cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	prefix := "/" + strings.Trim(cfg.Prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	h := &handler{repo: repo, logger: cfg.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+prefix+"/book", h.listBooks)
	mux.HandleFunc("POST "+prefix+"/book", h.createBook)
	mux.HandleFunc("GET "+prefix+"/book/{id}", h.getBook)
	mux.HandleFunc("GET "+prefix+"/cart", h.listCart)
	mux.HandleFunc("POST "+prefix+"/cart", h.addToCart)
	return withMiddleware(cfg, mux)
}

func withMiddleware(cfg Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg.Logger.Debug("sandbox request", "method", r.Method, "path", r.URL.Path)
		if cfg.Latency > 0 {
			select {
			case <-time.After(cfg.Latency):
			case <-r.Context().Done():
				return
			}
		}
		if cfg.Fail.Rate > 0 && cfg.Rand() < cfg.Fail.Rate {
			status := cfg.Fail.Code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			http.Error(w, "failure injected", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type handler struct {
	repo   catalog.Repository
	logger *slog.Logger
}

func (h *handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.repo.ListBooks(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	recs := make([]catalogapi.Record, 0, len(books))
	for _, b := range books {
		recs = append(recs, b.Record())
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) createBook(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRecord(w, r)
	if !ok {
		return
	}
	b, err := h.repo.CreateBook(r.Context(), catalog.NewBook{Title: rec.Title, Price: rec.Price})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b.Record())
}

func (h *handler) getBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.repo.GetBook(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Record())
}

func (h *handler) listCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListCart(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	recs := make([]catalogapi.Record, 0, len(items))
	for _, it := range items {
		recs = append(recs, it.Record())
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) addToCart(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRecord(w, r)
	if !ok {
		return
	}
	item, err := h.repo.AddCartItem(r.Context(), catalog.CartItemFromRecord(rec))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item.Record())
}

func readRecord(w http.ResponseWriter, r *http.Request) (catalogapi.Record, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return catalogapi.Record{}, false
	}
	rec, err := catalogapi.DecodeRecord(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return catalogapi.Record{}, false
	}
	return rec, true
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeJSON(w, http.StatusNotFound, "Not found")
	case errors.Is(err, catalog.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("sandbox repository failure", "path", r.URL.Path, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := httpx.MarshalJSON(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// ParseFailConfig parses "rate=<float>,code=<httpStatus>".
func ParseFailConfig(raw string) (FailConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return FailConfig{}, nil
	}
	cfg := FailConfig{Code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return FailConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(key) {
		case "rate":
			f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return FailConfig{}, err
			}
			if f < 0 || f > 1 {
				return FailConfig{}, fmt.Errorf("fail rate %v outside [0,1]", f)
			}
			cfg.Rate = f
		case "code":
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return FailConfig{}, err
			}
			if n < 400 || n > 599 {
				return FailConfig{}, fmt.Errorf("fail code %d is not an error status", n)
			}
			cfg.Code = n
		default:
			return FailConfig{}, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}
