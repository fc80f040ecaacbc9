package bookstore

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joshuaai/book-store/internal/devseed"
	"github.com/joshuaai/book-store/internal/httpx"
	"github.com/joshuaai/book-store/internal/logging"
	"github.com/joshuaai/book-store/pkg/actions"
	"github.com/joshuaai/book-store/pkg/catalog"
	catalogmock "github.com/joshuaai/book-store/pkg/catalog/mock"
	"github.com/joshuaai/book-store/pkg/store"
)

const (
	envMode        = "BOOKSTORE_RUNTIME_MODE"
	envAPIURL      = "BOOKSTORE_API_URL"
	envMockSeed    = "BOOKSTORE_MOCK_SEED"
	envHTTPTimeout = "BOOKSTORE_HTTP_TIMEOUT"
	ModeAuto       = "auto"
	ModeHTTP       = "http"
	ModeMock       = "mock"
)

// DefaultAPIURL is the hosted mock service the front-end was built against.
// HTTP mode uses it when BOOKSTORE_API_URL is unset.
const DefaultAPIURL = "http://59453bfccf46400011a81298.mockapi.io/api"

const userAgent = "bookstore-go"

// Runtime bundles the wired components.
type Runtime struct {
	Catalog *catalog.Client
	Store   *store.Store
	Actions *actions.Actions
	// Mode is the resolved mode, "http" or "mock".
	Mode string
	// APIURL is the catalog base URL in HTTP mode, empty otherwise.
	APIURL string
	// Mock is the in-memory catalog in mock mode, nil otherwise.
	Mock *catalogmock.Mock
}

type config struct {
	logger        *slog.Logger
	actionOptions []actions.Option
	httpOptions   []httpx.Option
}

// Option configures NewFromEnv.
type Option func(*config)

// WithLogger is passed to the store and the action layer.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithActionOptions forwards options to actions.New.
func WithActionOptions(opts ...actions.Option) Option {
	return func(c *config) {
		c.actionOptions = append(c.actionOptions, opts...)
	}
}

// WithHTTPOptions forwards options to the HTTP catalog client.
func WithHTTPOptions(opts ...httpx.Option) Option {
	return func(c *config) {
		c.httpOptions = append(c.httpOptions, opts...)
	}
}

// NewFromEnv resolves the runtime mode and wires a Runtime.
func NewFromEnv(opts ...Option) (*Runtime, error) {
	cfg := config{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&cfg)
	}

	mode := strings.ToLower(strings.TrimSpace(os.Getenv(envMode)))
	apiURL := strings.TrimSpace(os.Getenv(envAPIURL))

	var (
		rt  *Runtime
		err error
	)
	switch mode {
	case "", ModeAuto:
		if apiURL != "" {
			rt, err = newHTTPRuntime(apiURL, cfg)
		} else {
			rt, err = newMockRuntime()
		}
	case ModeHTTP:
		if apiURL == "" {
			apiURL = DefaultAPIURL
		}
		rt, err = newHTTPRuntime(apiURL, cfg)
	case ModeMock:
		rt, err = newMockRuntime()
	default:
		return nil, fmt.Errorf("bookstore: unsupported %s value %q", envMode, mode)
	}
	if err != nil {
		return nil, err
	}

	rt.Store = store.New(store.WithLogger(cfg.logger))
	actionOpts := append([]actions.Option{actions.WithLogger(cfg.logger)}, cfg.actionOptions...)
	rt.Actions, err = actions.New(rt.Catalog, rt.Store, actionOpts...)
	if err != nil {
		return nil, fmt.Errorf("bookstore: init actions: %w", err)
	}
	cfg.logger.Info("bookstore runtime ready", "mode", rt.Mode, "api_url", rt.APIURL)
	return rt, nil
}

func newHTTPRuntime(apiURL string, cfg config) (*Runtime, error) {
	httpOpts := append([]httpx.Option(nil), cfg.httpOptions...)
	if raw := strings.TrimSpace(os.Getenv(envHTTPTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("bookstore: invalid %s value %q", envHTTPTimeout, raw)
		}
		httpOpts = append(httpOpts, httpx.WithTimeout(d))
	}
	httpOpts = append(httpOpts, httpx.WithHeaders(http.Header{"User-Agent": {userAgent}}))

	hc, err := httpx.NewClient(apiURL, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("bookstore: init catalog HTTP client: %w", err)
	}
	return &Runtime{Catalog: catalog.NewWithHTTPClient(hc), Mode: ModeHTTP, APIURL: hc.BaseURL()}, nil
}

func newMockRuntime() (*Runtime, error) {
	m := catalogmock.New()
	if path := strings.TrimSpace(os.Getenv(envMockSeed)); path != "" {
		seed, err := devseed.LoadCatalogSeed(path)
		if err != nil {
			return nil, fmt.Errorf("bookstore: load catalog seed: %w", err)
		}
		if err := m.Seed(seed); err != nil {
			return nil, fmt.Errorf("bookstore: apply catalog seed: %w", err)
		}
	}
	return &Runtime{Catalog: catalog.NewWithRepository(m), Mode: ModeMock, Mock: m}, nil
}
