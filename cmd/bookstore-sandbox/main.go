package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshuaai/book-store/internal/devseed"
	"github.com/joshuaai/book-store/internal/logging"
	"github.com/joshuaai/book-store/internal/sandbox"
	"github.com/joshuaai/book-store/pkg/catalog"
	catalogmock "github.com/joshuaai/book-store/pkg/catalog/mock"
	"github.com/joshuaai/book-store/pkg/catalog/pgstore"
)

const apiURLEnv = "BOOKSTORE_API_URL"

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	prefix := flag.String("prefix", "/api", "path prefix for the REST collections")
	seed := flag.String("seed", "", "path to JSON seed for the in-memory catalog")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	uuidIDs := flag.Bool("uuid-ids", false, "assign UUIDs instead of sequential ids")
	dsn := flag.String("postgres-dsn", "", "store collections in PostgreSQL instead of memory")
	flag.Parse()

	logger, err := logging.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	failCfg, err := sandbox.ParseFailConfig(*fail)
	if err != nil {
		logger.Error("parse fail flag", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo catalog.Repository
	if *dsn != "" {
		pool, err := pgxpool.New(ctx, *dsn)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg, err := pgstore.New(pool, pgstore.WithLogger(logger))
		if err != nil {
			logger.Error("init postgres store", "error", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		if *seed != "" {
			logger.Warn("seed file ignored with -postgres-dsn", "seed", *seed)
		}
		repo = pg
	} else {
		var opts []catalogmock.Option
		if *uuidIDs {
			opts = append(opts, catalogmock.WithIDGenerator(func(string) string { return uuid.NewString() }))
		}
		m := catalogmock.New(opts...)
		if *seed != "" {
			entries, err := devseed.LoadCatalogSeed(*seed)
			if err != nil {
				logger.Error("load catalog seed", "error", err)
				os.Exit(1)
			}
			if err := m.Seed(entries); err != nil {
				logger.Error("apply catalog seed", "error", err)
				os.Exit(1)
			}
		}
		repo = m
	}

	server := &http.Server{
		Addr: *addr,
		Handler: sandbox.NewHandler(repo, sandbox.Config{
			Prefix:  *prefix,
			Latency: *latency,
			Fail:    failCfg,
			Logger:  logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("bookstore-sandbox listening", "addr", *addr, "prefix", *prefix)
	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Println()
	fmt.Println("export BOOKSTORE_RUNTIME_MODE=http")
	fmt.Printf("export %s=http://%s/%s\n", apiURLEnv, host, strings.Trim(*prefix, "/"))
	fmt.Println()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
