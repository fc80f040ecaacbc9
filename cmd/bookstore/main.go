package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joshuaai/book-store/internal/frontend"
	"github.com/joshuaai/book-store/internal/logging"
	"github.com/joshuaai/book-store/internal/telemetry"
	"github.com/joshuaai/book-store/pkg/bookstore"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger, err := logging.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.ConfigFromEnv("bookstore"))
	if err != nil {
		logger.Error("telemetry setup", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	rt, err := bookstore.NewFromEnv(bookstore.WithLogger(logger))
	if err != nil {
		logger.Error("bookstore runtime", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           frontend.New(rt.Store, rt.Actions, frontend.WithLogger(logger)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("bookstore listening", "addr", *addr, "mode", rt.Mode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
