// mockserver is a small upload server wiring the bodylimit middleware from
// yaml config, used for manual and integration testing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omalloc/limitio"
	"github.com/omalloc/limitio/conf"
	"github.com/omalloc/limitio/contrib/config"
	"github.com/omalloc/limitio/contrib/config/provider/file"
	"github.com/omalloc/limitio/metrics"
	"github.com/omalloc/limitio/middleware"
	_ "github.com/omalloc/limitio/middleware/bodylimit"
)

var flagConf string

func init() {
	flag.StringVar(&flagConf, "c", "config.yaml", "config file path")

	log.SetPrefix(fmt.Sprintf("mockserver(%d): ", os.Getpid()))
}

func main() {
	flag.Parse()

	c := config.New[conf.Bootstrap](config.WithSource(file.NewSource(flagConf)))
	defer c.Close()

	bc := conf.Default()
	if err := c.Scan(bc); err != nil {
		log.Fatal(err)
	}

	logger, flush := newLogger(bc.Logger)
	defer flush()
	zap.ReplaceGlobals(logger)

	handler, cleanups, err := newHandler(bc.Server)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	srv := &http.Server{
		Addr:              bc.Server.Addr,
		Handler:           handler,
		ReadTimeout:       bc.Server.ReadTimeout,
		WriteTimeout:      bc.Server.WriteTimeout,
		IdleTimeout:       bc.Server.IdleTimeout,
		ReadHeaderTimeout: bc.Server.ReadHeaderTimeout,
		MaxHeaderBytes:    bc.Server.MaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

func newHandler(sc *conf.Server) (http.Handler, []func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if errors.Is(err, limitio.ErrLengthExceeded) {
			metric := metrics.FromContext(r.Context())
			http.Error(w, fmt.Sprintf("body exceeds %d bytes", metric.LimitBytes), http.StatusRequestEntityTooLarge)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "received %d bytes\n", len(data))
	})

	chain := make([]middleware.Middleware, 0, len(sc.Middleware))
	cleanups := make([]func(), 0, len(sc.Middleware))
	for _, mc := range sc.Middleware {
		mw, cleanup, err := middleware.Create(mc)
		if err != nil {
			return nil, cleanups, err
		}
		chain = append(chain, mw)
		if cleanup != nil {
			cleanups = append(cleanups, cleanup)
		}
	}

	return middleware.Chain(chain...)(mux), cleanups, nil
}

func newLogger(opt *conf.Logger) (*zap.Logger, func()) {
	level, err := zap.ParseAtomicLevel(opt.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if opt.Path == "" {
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		logger, _ := cfg.Build()
		return logger, func() { _ = logger.Sync() }
	}

	logger := zap.New(newRotateCore(opt, level))
	return logger, func() { _ = logger.Sync() }
}
