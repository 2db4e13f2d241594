package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/evenly/internal/amqp"
	"github.com/mmynk/evenly/internal/config"
	"github.com/mmynk/evenly/internal/events"
	"github.com/mmynk/evenly/internal/ingest"
	"github.com/mmynk/evenly/internal/itemizer"
	"github.com/mmynk/evenly/internal/ledger"
	"github.com/mmynk/evenly/internal/metrics"
	"github.com/mmynk/evenly/internal/middleware"
	"github.com/mmynk/evenly/internal/service"
	"github.com/mmynk/evenly/internal/storage"
	"github.com/mmynk/evenly/internal/storage/memory"
	"github.com/mmynk/evenly/internal/storage/sqlite"
	"github.com/mmynk/evenly/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()

	l := ledger.New()
	if err := storage.Load(ctx, store, l); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	slog.Info("Ledger loaded", "backend", cfg.StoreBackend, "receipts", l.ReceiptCount())

	publisher, err := openPublisher(cfg)
	if err != nil {
		return fmt.Errorf("initialize event publisher: %w", err)
	}
	defer publisher.Close()

	m := metrics.New()
	it := itemizer.New()

	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(),
		middleware.MetricsInterceptor(m),
	)

	mux := http.NewServeMux()
	mux.Handle(service.NewLedgerServiceHandler(service.NewLedgerService(service.LedgerDeps{
		Ledger:    l,
		Itemizer:  it,
		Store:     store,
		Publisher: publisher,
		Observer:  m,
	}), interceptors))
	mux.Handle(service.NewItemizerServiceHandler(service.NewItemizerService(it), interceptors))
	mux.Handle(service.NewParserServiceHandler(service.NewParserService(ingest.Parser{}), interceptors))
	mux.Handle(cfg.MetricsPath, m.Handler())

	// h2c serves HTTP/2 without TLS, which Connect clients expect.
	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: h2c.NewHandler(middleware.Logging(middleware.CORS(mux)), &http2.Server{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", server.Addr, "url", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.StoreBackend == config.BackendSQLite {
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "database", cfg.DBPath)
		return store, nil
	}
	return memory.New(), nil
}

func openPublisher(cfg config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		slog.Info("AMQP_URL not set, ledger events are disabled")
		return events.Nop{}, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		return nil, err
	}
	slog.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
	return client, nil
}
