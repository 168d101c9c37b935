// Package app wires the storefront components into an HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/cartcraft/internal/catalog"
	"github.com/xenking/cartcraft/internal/domain/cart"
	"github.com/xenking/cartcraft/internal/domain/checkout"
	"github.com/xenking/cartcraft/internal/domain/order"
	"github.com/xenking/cartcraft/internal/domain/pricing"
	"github.com/xenking/cartcraft/internal/domain/product"
	"github.com/xenking/cartcraft/internal/handler"
	"github.com/xenking/cartcraft/internal/storage"
	"github.com/xenking/cartcraft/pkg/health"
	"github.com/xenking/cartcraft/pkg/httpmiddleware"
)

func loadCatalog(path string) (product.Catalog, error) {
	if path == "" {
		return catalog.Sample()
	}
	return catalog.Load(path)
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Backend),
	)

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	be, err := openStorage(ctx, cfg.Storage, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Close(); err != nil {
			lg.Error("Close storage", zap.Error(err))
		}
	}()
	kv := be.Store

	// Health check service.
	healthSvc := health.New()
	if p, ok := kv.(storage.Pinger); ok {
		healthSvc.Register(health.Readiness, "storage", health.Ping(p), health.WithTimeout(5*time.Second))
	}
	healthSvc.Register(health.Liveness, "goroutines", health.MaxGoroutines(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Domain components.
	carts := cart.NewStore(ctx, kv, lg.Named("cart"))
	session := checkout.NewSessionStore(ctx, kv, lg.Named("checkout"),
		checkout.WithCardMasking(cfg.Checkout.MaskCardNumbers),
	)
	ledgerOpts := []order.LedgerOption{}
	if be.Index != nil {
		ledgerOpts = append(ledgerOpts, order.WithIndex(be.Index))
	}
	ledger := order.NewLedger(ctx, kv, lg.Named("ledger"), ledgerOpts...)
	svc, err := order.NewService(carts, session, ledger, pricing.NewCalculator(pricing.DefaultRules()), lg.Named("checkout"),
		order.WithCatalog(cat),
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}
	lg.Info("State loaded",
		zap.Int("cart_items", carts.Get(ctx).TotalItems),
		zap.Int("orders", ledger.Count(ctx)),
	)

	// HTTP handlers.
	h, err := handler.New(handler.Deps{
		Catalog:  cat,
		Carts:    carts,
		Session:  session,
		Ledger:   ledger,
		Checkout: svc,
	}, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	cors := httpmiddleware.DefaultCORSPolicy()
	cors.Origins = cfg.CORS.Origins
	cors.MaxAge = cfg.CORS.MaxAge

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(cors),
			httpmiddleware.Instrument("cartcraft-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
