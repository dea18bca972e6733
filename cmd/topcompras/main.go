// Command topcompras serves the TOP COMPRAS storefront API behind the
// abuse guard.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"topcompras/config"
	"topcompras/handlers"
	"topcompras/storefront/blob"
	"topcompras/storefront/catalog"
	"topcompras/storefront/feedback"
	"topcompras/storefront/live"
	"topcompras/storefront/prices"
	"topcompras/storefront/sales"
	"topcompras/waf/auth"
	"topcompras/waf/guard"
	"topcompras/waf/http3"
	"topcompras/waf/logging"
	"topcompras/waf/publisher"
	"topcompras/waf/reload"
	"topcompras/waf/rules"
	"topcompras/waf/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logFile := logging.Setup(cfg.Log)
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := blob.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.Store.Backend, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[STORE] close: %v", err)
		}
	}()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	hub := live.NewHub(live.Config{Debounce: cfg.LiveDebounce, AllowedHosts: cfg.CORSHosts})
	go hub.Run(ctx)

	ruleSet, err := rules.Load(cfg.RulesFile)
	if err != nil {
		log.Fatalf("failed to load guard rules: %v", err)
	}

	opts := []guard.Option{
		guard.WithRules(ruleSet),
		guard.WithListener(guard.LogListener),
	}

	if cfg.GuardLog.Enabled {
		events, err := guard.NewEventLogger(cfg.GuardLog, cfg.Guard)
		if err != nil {
			log.Printf("[GUARD] event log unavailable: %v", err)
		} else {
			defer events.Close()
			opts = append(opts, guard.WithListener(events.Handle))
		}
	}

	if cfg.Webhook.Enabled {
		notifier := webhook.NewNotifier(cfg.Webhook)
		defer notifier.Wait()
		opts = append(opts, guard.WithListener(notifier.Handle))
	}

	if cfg.Publisher.URL != "" {
		pub, err := publisher.New(cfg.Publisher)
		if err != nil {
			// the storefront keeps serving without the broker
			log.Printf("[PUBLISHER] disabled: %v", err)
		} else {
			defer pub.Close()
			opts = append(opts, guard.WithListener(pub.Handle))
		}
	}

	g := guard.New(cfg.Guard, opts...)

	admin, err := auth.NewAdmin(cfg.Admin, g)
	if err != nil {
		log.Fatalf("failed to configure admin login: %v", err)
	}
	admin.Throttle().StartJanitor(ctx, 10*time.Minute)
	if !admin.Enabled() {
		log.Println("[AUTH] ADMIN_PASSWORD_HASH not set, admin writes are open and /api/admin/guard is local only")
	}

	reloadMgr, err := reload.NewManager(reload.Config{WatchEnabled: cfg.ReloadWatch})
	if err != nil {
		log.Printf("[RELOAD] hot reload unavailable: %v", err)
	} else {
		defer reloadMgr.Stop()
		registerReload(reloadMgr, reload.Target{Name: "guard rules", Path: ruleSet.Path(), Reload: ruleSet.Reload})
		reloadMgr.WatchSignals(ctx)
	}

	priceSvc := prices.New(store, hub)
	api := &handlers.API{
		Sales:    sales.New(store, hub, sales.WithCategories(cat)),
		Prices:   priceSvc,
		Feedback: feedback.New(store, hub),
		Catalog:  cat,
		Checkout: catalog.NewCheckout(cat, priceSvc, cfg.Checkout),
		Admin:    admin,
		Guard:    g,
		Rules:    ruleSet,
	}

	srv := &server{
		api:           api,
		admin:         admin,
		guard:         g,
		hub:           hub,
		store:         store,
		reload:        reloadMgr,
		allowedDomain: cfg.AllowedDomain,
		corsHosts:     cfg.CORSHosts,
		corsEnabled:   cfg.CORSEnabled,
	}

	h3 := http3.NewServer(cfg.HTTP3)
	if cfg.HTTP3.Enabled {
		srv.altSvc = cfg.HTTP3.Addr
	}
	handler := srv.routes()
	if err := h3.Start(handler); err != nil {
		log.Printf("[HTTP/3] failed to start: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SERVER] TOP COMPRAS %s listening on %s (%d products, %d categories)",
			version, httpSrv.Addr, len(cat.Produtos), len(cat.Categorias))
		if err := httpSrv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("[SERVER] shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[SERVER] %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	if err := h3.Stop(shutdownCtx); err != nil {
		log.Printf("[HTTP/3] shutdown: %v", err)
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[SERVER] graceful shutdown failed: %v", err)
	}
}

// registerReload adds a hot reload target. A watcher failure leaves the
// target reachable through SIGHUP and /reload.
func registerReload(m *reload.Manager, t reload.Target) bool {
	if err := m.Register(t); err != nil {
		log.Printf("[RELOAD] %s will only reload on SIGHUP or /reload: %v", t.Name, err)
		return false
	}
	return true
}
