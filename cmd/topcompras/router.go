package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"topcompras/handlers"
	"topcompras/storefront/blob"
	"topcompras/storefront/live"
	"topcompras/waf"
	"topcompras/waf/auth"
	"topcompras/waf/bodylimits"
	"topcompras/waf/cache"
	"topcompras/waf/compression"
	"topcompras/waf/cors"
	"topcompras/waf/guard"
	"topcompras/waf/headers"
	"topcompras/waf/health"
	"topcompras/waf/http3"
	"topcompras/waf/reload"
	"topcompras/waf/requestid"
	"topcompras/waf/respond"
)

const version = "1.0.0"

// server holds everything the router mounts
type server struct {
	api    *handlers.API
	admin  *auth.Admin
	guard  *guard.Guard
	hub    *live.Hub
	store  blob.Store
	reload *reload.Manager // nil when hot reload could not start

	allowedDomain string
	corsHosts     []string
	corsEnabled   bool
	altSvc        string // HTTP/3 listen address to advertise, empty when off
}

// routeLabel names requests by their chi pattern so metrics stay bounded
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requestid.Logger(routeLabel))
	r.Use(handlers.Recover)
	if s.altSvc != "" {
		r.Use(http3.AltSvcMiddleware(s.altSvc))
	}

	// operational endpoints skip the storefront stack
	r.Get("/health", health.Handler(health.Options{
		Version: version,
		Guard:   s.guard.Stats,
		Store: func(req *http.Request) error {
			return s.store.Ping(req.Context())
		},
	}))
	r.Group(func(r chi.Router) {
		r.Use(waf.LocalhostOnly)
		r.Handle("/metrics", promhttp.Handler())
		if s.reload != nil {
			r.Post("/reload", s.reload.Handler)
			r.Get("/reload/status", s.reload.StatusHandler)
		}
	})

	limits := bodylimits.NewLimiter(bodylimits.Config{
		GlobalLimit: bodylimits.DefaultLimit,
		PathLimits:  map[string]int64{"/api/admin/login": 4096},
	})
	gzip := compression.NewHandler(compression.Config{Enabled: true})

	r.Group(func(r chi.Router) {
		// The guard sits ahead of every layer that can answer on its own,
		// so preflights and rejected requests are counted and blocked too.
		r.Use(headers.Secure(s.allowedDomain).Middleware)
		r.Use(guard.Middleware(s.guard))
		r.Use(waf.Inspect(s.guard))
		r.Use(cache.NewHandler(cache.Config{Enabled: true, Rules: cache.StorefrontRules()}).Middleware)
		r.Use(cors.NewHandler(cors.Config{Enabled: s.corsEnabled, AllowedHosts: s.corsHosts}).Middleware)
		r.Use(limits.Middleware)

		r.HandleFunc("/api/vendas", s.api.Vendas)
		r.HandleFunc("/api/precos", s.api.Precos)
		r.HandleFunc("/api/feedbacks", s.api.Feedbacks)
		r.Handle("/api/produtos", gzip.Handle(http.HandlerFunc(s.api.Produtos)))
		r.HandleFunc("/checkout", s.api.CheckoutRedirect)
		r.Handle("/api/live", s.hub)
		r.HandleFunc("/api/admin/login", s.admin.Login)

		adminOnly := s.admin.RequireAdmin
		if !s.admin.Enabled() {
			adminOnly = waf.LocalhostOnly
		}
		r.With(adminOnly).HandleFunc("/api/admin/guard", s.api.AdminGuard)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respond.Error(w, http.StatusNotFound, "Rota não encontrada", "")
	})
	return r
}
