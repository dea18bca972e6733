package http3

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

type Config struct {
	Enabled     bool
	Addr        string // UDP listen address, default ":443"
	CertFile    string
	KeyFile     string
	MaxStreams  int64
	IdleTimeout time.Duration
}

// Server runs the storefront over QUIC next to the TCP listener
type Server struct {
	config     Config
	server     *http3.Server
	quicConfig *quic.Config
	mu         sync.RWMutex
	running    bool
}

func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":443"
	}
	if cfg.MaxStreams == 0 {
		cfg.MaxStreams = 100
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 30 * time.Second
	}

	return &Server{
		config: cfg,
		quicConfig: &quic.Config{
			MaxIncomingStreams:    cfg.MaxStreams,
			MaxIdleTimeout:        cfg.IdleTimeout,
			KeepAlivePeriod:       15 * time.Second,
			MaxIncomingUniStreams: 10,
		},
	}
}

// Start loads the certificate and serves handler in the background
func (s *Server) Start(handler http.Handler) error {
	if !s.config.Enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	cert, err := tls.LoadX509KeyPair(s.config.CertFile, s.config.KeyFile)
	if err != nil {
		return fmt.Errorf("http3: load certificate: %w", err)
	}

	s.server = &http3.Server{
		Addr:    s.config.Addr,
		Handler: handler,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS13,
			NextProtos:   []string{"h3"},
		},
		QUICConfig: s.quicConfig,
	}
	s.running = true

	go func() {
		log.Printf("[HTTP/3] listening on %s", s.config.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[HTTP/3] server error: %v", err)
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	log.Println("[HTTP/3] shutting down")
	err := s.server.Close()
	s.running = false
	return err
}

func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// AltSvcValue renders the Alt-Svc header for a listen address
func AltSvcValue(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		port = "443"
	}
	return fmt.Sprintf(`h3=":%s"; ma=2592000`, port)
}

// AltSvcMiddleware advertises the HTTP/3 endpoint on TCP responses
func AltSvcMiddleware(addr string) func(http.Handler) http.Handler {
	value := AltSvcValue(addr)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Alt-Svc", value)
			next.ServeHTTP(w, r)
		})
	}
}
