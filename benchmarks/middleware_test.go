package benchmarks

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"topcompras/waf"
	"topcompras/waf/bodylimits"
	"topcompras/waf/cors"
	"topcompras/waf/guard"
	"topcompras/waf/headers"
	"topcompras/waf/requestid"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"vendas":{},"total":0}`))
})

// steadyGuard moves its clock 4s per decision, so one identity stays
// under every limit and the benchmark measures the admit path
func steadyGuard() *guard.Guard {
	var ticks atomic.Int64
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		return start.Add(time.Duration(ticks.Add(1)) * 4 * time.Second)
	}
	return guard.New(guard.DefaultConfig(), guard.WithClock(clock))
}

func request() *http.Request {
	req := httptest.NewRequest("GET", "/api/vendas", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.1")
	return req
}

// Baseline: no middleware
func BenchmarkNoMiddleware(b *testing.B) {
	req := request()
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		okHandler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func BenchmarkRequestIDMiddleware(b *testing.B) {
	handler := requestid.Middleware(okHandler)
	req := request()
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func BenchmarkGuardMiddleware(b *testing.B) {
	handler := guard.Middleware(steadyGuard())(okHandler)
	req := request()
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

// Rejections are cheaper than admits; this covers a flooding client
func BenchmarkGuardRejecting(b *testing.B) {
	g := guard.New(guard.DefaultConfig())
	handler := guard.Middleware(g)(okHandler)
	req := request()
	for i := 0; i < 100; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func fullStack(g *guard.Guard) http.Handler {
	limits := bodylimits.NewLimiter(bodylimits.Config{})
	c := cors.NewHandler(cors.Config{Enabled: true, AllowedHosts: []string{"top-compras.netlify.app"}})
	return requestid.Middleware(
		headers.Secure("").Middleware(
			c.Middleware(
				limits.Middleware(
					guard.Middleware(g)(
						waf.Inspect(g)(okHandler))))))
}

func BenchmarkFullMiddlewareStack(b *testing.B) {
	handler := fullStack(steadyGuard())
	req := request()
	req.Header.Set("Origin", "https://top-compras.netlify.app")
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

// Many identities contending for the guard mutex
func BenchmarkFullStackParallel(b *testing.B) {
	handler := fullStack(steadyGuard())
	var next atomic.Int64
	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		n := next.Add(1)
		req := httptest.NewRequest("GET", "/api/vendas", nil)
		req.Header.Set("X-Forwarded-For", "10.0."+strconv.FormatInt(n/256%256, 10)+"."+strconv.FormatInt(n%256, 10))
		for pb.Next() {
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}
	})
}
