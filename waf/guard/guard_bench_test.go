package guard

import (
	"strconv"
	"testing"
	"time"
)

func BenchmarkEvaluateIdentity(b *testing.B) {
	g, clock, _ := newTestGuard(DefaultConfig())
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		clock.Advance(4 * time.Second)
		g.EvaluateIdentity("203.0.113.1")
	}
}

// a full ledger: every check scans HourLimit timestamps
func BenchmarkEvaluateSaturated(b *testing.B) {
	g, clock, _ := newTestGuard(DefaultConfig())
	for i := 0; i < 999; i++ {
		clock.Advance(3 * time.Second)
		g.EvaluateIdentity("203.0.113.1")
	}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.EvaluateIdentity("203.0.113.1")
	}
}

func BenchmarkEvaluateManyIdentities(b *testing.B) {
	g, _, _ := newTestGuard(DefaultConfig())
	ids := make([]string, 4096)
	for i := range ids {
		ids[i] = "10.0." + strconv.Itoa(i/256) + "." + strconv.Itoa(i%256)
	}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.EvaluateIdentity(ids[i%len(ids)])
	}
}

func BenchmarkIsBlocked(b *testing.B) {
	g, _, _ := newTestGuard(DefaultConfig())
	for i := 0; i < 5; i++ {
		g.RecordSuspicious("203.0.113.66", SuspicionInput)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.IsBlocked("203.0.113.66")
	}
}
