package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/decocache/decocache/pkg/config"
)

// initForTest resets global state and initializes a registry without the
// HTTP endpoint.
func initForTest(t *testing.T) {
	t.Helper()
	reset()
	if err := Init(config.MetricsConfig{Enabled: false}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(reset)
}

func TestInitIdempotent(t *testing.T) {
	initForTest(t)

	first := Registry()
	if err := Init(config.MetricsConfig{Enabled: false}); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if Registry() != first {
		t.Error("second Init() should not replace the registry")
	}
}

func TestNewCounterRequiresInit(t *testing.T) {
	reset()
	_, err := NewCounter(CounterOpts{Namespace: "test", Name: "x_total"})
	if err == nil {
		t.Fatal("NewCounter before Init should fail")
	}
}

func TestCounter(t *testing.T) {
	initForTest(t)

	c, err := NewCounter(CounterOpts{
		Namespace: "test",
		Subsystem: "decorator",
		Name:      "hits_total",
		Help:      "test",
		Labels:    []string{"cache"},
	})
	if err != nil {
		t.Fatalf("NewCounter() error = %v", err)
	}

	c.Inc("users")
	c.Add(2, "users")
	c.Inc("orders")

	if got := testutil.ToFloat64(c.WithLabelValues("users")); got != 3 {
		t.Errorf("users counter = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.WithLabelValues("orders")); got != 1 {
		t.Errorf("orders counter = %v, want 1", got)
	}
}

func TestGauge(t *testing.T) {
	initForTest(t)

	g, err := NewGauge(GaugeOpts{
		Namespace: "test",
		Subsystem: "events",
		Name:      "listeners_registered",
		Help:      "test",
		Labels:    []string{"cache"},
	})
	if err != nil {
		t.Fatalf("NewGauge() error = %v", err)
	}

	g.Set(5, "users")
	g.Inc("users")
	g.Dec("users")

	if got := testutil.ToFloat64(g.WithLabelValues("users")); got != 5 {
		t.Errorf("gauge = %v, want 5", got)
	}
}

func TestHistogram(t *testing.T) {
	initForTest(t)

	h, err := NewHistogram(HistogramOpts{
		Namespace: "test",
		Subsystem: "command",
		Name:      "duration_seconds",
		Help:      "test",
		Labels:    []string{"command"},
	})
	if err != nil {
		t.Fatalf("NewHistogram() error = %v", err)
	}

	h.Observe(0.01, "fetch")
	h.Observe(0.02, "fetch")

	count := testutil.CollectAndCount(Registry())
	if count == 0 {
		t.Error("expected registered histogram to be collectable")
	}
}

func TestDuplicateRegistration(t *testing.T) {
	initForTest(t)

	opts := CounterOpts{Namespace: "test", Name: "dup_total", Help: "test"}
	if _, err := NewCounter(opts); err != nil {
		t.Fatalf("first NewCounter() error = %v", err)
	}
	if _, err := NewCounter(opts); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestValidateMetricOpts(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		subsystem string
		metric    string
		labels    []string
		wantErr   string
	}{
		{"valid", "app", "sub", "ok_total", []string{"cache"}, ""},
		{"invalid metric name", "app", "", "bad-name", nil, "invalid metric name"},
		{"invalid label", "app", "", "ok_total", []string{"bad-label"}, "invalid label name"},
		{"reserved label", "app", "", "ok_total", []string{"__reserved"}, "reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMetricOpts(tt.namespace, tt.subsystem, tt.metric, tt.labels)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validateMetricOpts() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateMetricOpts() = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestInitStandardMetrics(t *testing.T) {
	initForTest(t)

	if err := InitStandardMetrics("decocache"); err != nil {
		t.Fatalf("InitStandardMetrics() error = %v", err)
	}
	// Idempotent
	if err := InitStandardMetrics("decocache"); err != nil {
		t.Fatalf("second InitStandardMetrics() error = %v", err)
	}

	if GetDecoratorHits() == nil || GetDecoratorMisses() == nil {
		t.Error("standard decorator counters should be available")
	}
	if GetCommandDuration() == nil || GetCommandCount() == nil {
		t.Error("standard command collectors should be available")
	}
	if GetEventsDispatched() == nil || GetListenersDetached() == nil {
		t.Error("standard event collectors should be available")
	}

	GetDecoratorHits().Inc("users")
	if got := testutil.ToFloat64(GetDecoratorHits().WithLabelValues("users")); got != 1 {
		t.Errorf("hits counter = %v, want 1", got)
	}
}
