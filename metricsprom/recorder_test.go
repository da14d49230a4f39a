package metricsprom

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetricFamily(t *testing.T, registry *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestRecorderIncCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)
	ctx := context.Background()

	recorder.IncCounter(ctx, "orderverify.ingest.total", 1, map[string]string{"outcome": "notified"})
	recorder.IncCounter(ctx, "orderverify.ingest.total", 2, map[string]string{"outcome": "notified"})
	recorder.IncCounter(ctx, "orderverify.ingest.total", 1, map[string]string{"outcome": "deduped"})

	family := findMetricFamily(t, registry, "orderverify_ingest_total")
	if family == nil {
		t.Fatalf("expected counter family to be registered")
	}
	if len(family.GetMetric()) != 2 {
		t.Fatalf("expected two label combinations, got %d", len(family.GetMetric()))
	}

	for _, metric := range family.GetMetric() {
		outcome := ""
		for _, label := range metric.GetLabel() {
			if label.GetName() == "outcome" {
				outcome = label.GetValue()
			}
		}
		switch outcome {
		case "notified":
			if metric.GetCounter().GetValue() != 3 {
				t.Fatalf("expected notified=3, got %v", metric.GetCounter().GetValue())
			}
		case "deduped":
			if metric.GetCounter().GetValue() != 1 {
				t.Fatalf("expected deduped=1, got %v", metric.GetCounter().GetValue())
			}
		default:
			t.Fatalf("unexpected outcome label %q", outcome)
		}
	}
}

func TestRecorderIgnoresNonPositiveCounts(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)

	recorder.IncCounter(context.Background(), "orderverify.noop.total", 0, nil)
	recorder.IncCounter(context.Background(), "orderverify.noop.total", -5, nil)

	if family := findMetricFamily(t, registry, "orderverify_noop_total"); family != nil {
		t.Fatalf("zero and negative increments must not register a metric")
	}
}

func TestRecorderObserveHistogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)
	ctx := context.Background()

	recorder.ObserveHistogram(ctx, "orderverify.ingest.duration_ms", 12.5, map[string]string{"outcome": "notified"})
	recorder.ObserveHistogram(ctx, "orderverify.ingest.duration_ms", 7.5, map[string]string{"outcome": "notified"})

	family := findMetricFamily(t, registry, "orderverify_ingest_duration_ms")
	if family == nil {
		t.Fatalf("expected histogram family to be registered")
	}
	metric := family.GetMetric()[0]
	if metric.GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected 2 samples, got %d", metric.GetHistogram().GetSampleCount())
	}
	if metric.GetHistogram().GetSampleSum() != 20 {
		t.Fatalf("expected sum=20, got %v", metric.GetHistogram().GetSampleSum())
	}
}

func TestSanitizeMetricName(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"orderverify.ingest.total", "orderverify_ingest_total"},
		{"already_clean", "already_clean"},
		{"9leading", "_leading"},
		{"mixed-CASE.name2", "mixed_CASE_name2"},
		{"  ", ""},
	}
	for _, tc := range cases {
		if got := sanitizeMetricName(tc.raw); got != tc.want {
			t.Fatalf("sanitizeMetricName(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestLabelKeysSorted(t *testing.T) {
	keys := labelKeys(map[string]string{"b": "2", "a": "1", "c": "3"})
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("expected sorted keys, got %v", keys)
	}
	if labelKeys(nil) != nil {
		t.Fatalf("expected nil for empty tags")
	}
}
