package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	mw "github.com/bgribble/flopsy/middleware"
)

func setupTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetrics_RecordsDuration(t *testing.T) {
	reader, mp := setupTestMeter()
	meter := mp.Meter("test")
	m := mw.MetricsWithMeter(meter)
	s := newTestStore(t)

	_ = m(context.Background(), s, s.Set("x", 1), func(_ context.Context) error {
		return nil
	})

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "flopsy.dispatch.duration")
	if metric == nil {
		t.Fatal("flopsy.dispatch.duration metric not found")
	}

	hist, ok := metric.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("expected Histogram[float64] data type")
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("expected 1 data point, got %d", len(hist.DataPoints))
	}
	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("histogram count = %d, want 1", dp.Count)
	}
	if got, ok := dp.Attributes.Value(attribute.Key("status")); !ok || got.AsString() != "ok" {
		t.Errorf("status attribute = %v, want ok", got)
	}
	if got, ok := dp.Attributes.Value(attribute.Key("store_type")); !ok || got.AsString() != "canvas" {
		t.Errorf("store_type attribute = %v, want canvas", got)
	}
}

func TestMetrics_CountsErrors(t *testing.T) {
	reader, mp := setupTestMeter()
	meter := mp.Meter("test")
	m := mw.MetricsWithMeter(meter)
	s := newTestStore(t)

	_ = m(context.Background(), s, s.Set("x", 1), func(_ context.Context) error {
		return errors.New("boom")
	})

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "flopsy.dispatch.count")
	if metric == nil {
		t.Fatal("flopsy.dispatch.count metric not found")
	}

	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("expected Sum[int64] data type")
	}
	if len(sum.DataPoints) != 1 {
		t.Fatalf("expected 1 data point, got %d", len(sum.DataPoints))
	}
	dp := sum.DataPoints[0]
	if dp.Value != 1 {
		t.Errorf("counter value = %d, want 1", dp.Value)
	}
	if got, ok := dp.Attributes.Value(attribute.Key("status")); !ok || got.AsString() != "error" {
		t.Errorf("status attribute = %v, want error", got)
	}
}

func TestMetrics_PropagatesHandlerError(t *testing.T) {
	_, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))
	s := newTestStore(t)
	want := errors.New("boom")

	err := m(context.Background(), s, s.Set("x", 1), func(_ context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
