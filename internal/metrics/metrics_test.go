package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRecordPlacement(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordPlacement(ctx, ResultSuccess, 0.02)
	m.RecordPlacement(ctx, ResultSuccess, 0.03)
	m.RecordPlacement(ctx, ResultInsufficientStock, 0.01)
	m.RecordReservationFailures(ctx, 2)
	m.RecordReservationFailures(ctx, 0)

	got := collect(t, reader)

	placed, ok := got["orders_placed_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64]")
	byResult := map[string]int64{}
	for _, dp := range placed.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("result"))
		byResult[v.AsString()] = dp.Value
	}
	assert.Equal(t, int64(2), byResult[ResultSuccess])
	assert.Equal(t, int64(1), byResult[ResultInsufficientStock])

	failures, ok := got["stock_reservation_failures_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, failures.DataPoints, 1)
	assert.Equal(t, int64(2), failures.DataPoints[0].Value)

	hist, ok := got["order_placement_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)
}

func TestInitialize_WithReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	tel, err := Initialize(context.Background(), TelemetryConfig{ServiceName: "motoparts", ServiceVersion: "test"}, WithReader(reader))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	m, err := NewMetrics(tel.Meter("orders"))
	require.NoError(t, err)
	m.RecordPlacement(context.Background(), ResultError, 0.5)

	assert.Contains(t, collect(t, reader), "orders_placed_total")
}

func TestInitialize_RequiresServiceName(t *testing.T) {
	_, err := Initialize(context.Background(), TelemetryConfig{})
	assert.ErrorIs(t, err, ErrMissingServiceName)
}

func TestNewNoop(t *testing.T) {
	m := NewNoop()
	require.NotNil(t, m)
	m.RecordPlacement(context.Background(), ResultSuccess, 1)
}
