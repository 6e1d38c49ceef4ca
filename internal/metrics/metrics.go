package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Placement results.
const (
	ResultSuccess           = "success"
	ResultInsufficientStock = "insufficient_stock"
	ResultInvalid           = "invalid"
	ResultError             = "error"
)

type Metrics struct {
	ordersPlacedTotal     metric.Int64Counter
	reservationFailures   metric.Int64Counter
	orderPlacementSeconds metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersPlacedTotal, err = meter.Int64Counter(
		"orders_placed_total",
		metric.WithDescription("Order placement attempts by result"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_placed_total counter: %w", err)
	}

	m.reservationFailures, err = meter.Int64Counter(
		"stock_reservation_failures_total",
		metric.WithDescription("Line items that could not be reserved for lack of stock"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stock_reservation_failures_total counter: %w", err)
	}

	m.orderPlacementSeconds, err = meter.Float64Histogram(
		"order_placement_duration_seconds",
		metric.WithDescription("Duration of order placement including reservations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_placement_duration histogram: %w", err)
	}

	return m, nil
}

// NewNoop returns metrics that record nothing.
func NewNoop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

func (m *Metrics) RecordPlacement(ctx context.Context, result string, durationSeconds float64) {
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.ordersPlacedTotal.Add(ctx, 1, attrs)
	m.orderPlacementSeconds.Record(ctx, durationSeconds, attrs)
}

func (m *Metrics) RecordReservationFailures(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.reservationFailures.Add(ctx, int64(n))
}
