package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// AuthzMetrics counts authorization pipeline decisions through an OpenTelemetry meter
// exported into a Prometheus registry.
type AuthzMetrics struct {
	provider  *sdkmetric.MeterProvider
	decisions otelmetric.Int64Counter
}

// NewAuthzMetrics wires an OTel meter provider whose reader exports into registerer.
func NewAuthzMetrics(registerer prometheus.Registerer) (*AuthzMetrics, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registerer), otelprom.WithoutScopeInfo())
	if err != nil {
		return nil, fmt.Errorf("observability: prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("campus-erp/rbac")
	decisions, err := meter.Int64Counter("campus_authz_decisions",
		otelmetric.WithDescription("Authorization decisions by pipeline stage and outcome"))
	if err != nil {
		return nil, fmt.Errorf("observability: authz counter: %w", err)
	}
	return &AuthzMetrics{provider: provider, decisions: decisions}, nil
}

// RecordDecision counts one decision.
func (m *AuthzMetrics) RecordDecision(ctx context.Context, stage, outcome string) {
	if m == nil {
		return
	}
	m.decisions.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}

// Shutdown flushes and releases the meter provider.
func (m *AuthzMetrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
