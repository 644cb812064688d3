/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/Seednode/werewolf-replay"

// Metrics counts what rooms do. The zero value is usable and records nothing.
type Metrics struct {
	loads       metric.Int64Counter
	transitions metric.Int64Counter
	rooms       metric.Int64UpDownCounter
	provider    *sdkmetric.MeterProvider
}

// newMetrics wires an OpenTelemetry meter to its own Prometheus registry and
// returns the handler that serves it.
func newMetrics() (*Metrics, http.Handler, error) {
	reg := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	m := provider.Meter(meterName)

	met := &Metrics{provider: provider}

	if met.loads, err = m.Int64Counter("replay.transcript.loads",
		metric.WithDescription("Transcript loads by outcome."),
	); err != nil {
		return nil, nil, err
	}

	if met.transitions, err = m.Int64Counter("replay.playback.transitions",
		metric.WithDescription("Playback state changes by kind."),
	); err != nil {
		return nil, nil, err
	}

	if met.rooms, err = m.Int64UpDownCounter("replay.rooms.open",
		metric.WithDescription("Rooms currently open."),
	); err != nil {
		return nil, nil, err
	}

	return met, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

func (m *Metrics) Load(outcome string) {
	if m == nil || m.loads == nil {
		return
	}
	m.loads.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) Transition(kind string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RoomOpened() {
	if m == nil || m.rooms == nil {
		return
	}
	m.rooms.Add(context.Background(), 1)
}

func (m *Metrics) RoomClosed() {
	if m == nil || m.rooms == nil {
		return
	}
	m.rooms.Add(context.Background(), -1)
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
