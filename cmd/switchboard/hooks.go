package main

import (
	"log/slog"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// observabilityHooks logs the engine lifecycle.
func observabilityHooks(logger *slog.Logger) domain.LifecycleHooks {
	return observability.LoggingHooks(logger)
}

// newRegistry builds a Prometheus registry with the process collectors and
// the engine metrics, and returns the hooks that feed it merged with logging.
func newRegistry(logger *slog.Logger) (*prometheus.Registry, domain.LifecycleHooks, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, domain.LifecycleHooks{}, err
	}
	return reg, domain.MergeHooks(metrics.Hooks(), observabilityHooks(logger)), nil
}
