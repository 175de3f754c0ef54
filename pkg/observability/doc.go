/*
Package observability turns engine lifecycle hooks into Prometheus metrics
and structured log records.

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	eng := switchboard.New(switchboard.WithLifecycleHooks(domain.MergeHooks(
		metrics.Hooks(),
		observability.LoggingHooks(logger),
	)))
*/
package observability
