// Package health checks whether the console can do its job: the backend
// answers, the session holds a live token, the circuit breaker is closed and
// the query cache is not thrashing.
//
// Checkers are registered with an Aggregator, which runs them concurrently,
// each under its own timeout:
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register(
//	    health.NewBackendChecker(baseURL, hc, 0),
//	    health.NewSessionChecker(session, 0),
//	    health.NewGuardChecker(guard),
//	    health.NewCacheChecker(exec),
//	)
//	_ = agg.Report(ctx).WriteJSON(os.Stdout)
//
// The overall status is the worst of the individual results.
package health
