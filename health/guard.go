package health

import (
	"context"

	"github.com/jonwraymond/storeadmin/resilience"
)

// GuardSource reports request guard state. *resilience.Executor implements
// it.
type GuardSource interface {
	Snapshot() resilience.Snapshot
}

// GuardChecker maps the circuit breaker state onto a status: open is
// unhealthy, half-open degraded.
type GuardChecker struct {
	source GuardSource
}

func NewGuardChecker(source GuardSource) *GuardChecker {
	return &GuardChecker{source: source}
}

func (g *GuardChecker) Name() string { return "guard" }

func (g *GuardChecker) Check(context.Context) Result {
	snap := g.source.Snapshot()
	details := map[string]any{}
	if snap.Bulkhead != nil {
		details["bulkhead"] = snap.Bulkhead
	}
	if snap.Tokens != nil {
		details["rate_tokens"] = *snap.Tokens
	}
	if snap.Circuit == nil {
		return Healthy("no circuit breaker").WithDetails(details)
	}
	details["circuit"] = snap.Circuit.State.String()
	details["failures"] = snap.Circuit.Failures

	switch snap.Circuit.State {
	case resilience.StateOpen:
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit half-open").WithDetails(details)
	}
	return Healthy("circuit closed").WithDetails(details)
}
