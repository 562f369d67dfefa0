package health

import "context"

// Status is the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the embedding provider is down but the store is up.
	Degraded Status = "degraded"
	// Unhealthy indicates the store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is an individual component check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil.
func New(store StorePinger, embedding EmbeddingChecker) *Service {
	return &Service{store: store, embedding: embedding}
}

// Check probes the store and the embedding provider. A store failure is fatal
// for search, so it reports Unhealthy; an embedding failure alone is Degraded
// since already-ingested data stays queryable by precomputed vectors.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	storeUp := s.store.Ping(ctx) == nil
	if storeUp {
		checks["store"] = CheckOK
	} else {
		checks["store"] = CheckError
	}

	embeddingUp := true
	if s.embedding != nil {
		embeddingUp = s.embedding.HealthCheck(ctx) == nil
		if embeddingUp {
			checks["embedding"] = CheckOK
		} else {
			checks["embedding"] = CheckError
		}
	}

	status := Healthy
	switch {
	case !storeUp:
		status = Unhealthy
	case !embeddingUp:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
