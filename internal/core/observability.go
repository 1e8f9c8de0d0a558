package core

import (
	"context"
	"time"
)

// MetricsRecorder aggregates operation outcomes for export.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan finalizes one traced operation.
type TraceSpan interface {
	End(err error)
}

// AuditRecorder captures an audit trail of service operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditStatus marks the outcome recorded in an audit entry.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// AuditEntry captures metadata for one service operation.
type AuditEntry struct {
	Operation  string      `json:"operation"`
	EntityID   string      `json:"entity_id,omitempty"`
	Status     AuditStatus `json:"status"`
	Detail     string      `json:"detail,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// ServiceOption customizes a Service at construction time.
type ServiceOption func(*Service)

// WithMetricsRecorder installs a metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder installs an audit recorder.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// instrument opens a span and returns the finish callback every service
// operation defers. The callback records metrics and the audit entry.
func (s *Service) instrument(ctx context.Context, operation, entityID string) (context.Context, func(error)) {
	started := time.Now().UTC()
	ctx, span := s.tracer.Start(ctx, operation)
	return ctx, func(err error) {
		duration := time.Since(started)
		span.End(err)
		s.metrics.Observe(ctx, operation, err == nil, duration)
		entry := AuditEntry{
			Operation:  operation,
			EntityID:   entityID,
			Status:     AuditStatusSuccess,
			OccurredAt: started,
		}
		if err != nil {
			entry.Status = AuditStatusFailure
			entry.Detail = err.Error()
		}
		s.audit.Record(ctx, entry)
	}
}
