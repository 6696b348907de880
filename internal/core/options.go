package core

import (
	"ifcquery/internal/blob"
	"ifcquery/internal/engine"
	"ifcquery/internal/persistence"

	"github.com/google/uuid"
)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clock ClockFunc) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithSessionOptions sets the resolver policy used for every loaded model.
func WithSessionOptions(opts engine.Options) Option {
	return func(s *Service) {
		s.sessionOpts = opts
	}
}

// WithSnapshotStore persists a resolved snapshot of every loaded model.
func WithSnapshotStore(store persistence.Store) Option {
	return func(s *Service) {
		s.snapshots = store
	}
}

// WithBlobStore keeps the uploaded graph document of every loaded model so
// models survive a restart.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) {
		s.blobs = store
	}
}

// WithIDGenerator overrides model id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func newUUID() string { return uuid.NewString() }
