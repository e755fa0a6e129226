package journal

import (
	"context"

	"github.com/nahida-ai/nahida/internal/metrics"
	"github.com/nahida-ai/nahida/internal/middleware"
	inats "github.com/nahida-ai/nahida/internal/nats"
)

const (
	sinkNATS     = "nats"
	sinkPostgres = "postgres"
)

// RunPublisher is implemented by *nats.Publisher.
type RunPublisher interface {
	PublishRunEvent(ctx context.Context, event inats.RunEvent) error
}

// PublishingRecorder hands runs to NATS; the Consumer persists them.
type PublishingRecorder struct {
	pub RunPublisher
}

func NewPublishingRecorder(pub RunPublisher) *PublishingRecorder {
	return &PublishingRecorder{pub: pub}
}

func (r *PublishingRecorder) Record(ctx context.Context, run Run) error {
	stampRequestID(ctx, &run)
	err := r.pub.PublishRunEvent(ctx, EventFromRun(run))
	observe(sinkNATS, err)
	return err
}

// StoreRecorder writes runs directly, for deployments without NATS.
type StoreRecorder struct {
	store Store
}

func NewStoreRecorder(store Store) *StoreRecorder {
	return &StoreRecorder{store: store}
}

func (r *StoreRecorder) Record(ctx context.Context, run Run) error {
	stampRequestID(ctx, &run)
	err := r.store.Insert(ctx, &run)
	observe(sinkPostgres, err)
	return err
}

func stampRequestID(ctx context.Context, run *Run) {
	if run.RequestID == "" {
		run.RequestID = middleware.RequestIDFromContext(ctx)
	}
}

func observe(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.RunsRecordedTotal.WithLabelValues(sink, result).Inc()
}
