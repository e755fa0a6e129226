package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahida-ai/nahida/internal/middleware"
	inats "github.com/nahida-ai/nahida/internal/nats"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []inats.RunEvent
	err    error
}

func (p *fakePublisher) PublishRunEvent(_ context.Context, event inats.RunEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type fakeStore struct {
	runs []Run
	err  error
}

func (s *fakeStore) Insert(_ context.Context, run *Run) error {
	s.runs = append(s.runs, *run)
	return s.err
}

func sampleRun() Run {
	return Run{
		ID:             uuid.New(),
		Status:         StatusCompleted,
		ReplyChars:     42,
		AudioPresent:   true,
		ImagePresent:   false,
		ChatLatencyMs:  900,
		TotalLatencyMs: 5100,
		CreatedAt:      time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

func TestRunEventRoundTrip(t *testing.T) {
	run := sampleRun()
	run.RequestID = "req-9"
	run.ErrorMessage = "none"

	assert.Equal(t, run, RunFromEvent(EventFromRun(run)))
}

func TestPublishingRecorder_StampsRequestID(t *testing.T) {
	pub := &fakePublisher{}
	rec := NewPublishingRecorder(pub)

	ctx := middleware.WithRequestID(context.Background(), "req-1")
	require.NoError(t, rec.Record(ctx, sampleRun()))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "req-1", pub.events[0].RequestID)
	assert.Equal(t, StatusCompleted, pub.events[0].Status)
	assert.True(t, pub.events[0].AudioPresent)
}

func TestPublishingRecorder_KeepsExplicitRequestID(t *testing.T) {
	pub := &fakePublisher{}
	run := sampleRun()
	run.RequestID = "explicit"

	ctx := middleware.WithRequestID(context.Background(), "from-ctx")
	require.NoError(t, NewPublishingRecorder(pub).Record(ctx, run))

	assert.Equal(t, "explicit", pub.events[0].RequestID)
}

func TestPublishingRecorder_Error(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	err := NewPublishingRecorder(pub).Record(context.Background(), sampleRun())
	assert.Error(t, err)
}

func TestStoreRecorder(t *testing.T) {
	store := &fakeStore{}
	rec := NewStoreRecorder(store)

	ctx := middleware.WithRequestID(context.Background(), "req-2")
	require.NoError(t, rec.Record(ctx, sampleRun()))

	require.Len(t, store.runs, 1)
	assert.Equal(t, "req-2", store.runs[0].RequestID)
	assert.Equal(t, 42, store.runs[0].ReplyChars)
}

func TestStoreRecorder_Error(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	err := NewStoreRecorder(store).Record(context.Background(), sampleRun())
	assert.EqualError(t, err, "db down")
}
