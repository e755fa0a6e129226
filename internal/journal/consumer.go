package journal

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/nahida-ai/nahida/internal/nats"
)

const consumerName = "run-journal"

// Store persists runs.
type Store interface {
	Insert(ctx context.Context, run *Run) error
}

// Consumer listens on the run event subject and persists runs to the database.
type Consumer struct {
	store       Store
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(store Store, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		store:       store,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, consumerName, inats.SubjectRunEvent)
	if err != nil {
		return err
	}

	slog.Info("run journal consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("run journal: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handle(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg) {
	var event inats.RunEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		slog.Error("run journal: unmarshaling event", "error", err)
		// Malformed payloads never become valid; drop them.
		_ = msg.Term()
		return
	}

	run := RunFromEvent(event)
	if err := c.store.Insert(ctx, &run); err != nil {
		slog.Error("run journal: persisting run", "error", err, "run_id", run.ID)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
	slog.Debug("run journal: persisted run", "run_id", run.ID, "status", run.Status)
}

// RunFromEvent converts the wire event into a Run.
func RunFromEvent(event inats.RunEvent) Run {
	return Run{
		ID:             event.RunID,
		RequestID:      event.RequestID,
		Status:         event.Status,
		ErrorMessage:   event.Error,
		ReplyChars:     event.ReplyChars,
		AudioPresent:   event.AudioPresent,
		ImagePresent:   event.ImagePresent,
		ChatLatencyMs:  event.ChatLatencyMs,
		TotalLatencyMs: event.TotalLatencyMs,
		CreatedAt:      event.Timestamp,
	}
}

// EventFromRun converts a Run into its wire event.
func EventFromRun(run Run) inats.RunEvent {
	return inats.RunEvent{
		RunID:          run.ID,
		RequestID:      run.RequestID,
		Status:         run.Status,
		Error:          run.ErrorMessage,
		ReplyChars:     run.ReplyChars,
		AudioPresent:   run.AudioPresent,
		ImagePresent:   run.ImagePresent,
		ChatLatencyMs:  run.ChatLatencyMs,
		TotalLatencyMs: run.TotalLatencyMs,
		Timestamp:      run.CreatedAt,
	}
}
