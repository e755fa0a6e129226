// Package orchestrator turns one user message into a reply stream: a chat
// completion first, then speech and image generation side by side. Speech
// and image failures degrade the stream; only chat failures end it early.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nahida-ai/nahida/internal/gateway"
	"github.com/nahida-ai/nahida/internal/journal"
	"github.com/nahida-ai/nahida/internal/metrics"
	"github.com/nahida-ai/nahida/internal/prompt"
	"github.com/nahida-ai/nahida/internal/voice"
)

var (
	// ErrEmptyMessage rejects a turn whose user message is blank.
	ErrEmptyMessage = errors.New("message must not be empty")
	// ErrEmptyReply is returned when the chat model answers with no text.
	ErrEmptyReply = errors.New("model returned empty reply")
)

const recordTimeout = 5 * time.Second

// Generator is the subset of the generation gateway the pipeline needs.
type Generator interface {
	Complete(ctx context.Context, req gateway.ChatRequest) (string, error)
	SynthesizeImage(ctx context.Context, req gateway.ImageRequest) (string, error)
	SynthesizeSpeech(ctx context.Context, req gateway.SpeechRequest) ([]byte, error)
}

// VoiceSource supplies the reference sample used for voice cloning.
type VoiceSource interface {
	Get() voice.Reference
}

// Recorder receives a summary of each finished run.
type Recorder interface {
	Record(ctx context.Context, run journal.Run) error
}

// Options holds the model names and sampling settings for each stage.
type Options struct {
	ChatModel           string
	PromptEngineerModel string
	ImageModel          string
	SpeechModel         string

	MaxTokens      int
	Temperature    float64
	ArtMaxTokens   int
	ArtTemperature float64

	ImageSize    string
	SpeechFormat string
}

// Orchestrator runs one turn: reply first, then speech and image in parallel.
type Orchestrator struct {
	gen      Generator
	composer *prompt.Composer
	voices   VoiceSource
	opts     Options
	recorder Recorder
}

// New wires the pipeline. recorder may be nil.
func New(gen Generator, composer *prompt.Composer, voices VoiceSource, opts Options, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		gen:      gen,
		composer: composer,
		voices:   voices,
		opts:     opts,
		recorder: recorder,
	}
}

// Handle runs the pipeline for one message. The returned sequence yields
// content_start, an optional image and done on success, or a single error
// event when no reply could be produced. Stopping iteration early is safe;
// background jobs finish into buffered channels.
func (o *Orchestrator) Handle(ctx context.Context, message string, history []prompt.HistoryEntry) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		ctx, span := tracer.Start(ctx, "orchestrator.handle")
		defer span.End()

		st := &runState{start: time.Now(), status: journal.StatusFailed}
		defer o.finish(ctx, st)

		var yielding, stopped bool
		emit := func(e Event) bool {
			if stopped {
				return false
			}
			st.observe(e)
			yielding = true
			ok := yield(e)
			yielding = false
			stopped = !ok
			return ok
		}

		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if yielding {
				panic(r)
			}
			err := fmt.Errorf("pipeline panic: %v", r)
			slog.Error("orchestrator panic", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			st.err = err
			if !st.terminal {
				emit(Failure("internal error"))
			}
		}()

		if strings.TrimSpace(message) == "" {
			st.err = ErrEmptyMessage
			emit(Failure(ErrEmptyMessage.Error()))
			return
		}

		reply, err := o.reply(ctx, message, history)
		st.chatLatency = time.Since(st.start)
		if err != nil {
			slog.Warn("chat reply failed", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "chat failed")
			st.err = err
			emit(Failure(err.Error()))
			return
		}
		span.SetAttributes(attribute.Int("reply.chars", len([]rune(reply))))

		speech := o.startSpeech(ctx, reply)
		image := o.startImage(ctx, message, reply)

		if !emit(ContentStart(reply, <-speech)) {
			return
		}
		if payload := <-image; payload != "" {
			if !emit(Image(payload)) {
				return
			}
		}
		emit(Done(reply))
	}
}

func (o *Orchestrator) reply(ctx context.Context, message string, history []prompt.HistoryEntry) (string, error) {
	text, err := o.gen.Complete(ctx, gateway.ChatRequest{
		Model:       o.opts.ChatModel,
		Messages:    o.composer.CharacterContext(history, message),
		MaxTokens:   o.opts.MaxTokens,
		Temperature: o.opts.Temperature,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// finish runs once the stream is over, whatever ended it.
func (o *Orchestrator) finish(ctx context.Context, st *runState) {
	switch {
	case st.err != nil:
		st.status = journal.StatusFailed
	case !st.terminal:
		st.status = journal.StatusCancelled
	}
	metrics.PipelineRequestsTotal.WithLabelValues(st.status).Inc()

	if o.recorder == nil {
		return
	}

	run := st.run()
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := o.recorder.Record(rctx, run); err != nil {
		slog.Error("recording run", "run_id", run.ID, "error", err)
	}
}

type runState struct {
	start       time.Time
	chatLatency time.Duration

	status     string
	err        error
	replyChars int
	audio      bool
	image      bool
	terminal   bool
}

func (s *runState) observe(e Event) {
	switch e.Type {
	case EventContentStart:
		s.replyChars = len([]rune(e.Text))
		s.audio = len(e.Audio) > 0
	case EventImage:
		s.image = true
	case EventDone:
		s.status = journal.StatusCompleted
	}
	s.terminal = s.terminal || e.Terminal()
}

func (s *runState) run() journal.Run {
	run := journal.Run{
		ID:             uuid.New(),
		Status:         s.status,
		ReplyChars:     s.replyChars,
		AudioPresent:   s.audio,
		ImagePresent:   s.image,
		ChatLatencyMs:  int(s.chatLatency.Milliseconds()),
		TotalLatencyMs: int(time.Since(s.start).Milliseconds()),
		CreatedAt:      s.start.UTC(),
	}
	if s.err != nil {
		run.ErrorMessage = s.err.Error()
	}
	return run
}
