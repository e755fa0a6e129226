package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nahida-ai/nahida/internal/gateway"
	"github.com/nahida-ai/nahida/internal/metrics"
)

const (
	jobSpeech = "speech"
	jobImage  = "image"
)

// Each job owns one buffered channel and sends exactly once, so a consumer
// that stops reading never blocks it.

func (o *Orchestrator) startSpeech(ctx context.Context, reply string) <-chan []byte {
	out := make(chan []byte, 1)
	go func() {
		var audio []byte
		defer func() {
			if r := recover(); r != nil {
				slog.Error("speech job panic", "panic", r)
				audio = nil
			}
			observeJob(jobSpeech, len(audio) > 0)
			out <- audio
		}()
		audio = o.speech(ctx, reply)
	}()
	return out
}

func (o *Orchestrator) startImage(ctx context.Context, message, reply string) <-chan string {
	out := make(chan string, 1)
	go func() {
		var payload string
		defer func() {
			if r := recover(); r != nil {
				slog.Error("image job panic", "panic", r)
				payload = ""
			}
			observeJob(jobImage, payload != "")
			out <- payload
		}()
		payload = o.image(ctx, message, reply)
	}()
	return out
}

func (o *Orchestrator) speech(ctx context.Context, reply string) []byte {
	ctx, span := tracer.Start(ctx, "orchestrator.speech")
	defer span.End()

	audio, err := o.gen.SynthesizeSpeech(ctx, gateway.SpeechRequest{
		Model:  o.opts.SpeechModel,
		Input:  reply,
		Voice:  o.voices.Get(),
		Format: o.opts.SpeechFormat,
	})
	if err != nil {
		jobFailed(span, jobSpeech, err)
		return nil
	}
	return audio
}

// image asks the art director for a prompt, then renders it. A failed or
// blank art direction skips the image call.
func (o *Orchestrator) image(ctx context.Context, message, reply string) string {
	ctx, span := tracer.Start(ctx, "orchestrator.image")
	defer span.End()

	text, err := o.gen.Complete(ctx, gateway.ChatRequest{
		Model:       o.opts.PromptEngineerModel,
		Messages:    o.composer.ArtDirectionContext(message, reply),
		MaxTokens:   o.opts.ArtMaxTokens,
		Temperature: o.opts.ArtTemperature,
	})
	if err != nil {
		jobFailed(span, jobImage, fmt.Errorf("art direction: %w", err))
		return ""
	}

	dir := o.composer.ArtDirection(text)
	if dir.Positive == "" {
		slog.Warn("image job skipped", "reason", "empty art direction")
		return ""
	}

	payload, err := o.gen.SynthesizeImage(ctx, gateway.ImageRequest{
		Model:          o.opts.ImageModel,
		Prompt:         dir.Positive,
		NegativePrompt: dir.Negative,
		Size:           o.opts.ImageSize,
	})
	if err != nil {
		jobFailed(span, jobImage, err)
		return ""
	}
	return payload
}

func jobFailed(span trace.Span, job string, err error) {
	slog.Warn("generation job failed", "job", job, "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, job+" failed")
}

func observeJob(job string, present bool) {
	result := "absent"
	if present {
		result = "present"
	}
	metrics.JobResultsTotal.WithLabelValues(job, result).Inc()
}
