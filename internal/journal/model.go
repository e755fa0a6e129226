// Package journal keeps a per-request summary of every reply pipeline run.
// A Run carries timings and outcome flags only; message, history and reply
// text are never recorded.
package journal

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Run summarizes one pipeline run after its event stream has closed.
type Run struct {
	ID             uuid.UUID `json:"id"`
	RequestID      string    `json:"request_id"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ReplyChars     int       `json:"reply_chars"`
	AudioPresent   bool      `json:"audio_present"`
	ImagePresent   bool      `json:"image_present"`
	ChatLatencyMs  int       `json:"chat_latency_ms"`
	TotalLatencyMs int       `json:"total_latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
