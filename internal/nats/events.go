package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

const StreamEvents = "NAHIDA_EVENTS"

const (
	SubjectEventPrefix = "nahida.events"
	SubjectRunEvent    = "nahida.events.run"
)

// RunEvent is published once per finished reply stream. It never carries
// message, history or reply text.
type RunEvent struct {
	RunID          uuid.UUID `json:"run_id"`
	RequestID      string    `json:"request_id,omitempty"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	ReplyChars     int       `json:"reply_chars"`
	AudioPresent   bool      `json:"audio_present"`
	ImagePresent   bool      `json:"image_present"`
	ChatLatencyMs  int       `json:"chat_latency_ms"`
	TotalLatencyMs int       `json:"total_latency_ms"`
	Timestamp      time.Time `json:"timestamp"`
}
