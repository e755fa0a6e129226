package orchestrator

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventContentStart EventType = "content_start"
	EventImage        EventType = "image"
	EventDone         EventType = "done"
	EventError        EventType = "error"
)

// Event is one milestone of a reply stream. Which fields are meaningful
// depends on Type.
type Event struct {
	Type EventType

	// content_start
	Text  string
	Audio []byte // nil when speech synthesis produced nothing

	// image
	Payload string

	// done
	FullResponse string

	// error
	Content string
}

func ContentStart(text string, audio []byte) Event {
	return Event{Type: EventContentStart, Text: text, Audio: audio}
}

func Image(payload string) Event {
	return Event{Type: EventImage, Payload: payload}
}

func Done(fullResponse string) Event {
	return Event{Type: EventDone, FullResponse: fullResponse}
}

func Failure(content string) Event {
	return Event{Type: EventError, Content: content}
}

// Terminal reports whether the event closes the stream.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// MarshalJSON encodes the wire form of each variant. Audio is base64 in
// content_start and explicitly null when absent.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventContentStart:
		var audio *string
		if len(e.Audio) > 0 {
			s := base64.StdEncoding.EncodeToString(e.Audio)
			audio = &s
		}
		return json.Marshal(struct {
			Type  EventType `json:"type"`
			Text  string    `json:"text"`
			Audio *string   `json:"audio"`
		}{e.Type, e.Text, audio})
	case EventImage:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Payload string    `json:"payload"`
		}{e.Type, e.Payload})
	case EventDone:
		return json.Marshal(struct {
			Type         EventType `json:"type"`
			FullResponse string    `json:"full_response"`
		}{e.Type, e.FullResponse})
	case EventError:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Content string    `json:"content"`
		}{e.Type, e.Content})
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
}
