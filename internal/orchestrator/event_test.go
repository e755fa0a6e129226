package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "content start with audio",
			event: ContentStart("你好", []byte("abc")),
			want:  `{"type":"content_start","text":"你好","audio":"YWJj"}`,
		},
		{
			name:  "content start without audio",
			event: ContentStart("你好", nil),
			want:  `{"type":"content_start","text":"你好","audio":null}`,
		},
		{
			name:  "image",
			event: Image("https://img.example/1.png"),
			want:  `{"type":"image","payload":"https://img.example/1.png"}`,
		},
		{
			name:  "done",
			event: Done("你好"),
			want:  `{"type":"done","full_response":"你好"}`,
		},
		{
			name:  "error",
			event: Failure("message must not be empty"),
			want:  `{"type":"error","content":"message must not be empty"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEvent_MarshalUnknownType(t *testing.T) {
	_, err := json.Marshal(Event{Type: "bogus"})
	assert.Error(t, err)
}

func TestEvent_Terminal(t *testing.T) {
	assert.False(t, ContentStart("x", nil).Terminal())
	assert.False(t, Image("x").Terminal())
	assert.True(t, Done("x").Terminal())
	assert.True(t, Failure("x").Terminal())
}
