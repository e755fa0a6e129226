package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahida-ai/nahida/internal/prompt"
	"github.com/nahida-ai/nahida/internal/voice"
)

type fakeProvider struct {
	requests atomic.Int32
	handler  func(w http.ResponseWriter, r *http.Request)

	mu     sync.Mutex
	bodies map[string]map[string]any
}

func (fp *fakeProvider) body(path string) map[string]any {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.bodies[path]
}

func newFakeProvider(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*fakeProvider, *Client) {
	t.Helper()
	fp := &fakeProvider{bodies: make(map[string]map[string]any), handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp.requests.Add(1)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(data, &body))
		fp.mu.Lock()
		fp.bodies[r.URL.Path] = body
		fp.mu.Unlock()
		fp.handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return fp, NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

const chatResponse = `{"id":"c1","object":"chat.completion","created":1,"model":"m",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  你好呀，旅行者  "}}]}`

func TestComplete(t *testing.T) {
	fp, c := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		writeJSON(w, http.StatusOK, chatResponse)
	})

	text, err := c.Complete(context.Background(), ChatRequest{
		Model: "deepseek-ai/DeepSeek-V3.1",
		Messages: []prompt.Message{
			{Role: prompt.RoleSystem, Content: "sys"},
			{Role: prompt.RoleUser, Content: "你好"},
		},
		MaxTokens:   2048,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "  你好呀，旅行者  ", text)

	body := fp.body("/chat/completions")
	assert.Equal(t, "deepseek-ai/DeepSeek-V3.1", body["model"])
	assert.EqualValues(t, 2048, body["max_tokens"])
	assert.InDelta(t, 0.7, body["temperature"], 1e-9)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "你好", msgs[1].(map[string]any)["content"])
}

func TestComplete_NoChoices(t *testing.T) {
	_, c := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	})

	_, err := c.Complete(context.Background(), ChatRequest{Model: "m", Messages: []prompt.Message{{Role: prompt.RoleUser, Content: "x"}}})
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, CapabilityChat, gerr.Capability)
}

func TestComplete_ProviderErrorIsNotRetried(t *testing.T) {
	fp, c := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"error":{"message":"overloaded","type":"server_error"}}`)
	})

	_, err := c.Complete(context.Background(), ChatRequest{Model: "m", Messages: []prompt.Message{{Role: prompt.RoleUser, Content: "x"}}})
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, CapabilityChat, gerr.Capability)
	assert.EqualValues(t, 1, fp.requests.Load())
}

func TestSynthesizeImage(t *testing.T) {
	fp, c := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"created":1,"data":[{"url":"https://cdn.test/img.png"}]}`)
	})

	ref, err := c.SynthesizeImage(context.Background(), ImageRequest{
		Model:          "Qwen/Qwen-Image",
		Prompt:         "masterpiece, Nahida",
		NegativePrompt: "lowres",
		Size:           "928x1664",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/img.png", ref)

	body := fp.body("/images/generations")
	assert.Equal(t, "Qwen/Qwen-Image", body["model"])
	assert.Equal(t, "masterpiece, Nahida", body["prompt"])
	assert.Equal(t, "lowres", body["negative_prompt"])
	assert.Equal(t, "928x1664", body["image_size"])
	assert.EqualValues(t, 1, body["n"])
}

func TestSynthesizeImage_OmitsEmptyNegativePrompt(t *testing.T) {
	fp, c := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"created":1,"data":[{"b64_json":"aGVsbG8="}]}`)
	})

	ref, err := c.SynthesizeImage(context.Background(), ImageRequest{Model: "m", Prompt: "p", Size: "1024x1024"})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", ref)
	assert.NotContains(t, fp.body("/images/generations"), "negative_prompt")
}

func TestSynthesizeImage_EmptyData(t *testing.T) {
	_, c := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"created":1,"data":[]}`)
	})

	_, err := c.SynthesizeImage(context.Background(), ImageRequest{Model: "m", Prompt: "p"})
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, CapabilityImage, gerr.Capability)
}

func TestSynthesizeSpeech(t *testing.T) {
	fp, c := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	})

	audio, err := c.SynthesizeSpeech(context.Background(), SpeechRequest{
		Model:  "IndexTeam/IndexTTS-2",
		Input:  "你好呀",
		Voice:  voice.Reference{Audio: []byte("abc"), MIMEType: "audio/mpeg", Transcript: "初次见面"},
		Format: "mp3",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-audio"), audio)

	body := fp.body("/audio/speech")
	assert.Equal(t, "IndexTeam/IndexTTS-2", body["model"])
	assert.Equal(t, "你好呀", body["input"])
	assert.Equal(t, "mp3", body["response_format"])
	refs := body["references"].([]any)
	require.Len(t, refs, 1)
	ref := refs[0].(map[string]any)
	assert.Equal(t, "data:audio/mpeg;base64,YWJj", ref["audio"])
	assert.Equal(t, "初次见面", ref["text"])
}

func TestSynthesizeSpeech_EmptyBody(t *testing.T) {
	_, c := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.SynthesizeSpeech(context.Background(), SpeechRequest{Model: "m", Input: "x", Format: "mp3"})
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, CapabilitySpeech, gerr.Capability)
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Capability: CapabilityImage, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "image generation failed: boom", err.Error())
}
