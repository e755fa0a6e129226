// Package gateway wraps an OpenAI-compatible provider behind three synchronous
// calls: chat completion, image synthesis and speech synthesis. It performs no
// retries; a failed call is final.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nahida-ai/nahida/internal/metrics"
	"github.com/nahida-ai/nahida/internal/prompt"
	"github.com/nahida-ai/nahida/internal/voice"
)

type ChatRequest struct {
	Model       string
	Messages    []prompt.Message
	MaxTokens   int
	Temperature float64
}

type ImageRequest struct {
	Model          string
	Prompt         string
	NegativePrompt string
	Size           string
}

type SpeechRequest struct {
	Model  string
	Input  string
	Voice  voice.Reference
	Format string
}

type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	oai openai.Client
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return operation + " " + r.URL.Path
			}),
		)}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{oai: openai.NewClient(opts...)}
}

// Complete returns the text of the first choice. The text is returned as-is;
// deciding whether blank output is acceptable is the caller's job.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (text string, err error) {
	defer observe(CapabilityChat, time.Now(), &err)

	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    convMessages(req.Messages),
		Temperature: param.NewOpt(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}

	resp, err := c.oai.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &Error{Capability: CapabilityChat, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Capability: CapabilityChat, Err: errors.New("no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// SynthesizeImage returns a reference to the generated image: its URL, or a
// data URI when the provider only returns inline bytes.
func (c *Client) SynthesizeImage(ctx context.Context, req ImageRequest) (ref string, err error) {
	defer observe(CapabilityImage, time.Now(), &err)

	params := openai.ImageGenerateParams{
		Model:  openai.ImageModel(req.Model),
		Prompt: req.Prompt,
		N:      param.NewOpt(int64(1)),
	}
	var opts []option.RequestOption
	if req.Size != "" {
		opts = append(opts, option.WithJSONSet("image_size", req.Size))
	}
	if req.NegativePrompt != "" {
		opts = append(opts, option.WithJSONSet("negative_prompt", req.NegativePrompt))
	}

	resp, err := c.oai.Images.Generate(ctx, params, opts...)
	if err != nil {
		return "", &Error{Capability: CapabilityImage, Err: err}
	}
	if len(resp.Data) == 0 {
		return "", &Error{Capability: CapabilityImage, Err: errors.New("no image in response")}
	}
	img := resp.Data[0]
	switch {
	case img.URL != "":
		return img.URL, nil
	case img.B64JSON != "":
		return "data:image/png;base64," + img.B64JSON, nil
	default:
		return "", &Error{Capability: CapabilityImage, Err: errors.New("image has neither url nor data")}
	}
}

// SynthesizeSpeech returns encoded audio for req.Input spoken in the style of
// req.Voice.
func (c *Client) SynthesizeSpeech(ctx context.Context, req SpeechRequest) (audio []byte, err error) {
	defer observe(CapabilitySpeech, time.Now(), &err)

	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(req.Model),
		Input:          req.Input,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(req.Format),
	}
	// The provider selects timbre from references; the voice id stays empty.
	opts := []option.RequestOption{
		option.WithJSONSet("voice", ""),
		option.WithJSONSet("references", []map[string]string{{
			"audio": req.Voice.DataURI(),
			"text":  req.Voice.Transcript,
		}}),
	}

	resp, err := c.oai.Audio.Speech.New(ctx, params, opts...)
	if err != nil {
		return nil, &Error{Capability: CapabilitySpeech, Err: err}
	}
	defer resp.Body.Close()

	audio, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Capability: CapabilitySpeech, Err: fmt.Errorf("reading audio: %w", err)}
	}
	if len(audio) == 0 {
		return nil, &Error{Capability: CapabilitySpeech, Err: errors.New("empty audio")}
	}
	return audio, nil
}

func convMessages(msgs []prompt.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case prompt.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case prompt.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func observe(capability Capability, start time.Time, err *error) {
	status := "ok"
	if *err != nil {
		status = "error"
	}
	metrics.GatewayRequestDuration.WithLabelValues(string(capability), status).Observe(time.Since(start).Seconds())
}
