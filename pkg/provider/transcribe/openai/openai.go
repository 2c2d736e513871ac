// Package openai implements [transcribe.Transcriber] against the OpenAI audio
// transcription endpoint (or any API-compatible server).
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/friday/pkg/audio"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
)

const (
	defaultFastModel     = "whisper-1"
	defaultAccurateModel = "gpt-4o-transcribe"
)

var _ transcribe.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring a [Transcriber].
type Option func(*Transcriber)

// WithModels overrides the model used for each profile. Empty values keep the
// defaults.
func WithModels(fast, accurate string) Option {
	return func(t *Transcriber) {
		if fast != "" {
			t.models[transcribe.ProfileFast] = fast
		}
		if accurate != "" {
			t.models[transcribe.ProfileAccurate] = accurate
		}
	}
}

// WithLanguage sets the ISO-639-1 language hint.
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// WithPrompt sets a vocabulary prompt sent with accurate-profile requests.
func WithPrompt(prompt string) Option {
	return func(t *Transcriber) { t.prompt = prompt }
}

// WithBaseURL points the client at an OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return func(t *Transcriber) { t.baseURL = url }
}

// WithHTTPClient replaces the HTTP client, e.g. to route through a proxy.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transcriber) { t.httpClient = c }
}

// Transcriber sends each chunk to the transcription endpoint as a WAV upload.
type Transcriber struct {
	client     oai.Client
	models     map[transcribe.Profile]string
	language   string
	prompt     string
	baseURL    string
	httpClient *http.Client
}

// New returns a Transcriber authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key must not be empty")
	}
	t := &Transcriber{
		models: map[transcribe.Profile]string{
			transcribe.ProfileFast:     defaultFastModel,
			transcribe.ProfileAccurate: defaultAccurateModel,
		},
		language: "en",
	}
	for _, o := range opts {
		o(t)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
		option.WithRequestTimeout(30 * time.Second),
	}
	if t.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(t.baseURL))
	}
	if t.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(t.httpClient))
	}
	t.client = oai.NewClient(clientOpts...)
	return t, nil
}

// Transcribe implements [transcribe.Transcriber].
func (t *Transcriber) Transcribe(ctx context.Context, chunk audio.Chunk, profile transcribe.Profile) (transcribe.Segment, error) {
	wav, err := transcribe.EncodeWAV(chunk)
	if err != nil {
		return transcribe.Segment{}, err
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
		Model: oai.AudioModel(t.models[profile]),
	}
	if t.language != "" {
		params.Language = oai.String(t.language)
	}
	if profile == transcribe.ProfileAccurate && t.prompt != "" {
		params.Prompt = oai.String(t.prompt)
	}
	if profile == transcribe.ProfileFast {
		params.Temperature = oai.Float(0)
	}

	res, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return transcribe.Segment{}, fmt.Errorf("openai: transcribe: %w", err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return transcribe.Segment{}, transcribe.ErrEmpty
	}
	return transcribe.Segment{Text: text, Profile: profile, Timestamp: time.Now()}, nil
}
