// Package elevenlabs provides a [speech.Speaker] backed by the ElevenLabs
// streaming WebSocket API. Synthesised PCM is collected and handed to a
// [speech.Player] once the stream reports its final message.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"

	"github.com/MrWong99/friday/pkg/provider/speech"
)

const (
	defaultEndpoint   = "wss://api.elevenlabs.io"
	streamPathFmt     = "/v1/text-to-speech/%s/stream-input"
	defaultModel      = "eleven_flash_v2_5"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the ElevenLabs Speaker.
type Option func(*Speaker)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(s *Speaker) {
		if model != "" {
			s.model = model
		}
	}
}

// WithVoiceSettings overrides stability and similarity boost.
func WithVoiceSettings(stability, similarity float64) Option {
	return func(s *Speaker) {
		s.settings = voiceSettings{Stability: stability, SimilarityBoost: similarity}
	}
}

// WithEndpoint overrides the WebSocket base URL. Used by tests.
func WithEndpoint(base string) Option {
	return func(s *Speaker) { s.endpoint = strings.TrimRight(base, "/") }
}

// WithHTTPClient sets the client used for the WebSocket handshake, e.g. one
// that dials through a SOCKS5 proxy.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Speaker) { s.httpClient = c }
}

// Speaker implements [speech.Speaker] backed by the ElevenLabs streaming API.
type Speaker struct {
	apiKey     string
	voiceID    string
	model      string
	endpoint   string
	settings   voiceSettings
	httpClient *http.Client
	player     speech.Player
}

var _ speech.Speaker = (*Speaker)(nil)

// New creates a Speaker for voiceID that plays audio through player.
func New(apiKey, voiceID string, player speech.Player, opts ...Option) (*Speaker, error) {
	switch {
	case apiKey == "":
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	case voiceID == "":
		return nil, errors.New("elevenlabs: voiceID must not be empty")
	case player == nil:
		return nil, errors.New("elevenlabs: player must not be nil")
	}
	s := &Speaker{
		apiKey:   apiKey,
		voiceID:  voiceID,
		model:    defaultModel,
		endpoint: defaultEndpoint,
		settings: voiceSettings{Stability: 0.6, SimilarityBoost: 0.8},
		player:   player,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// boiMessage opens the stream and authenticates.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

type textMessage struct {
	Text  string `json:"text"`
	Flush bool   `json:"flush,omitempty"`
}

type audioResponse struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

// Speak synthesises text and plays it. It returns once playback finished.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	pcm, err := s.synthesize(ctx, text)
	if err != nil {
		return err
	}
	if len(pcm) == 0 {
		return errors.New("elevenlabs: no audio received")
	}
	if err := s.player.Play(ctx, pcm, defaultSampleRate); err != nil {
		return fmt.Errorf("elevenlabs: play: %w", err)
	}
	return nil
}

func (s *Speaker) streamURL() string {
	q := url.Values{}
	q.Set("model_id", s.model)
	q.Set("output_format", fmt.Sprintf("pcm_%d", defaultSampleRate))
	return s.endpoint + fmt.Sprintf(streamPathFmt, url.PathEscape(s.voiceID)) + "?" + q.Encode()
}

// synthesize runs one BOI/text/EOS exchange and returns the concatenated PCM.
func (s *Speaker) synthesize(ctx context.Context, text string) ([]byte, error) {
	var dialOpts *websocket.DialOptions
	if s.httpClient != nil {
		dialOpts = &websocket.DialOptions{HTTPClient: s.httpClient}
	}
	conn, _, err := websocket.Dial(ctx, s.streamURL(), dialOpts)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 22)

	settings := s.settings
	msgs := []any{
		// ElevenLabs requires a single space as the first text value.
		boiMessage{Text: " ", VoiceSettings: &settings, XiAPIKey: s.apiKey},
		textMessage{Text: strings.TrimSpace(text) + " ", Flush: true},
		textMessage{Text: ""},
	}
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("elevenlabs: encode message: %w", err)
		}
		if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
			return nil, fmt.Errorf("elevenlabs: write: %w", err)
		}
	}

	var pcm []byte
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				break
			}
			return nil, fmt.Errorf("elevenlabs: read: %w", err)
		}
		var resp audioResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		if resp.Message != "" && resp.Audio == "" && !resp.IsFinal {
			return nil, fmt.Errorf("elevenlabs: server error: %s", resp.Message)
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				return nil, fmt.Errorf("elevenlabs: decode audio: %w", err)
			}
			pcm = append(pcm, chunk...)
		}
		if resp.IsFinal {
			break
		}
	}
	conn.Close(websocket.StatusNormalClosure, "done")
	return pcm, nil
}
