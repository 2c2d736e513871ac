package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/friday/pkg/audio"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
)

var _ transcribe.Transcriber = (*Server)(nil)

// ServerOption is a functional option for configuring a [Server] transcriber.
type ServerOption func(*Server)

// WithServerLanguage sets the language form field sent with each request.
func WithServerLanguage(lang string) ServerOption {
	return func(s *Server) { s.language = lang }
}

// WithHTTPClient replaces the HTTP client, e.g. to route through a proxy.
func WithHTTPClient(c *http.Client) ServerOption {
	return func(s *Server) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithAccurateURL points the accurate profile at a second whisper-server
// instance running a larger model. By default both profiles share one server.
func WithAccurateURL(url string) ServerOption {
	return func(s *Server) {
		if url != "" {
			s.urls[transcribe.ProfileAccurate] = strings.TrimRight(url, "/")
		}
	}
}

// Server transcribes by POSTing WAV audio to a whisper-server /inference
// endpoint as multipart/form-data.
type Server struct {
	urls       map[transcribe.Profile]string
	language   string
	httpClient *http.Client
}

// NewServer returns a Server for the whisper-server listening at serverURL.
func NewServer(serverURL string, opts ...ServerOption) (*Server, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: server URL must not be empty")
	}
	base := strings.TrimRight(serverURL, "/")
	s := &Server{
		urls: map[transcribe.Profile]string{
			transcribe.ProfileFast:     base,
			transcribe.ProfileAccurate: base,
		},
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Transcribe implements [transcribe.Transcriber].
func (s *Server) Transcribe(ctx context.Context, chunk audio.Chunk, profile transcribe.Profile) (transcribe.Segment, error) {
	wav, err := transcribe.EncodeWAV(chunk)
	if err != nil {
		return transcribe.Segment{}, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return transcribe.Segment{}, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return transcribe.Segment{}, fmt.Errorf("whisper: write wav data: %w", err)
	}
	fields := map[string]string{"response_format": "json"}
	if s.language != "" {
		fields["language"] = s.language
	}
	if profile == transcribe.ProfileFast {
		// Greedy decoding keeps wake scanning cheap.
		fields["temperature"] = "0.0"
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return transcribe.Segment{}, fmt.Errorf("whisper: write %s field: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return transcribe.Segment{}, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.urls[profile]+"/inference", &body)
	if err != nil {
		return transcribe.Segment{}, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return transcribe.Segment{}, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return transcribe.Segment{}, fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transcribe.Segment{}, fmt.Errorf("whisper: read response body: %w", err)
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return transcribe.Segment{}, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	text := cleanSegment(result.Text)
	if text == "" {
		return transcribe.Segment{}, transcribe.ErrEmpty
	}
	return transcribe.Segment{Text: text, Profile: profile, Timestamp: time.Now()}, nil
}
