package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"coursecraft/internal/speech"
	"coursecraft/pkg/httputil"
)

const (
	baseURL      = "https://api.elevenlabs.io/v1"
	timeout      = 60 * time.Second
	defaultModel = "eleven_multilingual_v2"
	outputFormat = "mp3_44100_128"
)

var _ speech.Provider = (*Client)(nil)

type Client struct {
	apiKeys    []string
	keyIndex   uint64
	httpClient httputil.Doer
	baseURL    string
	voiceID    string
	model      string
	speed      float64
	stability  float64
	similarity float64
}

type Config struct {
	APIKeys    []string
	VoiceID    string
	Model      string
	Speed      float64
	Stability  float64
	Similarity float64
	HTTPClient httputil.Doer
}

// APIError is a non-200 answer from ElevenLabs.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs: %d %s - %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

type option func(*Client)

func withBaseURL(url string) option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func NewClient(cfg Config) *Client {
	return newClient(cfg)
}

func newClient(cfg Config, opts ...option) *Client {
	keys := cfg.APIKeys
	if len(keys) == 0 {
		keys = []string{""}
	}

	c := &Client{
		apiKeys:    keys,
		httpClient: cfg.HTTPClient,
		baseURL:    baseURL,
		voiceID:    cfg.VoiceID,
		model:      cfg.Model,
		speed:      cfg.Speed,
		stability:  cfg.Stability,
		similarity: cfg.Similarity,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.model == "" {
		c.model = defaultModel
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Name() string { return "elevenlabs" }

// Synthesize converts text to MP3. When the account behind one key is out of
// quota the remaining keys are tried in turn.
func (c *Client) Synthesize(ctx context.Context, text string) (*speech.Audio, error) {
	if err := speech.CheckText(text); err != nil {
		return nil, err
	}

	startKey := c.nextAPIKey()
	data, err := c.doRequestWithKey(ctx, text, startKey)
	if err == nil {
		return &speech.Audio{Data: data, Format: speech.FormatMP3}, nil
	}
	if !isQuotaError(err) {
		return nil, err
	}

	for i := 1; i < len(c.apiKeys); i++ {
		key := c.getKeyAtOffset(i)
		if key == startKey {
			continue
		}
		data, err = c.doRequestWithKey(ctx, text, key)
		if err == nil {
			return &speech.Audio{Data: data, Format: speech.FormatMP3}, nil
		}
		if !isQuotaError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("all API keys exhausted: %w", err)
}

func (c *Client) nextAPIKey() string {
	if len(c.apiKeys) == 1 {
		return c.apiKeys[0]
	}
	idx := atomic.AddUint64(&c.keyIndex, 1)
	return c.apiKeys[idx%uint64(len(c.apiKeys))]
}

func (c *Client) getKeyAtOffset(offset int) string {
	idx := atomic.LoadUint64(&c.keyIndex)
	return c.apiKeys[(idx+uint64(offset))%uint64(len(c.apiKeys))]
}

func (c *Client) doRequestWithKey(ctx context.Context, text, apiKey string) ([]byte, error) {
	req, err := c.buildRequest(ctx, text, apiKey)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("elevenlabs: empty audio")
	}

	return body, nil
}

func isQuotaError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests ||
		strings.Contains(apiErr.Body, "quota_exceeded")
}

func (c *Client) buildURL() string {
	return fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", c.baseURL, c.voiceID, outputFormat)
}

func (c *Client) buildRequest(ctx context.Context, text, apiKey string) (*http.Request, error) {
	payload := map[string]any{
		"text":     text,
		"model_id": c.model,
		"voice_settings": map[string]any{
			"stability":        c.stability,
			"similarity_boost": c.similarity,
			"speed":            c.speed,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	return req, nil
}
