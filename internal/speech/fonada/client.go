// Package fonada synthesizes speech with the Fonada Labs TTS API.
package fonada

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"coursecraft/internal/speech"
	"coursecraft/pkg/httputil"
)

const (
	apiURL          = "https://api.fonada.ai/tts/generate-audio"
	timeout         = 30 * time.Second
	defaultVoice    = "Vaanee"
	defaultLanguage = "English"
)

var _ speech.Provider = (*Client)(nil)

type Config struct {
	APIKey     string
	Voice      string
	Language   string
	HTTPClient httputil.Doer
}

type Client struct {
	apiKey     string
	voice      string
	language   string
	url        string
	httpClient httputil.Doer
}

type request struct {
	APIKey   string `json:"api_key"`
	Input    string `json:"input"`
	Voice    string `json:"voice"`
	Language string `json:"language"`
}

func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:     cfg.APIKey,
		voice:      cfg.Voice,
		language:   cfg.Language,
		url:        apiURL,
		httpClient: cfg.HTTPClient,
	}
	if c.voice == "" {
		c.voice = defaultVoice
	}
	if c.language == "" {
		c.language = defaultLanguage
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

func (c *Client) Name() string { return "fonada" }

// Synthesize returns the MP3 bytes Fonada answers with.
func (c *Client) Synthesize(ctx context.Context, text string) (*speech.Audio, error) {
	if err := speech.CheckText(text); err != nil {
		return nil, err
	}

	body, err := json.Marshal(request{
		APIKey:   c.apiKey,
		Input:    text,
		Voice:    c.voice,
		Language: c.language,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fonada: %s - %s", resp.Status, truncate(data, 200))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fonada: empty audio")
	}

	return &speech.Audio{Data: data, Format: speech.FormatMP3}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
