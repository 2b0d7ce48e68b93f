// Package googletts synthesizes speech with Google Cloud Text-to-Speech,
// authenticating through Application Default Credentials.
package googletts

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"coursecraft/internal/speech"
)

const (
	defaultVoice    = "en-US-Chirp3-HD-Charon"
	defaultLanguage = "en-US"
	// requests are capped at 5000 bytes of input
	chunkLimit = 4800
)

var _ speech.Provider = (*Client)(nil)

type synthesizeFunc func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

type Config struct {
	Voice        string
	LanguageCode string
	SpeakingRate float64
}

type Client struct {
	synthesize synthesizeFunc
	close      func() error
	voice      string
	language   string
	rate       float64
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	tc, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}

	c := newClient(cfg, func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		return tc.SynthesizeSpeech(ctx, req)
	})
	c.close = tc.Close
	return c, nil
}

func newClient(cfg Config, fn synthesizeFunc) *Client {
	c := &Client{
		synthesize: fn,
		close:      func() error { return nil },
		voice:      cfg.Voice,
		language:   cfg.LanguageCode,
		rate:       cfg.SpeakingRate,
	}
	if c.voice == "" {
		c.voice = defaultVoice
	}
	if c.language == "" {
		c.language = defaultLanguage
	}
	return c
}

func (c *Client) Name() string { return "google" }

func (c *Client) Close() error {
	return c.close()
}

// Synthesize returns MP3 audio. Text longer than one request allows is sent in
// chunks and the MP3 streams are concatenated.
func (c *Client) Synthesize(ctx context.Context, text string) (*speech.Audio, error) {
	if err := speech.CheckText(text); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for i, chunk := range splitIntoChunks(text, chunkLimit) {
		resp, err := c.synthesize(ctx, c.request(chunk))
		if err != nil {
			return nil, fmt.Errorf("synthesize chunk %d: %w", i, err)
		}
		buf.Write(resp.GetAudioContent())
	}

	if buf.Len() == 0 {
		return nil, fmt.Errorf("google tts: empty audio")
	}
	return &speech.Audio{Data: buf.Bytes(), Format: speech.FormatMP3}, nil
}

func (c *Client) request(text string) *texttospeechpb.SynthesizeSpeechRequest {
	audio := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp voices reject speaking rate
	if c.rate > 0 && !strings.Contains(strings.ToLower(c.voice), "chirp") {
		audio.SpeakingRate = c.rate
	}

	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: c.language,
			Name:         c.voice,
		},
		AudioConfig: audio,
	}
}

// splitIntoChunks splits on word boundaries so no chunk exceeds limit bytes.
// A single word longer than limit becomes its own chunk.
func splitIntoChunks(text string, limit int) []string {
	words := strings.Fields(text)
	var chunks []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
