// Package speech defines the text-to-speech contract used by the narration
// synthesizer. Providers live in subpackages.
package speech

import (
	"context"
	"errors"
	"strings"
)

const DefaultWordsPerMinute = 150.0

var ErrEmptyText = errors.New("nothing to synthesize")

type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

func (f Format) ContentType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}

// Audio is one synthesized clip.
type Audio struct {
	Data   []byte
	Format Format
}

func (a *Audio) Ext() string {
	if a.Format == "" {
		return string(FormatMP3)
	}
	return string(a.Format)
}

type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// EstimateDuration approximates spoken length in seconds at wordsPerMinute.
func EstimateDuration(text string, wordsPerMinute float64) float64 {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	return float64(len(strings.Fields(text))) / wordsPerMinute * 60.0
}

func CheckText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}
