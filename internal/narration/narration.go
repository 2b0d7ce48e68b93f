// Package narration turns slide narration text into stored audio assets.
//
// A batch is processed strictly in order, one call at a time, with a fixed
// pause before each call so a rate-limited vendor is not hammered. A failed
// item is logged and left out of the result; the batch carries on.
package narration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"coursecraft/internal/speech"
	"coursecraft/internal/storage"
)

const (
	DefaultPacing  = 100 * time.Millisecond
	DefaultTimeout = 30 * time.Second
	DefaultDir     = "audio"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Item is one narration to synthesize. Key identifies it in the result and
// names the stored asset.
type Item struct {
	Key  string
	Text string
}

// Report holds the asset reference for every item that succeeded and the keys
// of those that did not.
type Report struct {
	Refs   map[string]string
	Failed []string
}

type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Options struct {
	Pacing  time.Duration
	Timeout time.Duration
	Dir     string
	Clock   Clock
}

type Synthesizer struct {
	provider speech.Provider
	store    storage.AssetStore
	pacing   time.Duration
	timeout  time.Duration
	dir      string
	clock    Clock
}

func NewSynthesizer(provider speech.Provider, store storage.AssetStore, opts Options) *Synthesizer {
	s := &Synthesizer{
		provider: provider,
		store:    store,
		pacing:   opts.Pacing,
		timeout:  opts.Timeout,
		dir:      strings.Trim(opts.Dir, "/"),
		clock:    opts.Clock,
	}
	if s.pacing < 0 {
		s.pacing = 0
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.dir == "" {
		s.dir = DefaultDir
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	return s
}

// AssetPath is where the audio for key is stored. It only depends on the key
// and the audio format, so re-synthesizing an item overwrites its asset.
// Keys that need sanitising get a hash suffix of the raw key so distinct keys
// never share a file.
func (s *Synthesizer) AssetPath(key, ext string) string {
	safe := strings.Trim(unsafeKeyChars.ReplaceAllString(key, "-"), "-")
	if safe != key {
		sum := sha256.Sum256([]byte(key))
		suffix := hex.EncodeToString(sum[:4])
		if safe == "" {
			safe = "narration-" + suffix
		} else {
			safe += "-" + suffix
		}
	}
	return fmt.Sprintf("%s/%s.%s", s.dir, safe, ext)
}

// SynthesizeBatch processes items sequentially and never fails as a whole.
// If ctx ends mid-batch the remaining items are reported as failed.
func (s *Synthesizer) SynthesizeBatch(ctx context.Context, items []Item) Report {
	report := Report{Refs: make(map[string]string, len(items))}

	for i, item := range items {
		if err := s.clock.Sleep(ctx, s.pacing); err != nil {
			slog.Warn("Narration batch interrupted", "remaining", len(items)-i, "error", err)
			for _, rest := range items[i:] {
				report.Failed = append(report.Failed, rest.Key)
			}
			return report
		}

		ref, err := s.Synthesize(ctx, item)
		if err != nil {
			slog.Error("Failed to synthesize narration", "key", item.Key, "provider", s.provider.Name(), "error", err)
			report.Failed = append(report.Failed, item.Key)
			continue
		}
		report.Refs[item.Key] = ref
	}

	slog.Info("Narration batch complete", "items", len(items), "synthesized", len(report.Refs), "failed", len(report.Failed))
	return report
}

// Synthesize renders a single item and stores it, bounded by the per-call
// timeout.
func (s *Synthesizer) Synthesize(ctx context.Context, item Item) (string, error) {
	if err := speech.CheckText(item.Text); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	audio, err := s.provider.Synthesize(ctx, item.Text)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}

	ref, err := s.store.Save(ctx, s.AssetPath(item.Key, audio.Ext()), audio.Data, audio.Format.ContentType())
	if err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}

	slog.Debug("Synthesized narration", "key", item.Key, "bytes", len(audio.Data), "ref", ref)
	return ref, nil
}
