// Package timeline computes slide playback schedules from narration text.
//
// Durations are derived, never stored: a slide lasts as long as its narration
// takes to read at a fixed words-per-second rate, with a lower bound so short
// narration does not produce a flash of a slide.
package timeline

import (
	"errors"
	"math"
	"strings"
)

const (
	DefaultFPS            = 30
	DefaultWordsPerSecond = 2.5
	DefaultMinSeconds     = 5
	DefaultEmptySeconds   = 3
)

var ErrInvalidFPS = errors.New("fps must be positive")

type Policy struct {
	WordsPerSecond float64
	MinSeconds     int
	// EmptySeconds is the length of the composition when there are no slides.
	EmptySeconds int
}

func DefaultPolicy() Policy {
	return Policy{
		WordsPerSecond: DefaultWordsPerSecond,
		MinSeconds:     DefaultMinSeconds,
		EmptySeconds:   DefaultEmptySeconds,
	}
}

type Input struct {
	Narration string
}

type Entry struct {
	Index          int `json:"index"`
	StartFrame     int `json:"startFrame"`
	DurationFrames int `json:"durationInFrames"`
}

func (e Entry) EndFrame() int {
	return e.StartFrame + e.DurationFrames
}

type Timeline struct {
	FPS         int     `json:"fps"`
	Entries     []Entry `json:"entries"`
	TotalFrames int     `json:"durationInFrames"`
}

func (p Policy) normalized() Policy {
	if p.WordsPerSecond <= 0 {
		p.WordsPerSecond = DefaultWordsPerSecond
	}
	if p.MinSeconds < 0 {
		p.MinSeconds = 0
	}
	if p.EmptySeconds <= 0 {
		p.EmptySeconds = DefaultEmptySeconds
	}
	return p
}

// Seconds returns the on-screen time for narration, in whole seconds.
func (p Policy) Seconds(narration string) int {
	p = p.normalized()
	words := len(strings.Fields(narration))
	seconds := int(math.Ceil(float64(words) / p.WordsPerSecond))
	return max(seconds, p.MinSeconds)
}

// Duration returns the on-screen time for narration in frames. A non-positive
// fps falls back to DefaultFPS.
func (p Policy) Duration(narration string, fps int) int {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return p.Seconds(narration) * fps
}

// Build lays slides end to end. Entry i starts where entry i-1 ends; the total
// is the sum of all durations, or EmptySeconds worth of frames for no slides.
func (p Policy) Build(slides []Input, fps int) (Timeline, error) {
	if fps <= 0 {
		return Timeline{}, ErrInvalidFPS
	}
	p = p.normalized()

	entries := make([]Entry, len(slides))
	current := 0
	for i, s := range slides {
		d := p.Duration(s.Narration, fps)
		entries[i] = Entry{Index: i, StartFrame: current, DurationFrames: d}
		current += d
	}

	total := current
	if len(slides) == 0 {
		total = p.EmptySeconds * fps
	}

	return Timeline{FPS: fps, Entries: entries, TotalFrames: total}, nil
}

func ComputeDuration(narration string, fps int) int {
	return DefaultPolicy().Duration(narration, fps)
}

func ComputeTimeline(slides []Input, fps int) (Timeline, error) {
	return DefaultPolicy().Build(slides, fps)
}
