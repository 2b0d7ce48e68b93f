package timeline

import (
	"strings"
	"testing"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestComputeDuration(t *testing.T) {
	tests := []struct {
		name      string
		narration string
		fps       int
		want      int
	}{
		{name: "twentyFiveWords", narration: words(25), fps: 30, want: 300},
		{name: "empty", narration: "", fps: 30, want: 150},
		{name: "belowMinimum", narration: words(3), fps: 30, want: 150},
		{name: "roundsUp", narration: words(26), fps: 30, want: 330},
		{name: "extraWhitespace", narration: "  a\tb\n\nc  ", fps: 30, want: 150},
		{name: "otherFPS", narration: words(25), fps: 24, want: 240},
		{name: "zeroFPSUsesDefault", narration: words(25), fps: 0, want: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeDuration(tt.narration, tt.fps); got != tt.want {
				t.Errorf("ComputeDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDurationMonotonic(t *testing.T) {
	p := DefaultPolicy()
	prev := 0
	for n := 0; n <= 200; n++ {
		d := p.Duration(words(n), 30)
		if d < prev {
			t.Fatalf("Duration(%d words) = %d, less than %d", n, d, prev)
		}
		if d < p.MinSeconds*30 {
			t.Fatalf("Duration(%d words) = %d, below minimum", n, d)
		}
		prev = d
	}
}

func TestComputeTimeline(t *testing.T) {
	slides := []Input{
		{Narration: words(25)},
		{Narration: words(2)},
		{Narration: words(40)},
	}

	tl, err := ComputeTimeline(slides, 30)
	if err != nil {
		t.Fatalf("ComputeTimeline() error = %v", err)
	}

	want := []Entry{
		{Index: 0, StartFrame: 0, DurationFrames: 300},
		{Index: 1, StartFrame: 300, DurationFrames: 150},
		{Index: 2, StartFrame: 450, DurationFrames: 480},
	}
	if len(tl.Entries) != len(want) {
		t.Fatalf("len(Entries) = %d, want %d", len(tl.Entries), len(want))
	}
	for i := range want {
		if tl.Entries[i] != want[i] {
			t.Errorf("Entries[%d] = %+v, want %+v", i, tl.Entries[i], want[i])
		}
	}
	if tl.TotalFrames != 930 {
		t.Errorf("TotalFrames = %d, want 930", tl.TotalFrames)
	}
	if last := tl.Entries[len(tl.Entries)-1]; last.EndFrame() != tl.TotalFrames {
		t.Errorf("last EndFrame = %d, want %d", last.EndFrame(), tl.TotalFrames)
	}
}

func TestComputeTimelineIntervalsDoNotOverlap(t *testing.T) {
	var slides []Input
	for n := 0; n < 20; n++ {
		slides = append(slides, Input{Narration: words(n * 3)})
	}

	tl, err := ComputeTimeline(slides, 25)
	if err != nil {
		t.Fatalf("ComputeTimeline() error = %v", err)
	}
	for i := 1; i < len(tl.Entries); i++ {
		prev, cur := tl.Entries[i-1], tl.Entries[i]
		if cur.StartFrame != prev.EndFrame() {
			t.Errorf("entry %d starts at %d, previous ends at %d", i, cur.StartFrame, prev.EndFrame())
		}
		if cur.StartFrame <= prev.StartFrame {
			t.Errorf("entry %d start %d not after %d", i, cur.StartFrame, prev.StartFrame)
		}
	}
	if tl.Entries[len(tl.Entries)-1].EndFrame() != tl.TotalFrames {
		t.Error("last entry does not end at total")
	}
}

func TestComputeTimelineEmpty(t *testing.T) {
	tl, err := ComputeTimeline(nil, 30)
	if err != nil {
		t.Fatalf("ComputeTimeline() error = %v", err)
	}
	if tl.TotalFrames != 90 {
		t.Errorf("TotalFrames = %d, want 90", tl.TotalFrames)
	}
	if len(tl.Entries) != 0 {
		t.Errorf("Entries = %v, want empty", tl.Entries)
	}
}

func TestComputeTimelineInvalidFPS(t *testing.T) {
	if _, err := ComputeTimeline([]Input{{Narration: "hi"}}, 0); err != ErrInvalidFPS {
		t.Errorf("ComputeTimeline(fps=0) error = %v, want ErrInvalidFPS", err)
	}
}

func TestCustomPolicy(t *testing.T) {
	p := Policy{WordsPerSecond: 1, MinSeconds: 0}
	if got := p.Duration(words(7), 10); got != 70 {
		t.Errorf("Duration() = %d, want 70", got)
	}
	if got := p.Duration("", 10); got != 0 {
		t.Errorf("Duration(empty) = %d, want 0", got)
	}
}
