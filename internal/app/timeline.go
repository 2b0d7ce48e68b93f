package app

import (
	"coursecraft/internal/course"
	"coursecraft/internal/timeline"
)

// SlideFrame is a slide placed on the playback timeline, shaped for the
// external video renderer.
type SlideFrame struct {
	SlideID          string  `json:"slideId"`
	Title            string  `json:"title"`
	Subtitle         string  `json:"subtitle,omitempty"`
	Narration        string  `json:"narration"`
	AudioRef         *string `json:"audioFileName"`
	StartFrame       int     `json:"startFrame"`
	DurationInFrames int     `json:"durationInFrames"`
}

type ChapterTimeline struct {
	ChapterID        string       `json:"chapterId"`
	ChapterTitle     string       `json:"chapterTitle"`
	FPS              int          `json:"fps"`
	DurationInFrames int          `json:"durationInFrames"`
	Slides           []SlideFrame `json:"slides"`
}

// BuildChapterTimeline schedules the chapter's slides in index order.
func BuildChapterTimeline(ch *course.Chapter, fps int) (*ChapterTimeline, error) {
	inputs := make([]timeline.Input, len(ch.Slides))
	for i, s := range ch.Slides {
		inputs[i] = timeline.Input{Narration: s.Narration}
	}

	tl, err := timeline.ComputeTimeline(inputs, fps)
	if err != nil {
		return nil, err
	}

	frames := make([]SlideFrame, len(ch.Slides))
	for i, s := range ch.Slides {
		frames[i] = SlideFrame{
			SlideID:          s.SlideID,
			Title:            s.Title,
			Subtitle:         s.Subtitle,
			Narration:        s.Narration,
			AudioRef:         s.AudioRef,
			StartFrame:       tl.Entries[i].StartFrame,
			DurationInFrames: tl.Entries[i].DurationFrames,
		}
	}

	return &ChapterTimeline{
		ChapterID:        ch.Slug,
		ChapterTitle:     ch.Title,
		FPS:              tl.FPS,
		DurationInFrames: tl.TotalFrames,
		Slides:           frames,
	}, nil
}
