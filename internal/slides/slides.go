// Package slides expands a chapter's sub-topics into narrated slides.
package slides

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"coursecraft/internal/course"
	"coursecraft/internal/llm"
	"coursecraft/pkg/prompts"
)

const stage = "slides"

type wireNarration struct {
	FullText string `json:"fullText" jsonschema_description:"Two or three conversational sentences of voiceover"`
}

type wireSlide struct {
	SlideID    string        `json:"slideId"`
	SlideIndex *int          `json:"slideIndex" jsonschema:"minimum=0"`
	Title      string        `json:"title"`
	Subtitle   string        `json:"subtitle"`
	Narration  wireNarration `json:"narration"`
}

type wireDeck struct {
	Slides []wireSlide `json:"slides"`
}

var deckSchema = llm.GenerateSchema[wireDeck]()

type Expander struct {
	provider llm.Provider
	prompts  *prompts.Prompts
}

func NewExpander(provider llm.Provider, p *prompts.Prompts) *Expander {
	return &Expander{provider: provider, prompts: p}
}

// Expand generates two to four slides per sub-topic and returns them ordered
// by index. The whole expansion is rejected if any slide is invalid.
func (e *Expander) Expand(ctx context.Context, courseName, chapterTitle string, subTopics []string) ([]course.SlideDraft, error) {
	if len(subTopics) == 0 {
		return nil, &course.GenerationError{Stage: stage, Err: fmt.Errorf("%w: chapter %q has no sub-topics", course.ErrSchemaValidation, chapterTitle)}
	}

	params := prompts.SlidesParams{
		CourseName:   courseName,
		ChapterTitle: chapterTitle,
		SubTopics:    subTopics,
		MinSlides:    course.MinSlidesPerSubTopic,
		MaxSlides:    course.MaxSlidesPerSubTopic,
	}
	system, err := e.prompts.RenderSlidesSystem(params)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	user, err := e.prompts.RenderSlides(params)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	content, err := e.provider.Complete(ctx, llm.Request{
		System:     system,
		User:       user,
		SchemaName: "chapter_slides",
		Schema:     deckSchema,
	})
	if err != nil {
		return nil, &course.GenerationError{Stage: stage, Err: course.Upstream(err)}
	}

	drafts, err := Parse(content, len(subTopics))
	if err != nil {
		slog.Warn("Rejected slide expansion", "chapter", chapterTitle, "provider", e.provider.Name(), "error", err)
		return nil, &course.GenerationError{Stage: stage, Err: err}
	}

	slog.Info("Expanded chapter into slides", "chapter", chapterTitle, "sub_topics", len(subTopics), "slides", len(drafts))
	return drafts, nil
}

// Parse decodes a model response (a bare array or {"slides": [...]}) and
// validates it for a chapter with subTopics sub-topics.
func Parse(content string, subTopics int) ([]course.SlideDraft, error) {
	wire, err := llm.DecodeArray[wireSlide](content, []string{"slides"})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", course.ErrSchemaValidation, err)
	}

	drafts := make([]course.SlideDraft, len(wire))
	for i, s := range wire {
		if s.SlideIndex == nil {
			return nil, fmt.Errorf("%w: slideIndex: missing on slide %d", course.ErrSchemaValidation, i)
		}
		drafts[i] = course.SlideDraft{
			SlideID:   strings.TrimSpace(s.SlideID),
			Index:     *s.SlideIndex,
			Title:     strings.TrimSpace(s.Title),
			Subtitle:  strings.TrimSpace(s.Subtitle),
			Narration: strings.TrimSpace(s.Narration.FullText),
		}
	}

	return course.ValidateSlides(drafts, subTopics)
}
