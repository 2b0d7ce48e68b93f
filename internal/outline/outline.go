// Package outline turns a free-text topic into a validated course outline.
package outline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"coursecraft/internal/course"
	"coursecraft/internal/llm"
	"coursecraft/pkg/prompts"
)

const stage = "outline"

type wireChapter struct {
	ChapterID    string   `json:"chapterId" jsonschema_description:"Unique slug-style chapter identifier"`
	ChapterTitle string   `json:"chapterTitle"`
	SubContent   []string `json:"subContent" jsonschema:"minItems=1,maxItems=3"`
	Notes        string   `json:"notes" jsonschema_description:"Study notes for the chapter, markdown allowed"`
}

type wireOutline struct {
	CourseID          string        `json:"courseId" jsonschema_description:"Short slug-style course identifier"`
	CourseName        string        `json:"courseName"`
	CourseDescription string        `json:"courseDescription"`
	Level             string        `json:"level" jsonschema:"enum=Beginner,enum=Intermediate,enum=Advanced"`
	TotalChapters     *int          `json:"totalChapters"`
	Chapters          []wireChapter `json:"chapters" jsonschema:"minItems=1,maxItems=3"`
}

var outlineSchema = llm.GenerateSchema[wireOutline]()

type Generator struct {
	provider llm.Provider
	prompts  *prompts.Prompts
}

func NewGenerator(provider llm.Provider, p *prompts.Prompts) *Generator {
	return &Generator{provider: provider, prompts: p}
}

// Generate asks the model for an outline of topic and returns it only if it
// fully satisfies the course constraints. It never returns a partial outline.
func (g *Generator) Generate(ctx context.Context, topic string) (*course.Outline, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, &course.GenerationError{Stage: stage, Err: course.ErrEmptyTopic}
	}

	params := prompts.OutlineParams{
		Topic:        topic,
		MaxChapters:  course.MaxChapters,
		MaxSubTopics: course.MaxSubTopics,
	}
	system, err := g.prompts.RenderOutlineSystem(params)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	user, err := g.prompts.RenderOutline(params)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	content, err := g.provider.Complete(ctx, llm.Request{
		System:     system,
		User:       user,
		SchemaName: "course_outline",
		Schema:     outlineSchema,
	})
	if err != nil {
		return nil, &course.GenerationError{Stage: stage, Err: course.Upstream(err)}
	}

	o, err := Parse(content)
	if err != nil {
		slog.Warn("Rejected course outline", "topic", topic, "provider", g.provider.Name(), "error", err)
		return nil, &course.GenerationError{Stage: stage, Err: err}
	}

	slog.Info("Generated course outline", "topic", topic, "course", o.Slug, "chapters", len(o.Chapters))
	return o, nil
}

// Parse decodes a model response into a validated outline. Any structural
// problem is reported as an error wrapping course.ErrSchemaValidation.
func Parse(content string) (*course.Outline, error) {
	var w wireOutline
	if err := llm.DecodeStrict(content, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", course.ErrSchemaValidation, err)
	}

	if w.TotalChapters == nil {
		return nil, fmt.Errorf("%w: totalChapters: required", course.ErrSchemaValidation)
	}

	o := &course.Outline{
		Slug:          w.CourseID,
		Name:          strings.TrimSpace(w.CourseName),
		Description:   strings.TrimSpace(w.CourseDescription),
		Level:         course.Level(strings.TrimSpace(w.Level)),
		TotalChapters: *w.TotalChapters,
		Chapters:      make([]course.ChapterOutline, len(w.Chapters)),
	}
	for i, ch := range w.Chapters {
		o.Chapters[i] = course.ChapterOutline{
			Slug:      ch.ChapterID,
			Title:     strings.TrimSpace(ch.ChapterTitle),
			SubTopics: ch.SubContent,
			Notes:     ch.Notes,
		}
	}

	if err := course.ValidateOutline(o); err != nil {
		return nil, err
	}
	return o, nil
}
