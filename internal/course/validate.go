package course

import (
	"regexp"
	"sort"
	"strings"
)

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and collapses every run of characters outside
// [a-z0-9] into a single dash.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ValidateOutline checks an outline against the course schema. Slugs are
// normalised in place; nothing is truncated.
func ValidateOutline(o *Outline) error {
	if o == nil {
		return invalid("", "outline is missing")
	}

	o.Slug = Slugify(o.Slug)
	if o.Slug == "" {
		o.Slug = Slugify(o.Name)
	}
	if o.Slug == "" {
		return invalid("courseId", "required")
	}
	if strings.TrimSpace(o.Name) == "" {
		return invalid("courseName", "required")
	}
	if strings.TrimSpace(o.Description) == "" {
		return invalid("courseDescription", "required")
	}
	if !o.Level.Valid() {
		return invalid("level", "%q is not one of Beginner, Intermediate, Advanced", o.Level)
	}
	if len(o.Chapters) == 0 {
		return invalid("chapters", "at least one chapter is required")
	}
	if len(o.Chapters) > MaxChapters {
		return invalid("chapters", "%d chapters exceeds the maximum of %d", len(o.Chapters), MaxChapters)
	}
	if o.TotalChapters != len(o.Chapters) {
		return invalid("totalChapters", "declared %d but outline has %d chapters", o.TotalChapters, len(o.Chapters))
	}

	seen := make(map[string]bool, len(o.Chapters))
	for i := range o.Chapters {
		ch := &o.Chapters[i]
		if err := validateChapter(ch); err != nil {
			return err
		}
		if seen[ch.Slug] {
			return invalid("chapters.chapterId", "duplicate chapter id %q", ch.Slug)
		}
		seen[ch.Slug] = true
	}

	return nil
}

func validateChapter(ch *ChapterOutline) error {
	ch.Slug = Slugify(ch.Slug)
	if ch.Slug == "" {
		return invalid("chapters.chapterId", "required")
	}
	if strings.TrimSpace(ch.Title) == "" {
		return invalid("chapters.chapterTitle", "required for chapter %q", ch.Slug)
	}
	if len(ch.SubTopics) == 0 {
		return invalid("chapters.subContent", "chapter %q has no sub-topics", ch.Slug)
	}
	if len(ch.SubTopics) > MaxSubTopics {
		return invalid("chapters.subContent", "chapter %q has %d sub-topics, maximum is %d", ch.Slug, len(ch.SubTopics), MaxSubTopics)
	}
	for _, topic := range ch.SubTopics {
		if strings.TrimSpace(topic) == "" {
			return invalid("chapters.subContent", "chapter %q has an empty sub-topic", ch.Slug)
		}
	}
	return nil
}

// ValidateSlides checks an expanded deck for a chapter with subTopics
// sub-topics and returns it ordered by index. Indices must form 0..n-1.
func ValidateSlides(drafts []SlideDraft, subTopics int) ([]SlideDraft, error) {
	if len(drafts) == 0 {
		return nil, invalid("slides", "no slides returned")
	}

	if subTopics > 0 {
		lo, hi := subTopics*MinSlidesPerSubTopic, subTopics*MaxSlidesPerSubTopic
		if len(drafts) < lo || len(drafts) > hi {
			return nil, invalid("slides", "%d slides for %d sub-topics, want between %d and %d", len(drafts), subTopics, lo, hi)
		}
	}

	ids := make(map[string]bool, len(drafts))
	for i, d := range drafts {
		if strings.TrimSpace(d.SlideID) == "" {
			return nil, invalid("slideId", "missing on slide %d", i)
		}
		if ids[d.SlideID] {
			return nil, invalid("slideId", "duplicate slide id %q", d.SlideID)
		}
		ids[d.SlideID] = true
		if strings.TrimSpace(d.Title) == "" {
			return nil, invalid("title", "missing on slide %q", d.SlideID)
		}
		if strings.TrimSpace(d.Narration) == "" {
			return nil, invalid("narration.fullText", "missing on slide %q", d.SlideID)
		}
	}

	ordered := make([]SlideDraft, len(drafts))
	copy(ordered, drafts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	for i, d := range ordered {
		if d.Index != i {
			return nil, invalid("slideIndex", "indices must be contiguous from 0, found %d at position %d", d.Index, i)
		}
	}

	return ordered, nil
}
