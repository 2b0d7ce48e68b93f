package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"coursecraft/internal/course"
	"coursecraft/internal/lock"
	"coursecraft/internal/narration"
	"coursecraft/internal/observability"
	"coursecraft/internal/store"
	"coursecraft/internal/timeline"
)

const defaultLockTTL = 10 * time.Minute

type PipelineOptions struct {
	// Await makes GenerateAndPersistCourse return only after every chapter
	// has been generated.
	Await bool
	// Parallelism caps concurrent chapters of one course; zero means one
	// goroutine per chapter.
	Parallelism int
	LockTTL     time.Duration
	// FPS is used to lay out a new deck before it is saved.
	FPS int
	// OnCourseDone is called with the report of each background fan-out.
	OnCourseDone func(CourseReport)
}

// Pipeline runs course generation: outline, persistence, then per-chapter
// slides and narration in the background.
type Pipeline struct {
	service *Service
	opts    PipelineOptions
	flight  singleflight.Group
	wg      sync.WaitGroup
}

type ChapterRequest struct {
	CourseID     uuid.UUID
	CourseName   string
	ChapterID    uuid.UUID
	ChapterTitle string
	SubTopics    []string
}

// ChapterOutcome is the result of one chapter's content generation. Skipped is
// set when the chapter already had slides; Slides then holds the existing
// deck. InProgress is set when another worker holds the chapter and no deck
// exists yet. MissingAudio lists slide ids whose narration could not be
// synthesized. Frames is the playback length of a newly generated deck.
type ChapterOutcome struct {
	ChapterID    uuid.UUID
	Slides       []*course.Slide
	Skipped      bool
	InProgress   bool
	MissingAudio []string
	Frames       int
	Err          error
}

type CourseReport struct {
	CourseID uuid.UUID
	Chapters []ChapterOutcome
}

func (r CourseReport) Generated() int {
	n := 0
	for _, c := range r.Chapters {
		if c.Err == nil && !c.Skipped && !c.InProgress {
			n++
		}
	}
	return n
}

func (r CourseReport) Skipped() int {
	n := 0
	for _, c := range r.Chapters {
		if c.Skipped {
			n++
		}
	}
	return n
}

func (r CourseReport) InProgress() int {
	n := 0
	for _, c := range r.Chapters {
		if c.InProgress {
			n++
		}
	}
	return n
}

func (r CourseReport) Failed() int {
	n := 0
	for _, c := range r.Chapters {
		if c.Err != nil {
			n++
		}
	}
	return n
}

func NewPipeline(service *Service, opts PipelineOptions) *Pipeline {
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.FPS <= 0 {
		opts.FPS = timeline.DefaultFPS
	}
	return &Pipeline{service: service, opts: opts}
}

// PipelineOptionsFromConfig reads the content section of the service config.
func PipelineOptionsFromConfig(service *Service) PipelineOptions {
	cfg := service.Config()
	if cfg == nil {
		return PipelineOptions{}
	}
	return PipelineOptions{
		Await:   cfg.Content.Await,
		LockTTL: cfg.Content.LockTTL,
		FPS:     cfg.Content.FPS,
	}
}

// GenerateAndPersistCourse creates a course from topic and persists its
// outline. Chapter content is generated afterwards in the background unless
// the pipeline awaits it. A failed outline persists nothing.
func (p *Pipeline) GenerateAndPersistCourse(ctx context.Context, topic, ownerID string) (*course.Course, error) {
	ctx, span := observability.Tracer().Start(ctx, "pipeline.course")
	defer span.End()

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, &course.GenerationError{Stage: "outline", Err: course.ErrEmptyTopic}
	}
	span.SetAttributes(attribute.String("course.topic", topic), attribute.String("course.owner", ownerID))

	slog.Info("Generating outline...", "topic", topic)
	o, err := p.service.outline.Generate(ctx, topic)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "outline failed")
		return nil, err
	}

	c, err := p.service.repo.CreateCourse(ctx, ownerID, o)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist course failed")
		return nil, fmt.Errorf("persist course: %w", err)
	}
	span.SetAttributes(attribute.String("course.id", c.ID.String()), attribute.Int("course.chapters", len(c.Chapters)))
	slog.Info("Course created", "course", c.Slug, "id", c.ID, "chapters", len(c.Chapters))

	requests := chapterRequests(c)
	done := make(chan struct{})
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(done)
		report := p.generateCourseContent(context.WithoutCancel(ctx), c.ID, requests)
		if p.opts.OnCourseDone != nil {
			p.opts.OnCourseDone(report)
		}
	}()

	if p.opts.Await {
		select {
		case <-done:
		case <-ctx.Done():
			return c, ctx.Err()
		}
	}
	return c, nil
}

// Wait blocks until all background chapter generation has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func chapterRequests(c *course.Course) []ChapterRequest {
	requests := make([]ChapterRequest, 0, len(c.Chapters))
	for _, ch := range c.Chapters {
		requests = append(requests, ChapterRequest{
			CourseID:     c.ID,
			CourseName:   c.Name,
			ChapterID:    ch.ID,
			ChapterTitle: ch.Title,
			SubTopics:    ch.SubTopics,
		})
	}
	return requests
}

// ChapterRequestFor builds the generation request for one persisted chapter.
func ChapterRequestFor(c *course.Course, ch *course.Chapter) ChapterRequest {
	return ChapterRequest{
		CourseID:     c.ID,
		CourseName:   c.Name,
		ChapterID:    ch.ID,
		ChapterTitle: ch.Title,
		SubTopics:    ch.SubTopics,
	}
}

func (p *Pipeline) generateCourseContent(ctx context.Context, courseID uuid.UUID, requests []ChapterRequest) CourseReport {
	report := CourseReport{CourseID: courseID, Chapters: make([]ChapterOutcome, len(requests))}

	var g errgroup.Group
	if p.opts.Parallelism > 0 {
		g.SetLimit(p.opts.Parallelism)
	}
	for i, req := range requests {
		g.Go(func() error {
			report.Chapters[i] = p.GenerateChapterContent(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("Course content complete",
		"course", courseID,
		"generated", report.Generated(),
		"skipped", report.Skipped(),
		"inProgress", report.InProgress(),
		"failed", report.Failed(),
	)
	return report
}

// GenerateChapterContent expands a chapter into slides, narrates them and
// persists the deck. A chapter that already has slides is skipped. Failures
// are logged and returned in the outcome; they never affect other chapters.
// Once started the run is not tied to ctx cancellation, so a caller that goes
// away does not discard work already paid for.
func (p *Pipeline) GenerateChapterContent(ctx context.Context, req ChapterRequest) ChapterOutcome {
	ctx = context.WithoutCancel(ctx)
	key := req.ChapterID.String()
	v, _, shared := p.flight.Do(key, func() (any, error) {
		return p.generateChapter(ctx, req), nil
	})
	outcome := v.(ChapterOutcome)
	if shared {
		slog.Debug("Chapter generation shared with concurrent caller", "chapter", key)
	}
	return outcome
}

func (p *Pipeline) generateChapter(ctx context.Context, req ChapterRequest) (outcome ChapterOutcome) {
	outcome.ChapterID = req.ChapterID
	log := slog.With("chapter", req.ChapterID, "title", req.ChapterTitle)

	ctx, span := observability.Tracer().Start(ctx, "pipeline.chapter")
	span.SetAttributes(attribute.String("chapter.id", req.ChapterID.String()))
	defer func() {
		if outcome.Err != nil {
			span.RecordError(outcome.Err)
			span.SetStatus(codes.Error, "chapter failed")
			log.Error("Chapter generation failed", "error", outcome.Err)
		}
		span.SetAttributes(attribute.Bool("chapter.skipped", outcome.Skipped))
		span.End()
	}()

	lease, err := p.service.locker.Acquire(ctx, "chapter:"+req.ChapterID.String(), p.opts.LockTTL)
	if errors.Is(err, lock.ErrLocked) {
		log.Info("Chapter generation already running elsewhere")
		outcome.InProgress = true
		return outcome
	}
	if err != nil {
		outcome.Err = fmt.Errorf("acquire chapter lock: %w", err)
		return outcome
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to release chapter lock", "error", err)
		}
	}()

	exists, err := p.service.repo.HasSlides(ctx, req.ChapterID)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	if exists {
		return p.existing(ctx, outcome)
	}

	log.Info("Expanding chapter into slides...", "subTopics", len(req.SubTopics))
	drafts, err := p.service.slides.Expand(ctx, req.CourseName, req.ChapterTitle, req.SubTopics)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	items := make([]narration.Item, len(drafts))
	for i, d := range drafts {
		items[i] = narration.Item{Key: NarrationKey(req.ChapterID, d.SlideID), Text: d.Narration}
	}
	log.Info("Synthesizing narration...", "slides", len(items))
	report := p.service.narration.SynthesizeBatch(ctx, items)

	deck := make([]*course.Slide, len(drafts))
	for i, d := range drafts {
		deck[i] = &course.Slide{
			SlideID:   d.SlideID,
			Index:     d.Index,
			Title:     d.Title,
			Subtitle:  d.Subtitle,
			Narration: d.Narration,
		}
		if ref, ok := report.Refs[items[i].Key]; ok {
			deck[i].AudioRef = &ref
		} else {
			outcome.MissingAudio = append(outcome.MissingAudio, d.SlideID)
		}
	}

	tl, err := BuildChapterTimeline(&course.Chapter{Slides: deck}, p.opts.FPS)
	if err != nil {
		outcome.Err = fmt.Errorf("lay out chapter: %w", err)
		return outcome
	}
	outcome.Frames = tl.DurationInFrames
	span.SetAttributes(attribute.Int("chapter.frames", tl.DurationInFrames))

	err = p.service.repo.CreateSlides(ctx, req.ChapterID, deck)
	if errors.Is(err, store.ErrSlidesExist) {
		log.Info("Chapter slides written concurrently, keeping existing deck")
		return p.existing(ctx, outcome)
	}
	if err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Slides = deck
	log.Info("Chapter content saved", "slides", len(deck), "missingAudio", len(outcome.MissingAudio), "frames", outcome.Frames, "fps", p.opts.FPS)
	return outcome
}

func (p *Pipeline) existing(ctx context.Context, outcome ChapterOutcome) ChapterOutcome {
	outcome.Skipped = true
	slides, err := p.service.repo.ListSlides(ctx, outcome.ChapterID)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Slides = slides
	return outcome
}

// NarrationKey names a slide's narration asset. It is unique across chapters
// and stable for a given chapter and slide id.
func NarrationKey(chapterID uuid.UUID, slideID string) string {
	return chapterID.String() + "-" + slideID
}
