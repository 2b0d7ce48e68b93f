package app

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"coursecraft/internal/course"
	"coursecraft/internal/lock"
	"coursecraft/internal/narration"
	"coursecraft/internal/store"
	"coursecraft/pkg/config"
)

type OutlineGenerator interface {
	Generate(ctx context.Context, topic string) (*course.Outline, error)
}

type SlideExpander interface {
	Expand(ctx context.Context, courseName, chapterTitle string, subTopics []string) ([]course.SlideDraft, error)
}

type NarrationSynthesizer interface {
	SynthesizeBatch(ctx context.Context, items []narration.Item) narration.Report
}

// Repository is the persistence the pipeline writes through.
type Repository interface {
	CreateCourse(ctx context.Context, ownerID string, o *course.Outline) (*course.Course, error)
	HasSlides(ctx context.Context, chapterID uuid.UUID) (bool, error)
	ListSlides(ctx context.Context, chapterID uuid.UUID) ([]*course.Slide, error)
	CreateSlides(ctx context.Context, chapterID uuid.UUID, slides []*course.Slide) error
}

var _ Repository = (*store.Store)(nil)

type Service struct {
	cfg       *config.Config
	outline   OutlineGenerator
	slides    SlideExpander
	narration NarrationSynthesizer
	repo      Repository
	store     *store.Store
	locker    lock.Locker
	closers   []func() error
}

type ServiceOptions struct {
	Config    *config.Config
	Outline   OutlineGenerator
	Slides    SlideExpander
	Narration NarrationSynthesizer
	// Repository defaults to Store when nil.
	Repository Repository
	Store      *store.Store
	Locker     lock.Locker
	Closers    []func() error
}

func NewService(opts ServiceOptions) *Service {
	repo := opts.Repository
	if repo == nil && opts.Store != nil {
		repo = opts.Store
	}
	locker := opts.Locker
	if locker == nil {
		locker = lock.NewMemory()
	}
	return &Service{
		cfg:       opts.Config,
		outline:   opts.Outline,
		slides:    opts.Slides,
		narration: opts.Narration,
		repo:      repo,
		store:     opts.Store,
		locker:    locker,
		closers:   opts.Closers,
	}
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) Store() *store.Store {
	return s.store
}

func (s *Service) Locker() lock.Locker {
	return s.locker
}

// Close releases clients opened by BuildService, last opened first.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
