package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"coursecraft/internal/course"
)

// ErrSlidesExist is returned when slides are written for a chapter that
// already has them.
var ErrSlidesExist = errors.New("chapter already has slides")

const slugAttempts = 5

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func persistence(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, course.ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %w", course.ErrPersistence, op, err)
}

func preloadContent(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Chapters.Slides", func(db *gorm.DB) *gorm.DB { return db.Order("slide_index ASC") })
}

// CreateCourse persists an outline and its chapters in one transaction. If the
// owner already has a course with the outline's slug a short random suffix is
// appended.
func (s *Store) CreateCourse(ctx context.Context, ownerID string, o *course.Outline) (*course.Course, error) {
	c := &course.Course{
		OwnerID:       ownerID,
		Name:          o.Name,
		Description:   o.Description,
		Level:         o.Level,
		TotalChapters: o.TotalChapters,
		Chapters:      make([]*course.Chapter, len(o.Chapters)),
	}
	for i, ch := range o.Chapters {
		c.Chapters[i] = &course.Chapter{
			Slug:      ch.Slug,
			Position:  i,
			Title:     ch.Title,
			SubTopics: append([]string(nil), ch.SubTopics...),
			Notes:     ch.Notes,
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := uniqueSlug(tx, ownerID, o.Slug)
		if err != nil {
			return err
		}
		c.Slug = slug
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, persistence("create course", err)
	}
	return c, nil
}

func uniqueSlug(tx *gorm.DB, ownerID, base string) (string, error) {
	slug := base
	for range slugAttempts {
		var n int64
		if err := tx.Model(&course.Course{}).Where("owner_id = ? AND slug = ?", ownerID, slug).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return slug, nil
		}
		slug = base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	}
	return "", fmt.Errorf("no free slug for %q", base)
}

// GetCourse returns an owner's course by slug with chapters and slides.
func (s *Store) GetCourse(ctx context.Context, ownerID, slug string) (*course.Course, error) {
	var c course.Course
	err := preloadContent(s.db.WithContext(ctx)).
		Where("owner_id = ? AND slug = ?", ownerID, slug).
		First(&c).Error
	if err != nil {
		return nil, persistence("get course", err)
	}
	return &c, nil
}

// ListCourses returns an owner's courses, newest first.
func (s *Store) ListCourses(ctx context.Context, ownerID string) ([]*course.Course, error) {
	var courses []*course.Course
	err := preloadContent(s.db.WithContext(ctx)).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&courses).Error
	if err != nil {
		return nil, persistence("list courses", err)
	}
	return courses, nil
}

func (s *Store) GetChapter(ctx context.Context, id uuid.UUID) (*course.Chapter, error) {
	var ch course.Chapter
	err := s.db.WithContext(ctx).
		Preload("Slides", func(db *gorm.DB) *gorm.DB { return db.Order("slide_index ASC") }).
		First(&ch, "id = ?", id).Error
	if err != nil {
		return nil, persistence("get chapter", err)
	}
	return &ch, nil
}

func (s *Store) HasSlides(ctx context.Context, chapterID uuid.UUID) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&course.Slide{}).Where("chapter_id = ?", chapterID).Count(&n).Error; err != nil {
		return false, persistence("count slides", err)
	}
	return n > 0, nil
}

// CreateSlides writes a chapter's full slide deck atomically. A chapter that
// already has slides is left untouched and ErrSlidesExist is returned.
func (s *Store) CreateSlides(ctx context.Context, chapterID uuid.UUID, slides []*course.Slide) error {
	if len(slides) == 0 {
		return nil
	}
	for _, sl := range slides {
		sl.ChapterID = chapterID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&course.Slide{}).Where("chapter_id = ?", chapterID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSlidesExist
		}
		return tx.Create(&slides).Error
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSlidesExist), errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrSlidesExist
	default:
		return persistence("create slides", err)
	}
}

func (s *Store) ListSlides(ctx context.Context, chapterID uuid.UUID) ([]*course.Slide, error) {
	var slides []*course.Slide
	err := s.db.WithContext(ctx).
		Where("chapter_id = ?", chapterID).
		Order("slide_index ASC").
		Find(&slides).Error
	if err != nil {
		return nil, persistence("list slides", err)
	}
	return slides, nil
}

// RenameChapter changes a chapter title. The chapter must belong to one of
// ownerID's courses.
func (s *Store) RenameChapter(ctx context.Context, ownerID string, chapterID uuid.UUID, title string) (*course.Chapter, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &course.ValidationError{Field: "chapterTitle", Reason: "must not be empty"}
	}

	var ch course.Chapter
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&course.Course{}).Select("id").Where("owner_id = ?", ownerID)
		if err := tx.Where("id = ? AND course_id IN (?)", chapterID, owned).First(&ch).Error; err != nil {
			return err
		}
		ch.Title = title
		return tx.Model(&ch).Update("title", title).Error
	})
	if err != nil {
		return nil, persistence("rename chapter", err)
	}
	return &ch, nil
}
