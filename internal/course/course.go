package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MaxChapters          = 3
	MaxSubTopics         = 3
	MinSlidesPerSubTopic = 2
	MaxSlidesPerSubTopic = 4
)

type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", invalid("level", "%q is not one of Beginner, Intermediate, Advanced", s)
	}
	return l, nil
}

// Outline is the course structure produced by the outline generator, before
// anything is persisted.
type Outline struct {
	Slug          string
	Name          string
	Description   string
	Level         Level
	TotalChapters int
	Chapters      []ChapterOutline
}

type ChapterOutline struct {
	Slug      string
	Title     string
	SubTopics []string
	Notes     string
}

// SlideDraft is a slide as returned by the slide expander. SlideID is scoped
// to one generation and is not the storage identity.
type SlideDraft struct {
	SlideID   string
	Index     int
	Title     string
	Subtitle  string
	Narration string
}

type Course struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Slug          string     `gorm:"size:160;not null;uniqueIndex:idx_course_owner_slug" json:"courseId"`
	OwnerID       string     `gorm:"size:128;not null;uniqueIndex:idx_course_owner_slug;index" json:"userId"`
	Name          string     `gorm:"not null" json:"courseName"`
	Description   string     `gorm:"type:text" json:"courseDescription"`
	Level         Level      `gorm:"size:32;not null" json:"level"`
	TotalChapters int        `gorm:"not null" json:"totalChapters"`
	Chapters      []*Chapter `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID" json:"chapters"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (Course) TableName() string { return "courses" }

func (c *Course) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Chapter returns the chapter with the given slug, or nil.
func (c *Course) Chapter(slug string) *Chapter {
	for _, ch := range c.Chapters {
		if ch.Slug == slug {
			return ch
		}
	}
	return nil
}

type Chapter struct {
	ID        uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_chapter_course_slug" json:"courseRef"`
	Slug      string                      `gorm:"size:160;not null;uniqueIndex:idx_chapter_course_slug" json:"chapterId"`
	Position  int                         `gorm:"not null" json:"position"`
	Title     string                      `gorm:"not null" json:"chapterTitle"`
	SubTopics datatypes.JSONSlice[string] `json:"subContent"`
	Notes     string                      `gorm:"type:text" json:"notes,omitempty"`
	Slides    []*Slide                    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChapterID" json:"slides"`
	CreatedAt time.Time                   `json:"createdAt"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

func (Chapter) TableName() string { return "chapters" }

func (c *Chapter) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// HasContent reports whether content generation has produced slides for the chapter.
func (c *Chapter) HasContent() bool {
	return len(c.Slides) > 0
}

type Slide struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChapterID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_slide_chapter_index" json:"chapterRef"`
	SlideID   string    `gorm:"size:160;not null" json:"slideId"`
	Index     int       `gorm:"column:slide_index;not null;uniqueIndex:idx_slide_chapter_index" json:"slideIndex"`
	Title     string    `gorm:"not null" json:"title"`
	Subtitle  string    `json:"subtitle,omitempty"`
	Narration string    `gorm:"type:text;not null" json:"narration"`
	AudioRef  *string   `gorm:"column:audio_ref" json:"audioFileName"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Slide) TableName() string { return "slides" }

func (s *Slide) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
