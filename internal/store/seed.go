package store

import (
	"context"
	"log/slog"

	"coursecraft/internal/course"
)

var demoCourses = []struct {
	name  string
	level course.Level
}{
	{"Introduction to AI", course.LevelBeginner},
	{"Python Mastery", course.LevelIntermediate},
	{"Web Dev Bootcamp", course.LevelBeginner},
	{"Data Science Basics", course.LevelBeginner},
	{"Machine Learning 101", course.LevelIntermediate},
}

// DemoOutlines returns the fixed outlines used to seed a fresh account.
func DemoOutlines() []*course.Outline {
	outlines := make([]*course.Outline, 0, len(demoCourses))
	for _, d := range demoCourses {
		outlines = append(outlines, &course.Outline{
			Slug:          course.Slugify(d.name),
			Name:          d.name,
			Description:   "A short demo course about " + d.name + ".",
			Level:         d.level,
			TotalChapters: 2,
			Chapters: []course.ChapterOutline{
				{Slug: "introduction", Title: "Introduction", SubTopics: []string{"Overview", "Key ideas"}},
				{Slug: "deep-dive", Title: "Deep Dive", SubTopics: []string{"Core concepts", "Worked example"}},
			},
		})
	}
	return outlines
}

// SeedDemoCourses creates the demo outlines for ownerID. Slides are not
// generated.
func (s *Store) SeedDemoCourses(ctx context.Context, ownerID string) ([]*course.Course, error) {
	var created []*course.Course
	for _, o := range DemoOutlines() {
		c, err := s.CreateCourse(ctx, ownerID, o)
		if err != nil {
			return created, err
		}
		created = append(created, c)
	}
	slog.Info("Seeded demo courses", "owner", ownerID, "count", len(created))
	return created, nil
}
