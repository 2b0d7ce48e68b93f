package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"coursecraft/internal/course"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := Open(Options{Driver: DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(db)
}

func testOutline() *course.Outline {
	return &course.Outline{
		Slug:          "python-for-data-science",
		Name:          "Python for Data Science",
		Description:   "Learn Python and apply it to data.",
		Level:         course.LevelBeginner,
		TotalChapters: 2,
		Chapters: []course.ChapterOutline{
			{Slug: "python-basics", Title: "Python Basics", SubTopics: []string{"Variables", "Loops"}, Notes: "notes"},
			{Slug: "pandas", Title: "Working with Pandas", SubTopics: []string{"DataFrames"}},
		},
	}
}

func testSlides(n int) []*course.Slide {
	slides := make([]*course.Slide, n)
	for i := range slides {
		slides[i] = &course.Slide{
			SlideID:   uuid.NewString()[:8],
			Index:     i,
			Title:     "Slide",
			Narration: "Narration text.",
		}
	}
	return slides
}

func TestCreateAndGetCourse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateCourse(ctx, "user-1", testOutline())
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	if created.ID == uuid.Nil || created.Slug != "python-for-data-science" {
		t.Errorf("created = %+v", created)
	}
	for i, ch := range created.Chapters {
		if ch.ID == uuid.Nil || ch.CourseID != created.ID || ch.Position != i {
			t.Errorf("chapter %d = %+v", i, ch)
		}
	}

	got, err := s.GetCourse(ctx, "user-1", "python-for-data-science")
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if len(got.Chapters) != 2 || got.Chapters[0].Slug != "python-basics" || got.Chapters[1].Slug != "pandas" {
		t.Fatalf("chapters = %+v", got.Chapters)
	}
	if subs := got.Chapters[0].SubTopics; len(subs) != 2 || subs[1] != "Loops" {
		t.Errorf("SubTopics = %v", subs)
	}
	if got.Chapters[0].HasContent() {
		t.Error("new chapter should have no content")
	}

	if _, err := s.GetCourse(ctx, "user-2", "python-for-data-science"); !errors.Is(err, course.ErrNotFound) {
		t.Errorf("GetCourse(other owner) error = %v, want ErrNotFound", err)
	}
}

func TestCreateCourseSlugConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateCourse(ctx, "user-1", testOutline())
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.CreateCourse(ctx, "user-1", testOutline())
	if err != nil {
		t.Fatalf("CreateCourse() second error = %v", err)
	}
	if second.Slug == first.Slug {
		t.Errorf("slugs collide: %q", second.Slug)
	}
	if len(second.Slug) != len(first.Slug)+7 {
		t.Errorf("suffixed slug = %q", second.Slug)
	}

	other, err := s.CreateCourse(ctx, "user-2", testOutline())
	if err != nil {
		t.Fatal(err)
	}
	if other.Slug != first.Slug {
		t.Errorf("other owner slug = %q, want %q", other.Slug, first.Slug)
	}
}

func TestListCoursesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		o := testOutline()
		o.Slug = name
		if _, err := s.CreateCourse(ctx, "user-1", o); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := s.CreateCourse(ctx, "user-2", testOutline()); err != nil {
		t.Fatal(err)
	}

	courses, err := s.ListCourses(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListCourses() error = %v", err)
	}
	if len(courses) != 3 {
		t.Fatalf("len = %d, want 3", len(courses))
	}
	if courses[0].Slug != "third" || courses[2].Slug != "first" {
		t.Errorf("order = %s, %s, %s", courses[0].Slug, courses[1].Slug, courses[2].Slug)
	}
	if len(courses[0].Chapters) != 2 {
		t.Error("chapters not preloaded")
	}
}

func TestCreateSlides(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCourse(ctx, "user-1", testOutline())
	if err != nil {
		t.Fatal(err)
	}
	chapterID := c.Chapters[0].ID

	has, err := s.HasSlides(ctx, chapterID)
	if err != nil || has {
		t.Fatalf("HasSlides() = %v, %v", has, err)
	}

	slides := testSlides(4)
	ref := "/audio/x.mp3"
	slides[0].AudioRef = &ref
	// reversed insert order must still list by index
	slides[0], slides[3] = slides[3], slides[0]

	if err := s.CreateSlides(ctx, chapterID, slides); err != nil {
		t.Fatalf("CreateSlides() error = %v", err)
	}

	has, _ = s.HasSlides(ctx, chapterID)
	if !has {
		t.Error("HasSlides() = false after create")
	}

	got, err := s.ListSlides(ctx, chapterID)
	if err != nil {
		t.Fatalf("ListSlides() error = %v", err)
	}
	for i, sl := range got {
		if sl.Index != i {
			t.Errorf("slide %d has index %d", i, sl.Index)
		}
	}
	if got[0].AudioRef == nil || *got[0].AudioRef != ref {
		t.Errorf("AudioRef = %v", got[0].AudioRef)
	}
	if got[1].AudioRef != nil {
		t.Errorf("AudioRef = %v, want nil", *got[1].AudioRef)
	}

	if err := s.CreateSlides(ctx, chapterID, testSlides(2)); !errors.Is(err, ErrSlidesExist) {
		t.Errorf("second CreateSlides() error = %v, want ErrSlidesExist", err)
	}
	got, _ = s.ListSlides(ctx, chapterID)
	if len(got) != 4 {
		t.Errorf("slides = %d after rejected write, want 4", len(got))
	}

	full, err := s.GetCourse(ctx, "user-1", c.Slug)
	if err != nil {
		t.Fatal(err)
	}
	if !full.Chapters[0].HasContent() || full.Chapters[1].HasContent() {
		t.Error("content flags wrong after slide write")
	}
}

func TestCreateSlidesConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCourse(ctx, "user-1", testOutline())
	if err != nil {
		t.Fatal(err)
	}
	chapterID := c.Chapters[0].ID

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreateSlides(ctx, chapterID, testSlides(4))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrSlidesExist):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d writers succeeded, want 1", succeeded)
	}

	got, _ := s.ListSlides(ctx, chapterID)
	if len(got) != 4 {
		t.Errorf("slides = %d, want 4", len(got))
	}
}

func TestGetChapter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCourse(ctx, "user-1", testOutline())
	if err != nil {
		t.Fatal(err)
	}

	ch, err := s.GetChapter(ctx, c.Chapters[1].ID)
	if err != nil {
		t.Fatalf("GetChapter() error = %v", err)
	}
	if ch.Title != "Working with Pandas" {
		t.Errorf("Title = %q", ch.Title)
	}

	if _, err := s.GetChapter(ctx, uuid.New()); !errors.Is(err, course.ErrNotFound) {
		t.Errorf("GetChapter(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRenameChapter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCourse(ctx, "user-1", testOutline())
	if err != nil {
		t.Fatal(err)
	}
	id := c.Chapters[0].ID

	ch, err := s.RenameChapter(ctx, "user-1", id, "  Python Fundamentals ")
	if err != nil {
		t.Fatalf("RenameChapter() error = %v", err)
	}
	if ch.Title != "Python Fundamentals" {
		t.Errorf("Title = %q", ch.Title)
	}
	stored, _ := s.GetChapter(ctx, id)
	if stored.Title != "Python Fundamentals" {
		t.Errorf("stored Title = %q", stored.Title)
	}

	if _, err := s.RenameChapter(ctx, "user-2", id, "Hijack"); !errors.Is(err, course.ErrNotFound) {
		t.Errorf("RenameChapter(other owner) error = %v, want ErrNotFound", err)
	}
	if _, err := s.RenameChapter(ctx, "user-1", id, " "); !errors.Is(err, course.ErrSchemaValidation) {
		t.Errorf("RenameChapter(blank) error = %v, want ErrSchemaValidation", err)
	}
}

func TestSeedDemoCourses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.SeedDemoCourses(ctx, "demo")
	if err != nil {
		t.Fatalf("SeedDemoCourses() error = %v", err)
	}
	if len(created) != 5 {
		t.Fatalf("created %d, want 5", len(created))
	}
	for _, o := range DemoOutlines() {
		if err := course.ValidateOutline(o); err != nil {
			t.Errorf("demo outline %q invalid: %v", o.Name, err)
		}
	}

	courses, _ := s.ListCourses(ctx, "demo")
	if len(courses) != 5 {
		t.Errorf("listed %d, want 5", len(courses))
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "mysql"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
