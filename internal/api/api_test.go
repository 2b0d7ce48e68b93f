package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"coursecraft/internal/app"
	"coursecraft/internal/course"
	"coursecraft/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenerator struct {
	store      *store.Store
	courseErr  error
	chapterErr error
	inProgress bool
	calls      int
}

func (f *fakeGenerator) GenerateAndPersistCourse(ctx context.Context, topic, ownerID string) (*course.Course, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, &course.GenerationError{Stage: "outline", Err: course.ErrEmptyTopic}
	}
	if f.courseErr != nil {
		return nil, f.courseErr
	}
	return f.store.CreateCourse(ctx, ownerID, testOutline())
}

func (f *fakeGenerator) GenerateChapterContent(ctx context.Context, req app.ChapterRequest) app.ChapterOutcome {
	f.calls++
	out := app.ChapterOutcome{ChapterID: req.ChapterID}
	if f.chapterErr != nil {
		out.Err = f.chapterErr
		return out
	}
	if f.inProgress {
		out.InProgress = true
		return out
	}
	ref := "/audio/" + app.NarrationKey(req.ChapterID, "s1") + ".wav"
	slides := []*course.Slide{
		{SlideID: "s1", Index: 0, Title: "One", Narration: strings.Repeat("word ", 25), AudioRef: &ref},
		{SlideID: "s2", Index: 1, Title: "Two", Narration: "short"},
	}
	if err := f.store.CreateSlides(ctx, req.ChapterID, slides); err != nil {
		out.Err = err
		return out
	}
	out.Slides = slides
	return out
}

func testOutline() *course.Outline {
	return &course.Outline{
		Slug:          "python-for-data-science",
		Name:          "Python for Data Science",
		Description:   "Learn Python and apply it to data.",
		Level:         course.LevelBeginner,
		TotalChapters: 2,
		Chapters: []course.ChapterOutline{
			{Slug: "python-basics", Title: "Python Basics", SubTopics: []string{"Variables"}},
			{Slug: "pandas", Title: "Working with Pandas", SubTopics: []string{"DataFrames"}},
		},
	}
}

type testServer struct {
	router    *gin.Engine
	store     *store.Store
	generator *fakeGenerator
	publicDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(store.Options{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(dir, "api.db") + "?_foreign_keys=on&_busy_timeout=5000",
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	st := store.New(db)
	gen := &fakeGenerator{store: st}
	public := filepath.Join(dir, "public")
	router := NewRouter(st, gen, Options{
		CORSOrigins: []string{"http://localhost:3000"},
		PublicDir:   public,
	})
	return &testServer{router: router, store: st, generator: gen, publicDir: public}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

type courseEnvelope struct {
	Success bool           `json:"success"`
	Course  *course.Course `json:"course"`
}

type slidesEnvelope struct {
	Success bool            `json:"success"`
	Slides  []*course.Slide `json:"slides"`
	Message string          `json:"message"`
}

func TestRequireUser(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/courses", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestCreateAndListCourses(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/courses", "user-1", map[string]string{"topic": "Python for Data Science"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[courseEnvelope](t, rec)
	if !created.Success || created.Course.Slug != "python-for-data-science" {
		t.Errorf("created = %+v", created)
	}

	rec = s.do(t, http.MethodGet, "/api/courses", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if list := decode[[]*course.Course](t, rec); len(list) != 1 || len(list[0].Chapters) != 2 {
		t.Errorf("list = %+v", list)
	}

	rec = s.do(t, http.MethodGet, "/api/courses", "user-2", nil)
	if list := decode[[]*course.Course](t, rec); len(list) != 0 {
		t.Errorf("other user sees %d courses", len(list))
	}

	rec = s.do(t, http.MethodGet, "/api/courses/python-for-data-science", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/api/courses/python-for-data-science", "user-2", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get as other user status = %d, want 404", rec.Code)
	}
}

func TestCreateCourseErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		err    error
		status int
	}{
		{"missingTopic", map[string]string{}, nil, http.StatusBadRequest},
		{"blankTopic", map[string]string{"topic": "  "}, nil, http.StatusBadRequest},
		{"schemaFailure", map[string]string{"topic": "AI"}, &course.GenerationError{Stage: "outline", Err: &course.ValidationError{Reason: "bad"}}, http.StatusBadGateway},
		{"upstreamFailure", map[string]string{"topic": "AI"}, &course.GenerationError{Stage: "outline", Err: course.Upstream(errors.New("503"))}, http.StatusBadGateway},
		{"persistenceFailure", map[string]string{"topic": "AI"}, course.ErrPersistence, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.generator.courseErr = tt.err

			rec := s.do(t, http.MethodPost, "/api/courses", "user-1", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if resp := decode[errorResponse](t, rec); resp.Success || resp.Error == "" {
				t.Errorf("error body = %+v", resp)
			}
		})
	}
}

func TestGenerateChapter(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	if _, err := s.store.CreateCourse(ctx, "user-1", testOutline()); err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	path := "/api/courses/python-for-data-science/chapters/pandas/generate"

	rec := s.do(t, http.MethodPost, path, "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	first := decode[slidesEnvelope](t, rec)
	if len(first.Slides) != 2 || first.Message != "Generated 2 slides" {
		t.Errorf("first = %+v", first)
	}

	rec = s.do(t, http.MethodPost, path, "user-1", nil)
	second := decode[slidesEnvelope](t, rec)
	if second.Message != slidesExistMessage || len(second.Slides) != 2 {
		t.Errorf("second = %+v", second)
	}
	if s.generator.calls != 1 {
		t.Errorf("generator calls = %d, want 1", s.generator.calls)
	}
}

func TestGenerateChapterInProgress(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.store.CreateCourse(context.Background(), "user-1", testOutline()); err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	s.generator.inProgress = true

	rec := s.do(t, http.MethodPost, "/api/courses/python-for-data-science/chapters/pandas/generate", "user-1", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rec.Code, rec.Body.String())
	}
	got := decode[slidesEnvelope](t, rec)
	if got.Message != inProgressMessage || len(got.Slides) != 0 {
		t.Errorf("response = %+v", got)
	}
}

func TestGenerateChapterErrors(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.store.CreateCourse(context.Background(), "user-1", testOutline()); err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}

	rec := s.do(t, http.MethodPost, "/api/courses/python-for-data-science/chapters/missing/generate", "user-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing chapter status = %d, want 404", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/api/courses/nope/chapters/pandas/generate", "user-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing course status = %d, want 404", rec.Code)
	}

	s.generator.chapterErr = &course.GenerationError{Stage: "slides", Err: course.Upstream(errors.New("timeout"))}
	rec = s.do(t, http.MethodPost, "/api/courses/python-for-data-science/chapters/pandas/generate", "user-1", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("generation failure status = %d, want 502", rec.Code)
	}
}

func TestChapterTimeline(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	if _, err := s.store.CreateCourse(ctx, "user-1", testOutline()); err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	s.do(t, http.MethodPost, "/api/courses/python-for-data-science/chapters/pandas/generate", "user-1", nil)

	rec := s.do(t, http.MethodGet, "/api/courses/python-for-data-science/chapters/pandas/timeline", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	tl := decode[app.ChapterTimeline](t, rec)
	if tl.FPS != 30 || tl.DurationInFrames != 450 || len(tl.Slides) != 2 {
		t.Errorf("timeline = %+v", tl)
	}
	if tl.Slides[1].StartFrame != 300 {
		t.Errorf("second slide start = %d, want 300", tl.Slides[1].StartFrame)
	}

	rec = s.do(t, http.MethodGet, "/api/courses/python-for-data-science/chapters/pandas/timeline?fps=60", "user-1", nil)
	if tl := decode[app.ChapterTimeline](t, rec); tl.DurationInFrames != 900 {
		t.Errorf("60fps total = %d, want 900", tl.DurationInFrames)
	}

	for _, q := range []string{"0", "-5", "abc"} {
		rec = s.do(t, http.MethodGet, "/api/courses/python-for-data-science/chapters/pandas/timeline?fps="+q, "user-1", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("fps=%s status = %d, want 400", q, rec.Code)
		}
	}

	rec = s.do(t, http.MethodGet, "/api/courses/python-for-data-science/chapters/python-basics/timeline", "user-1", nil)
	if tl := decode[app.ChapterTimeline](t, rec); tl.DurationInFrames != 90 || len(tl.Slides) != 0 {
		t.Errorf("empty chapter timeline = %+v", tl)
	}
}

func TestRenameChapter(t *testing.T) {
	s := newTestServer(t)
	c, err := s.store.CreateCourse(context.Background(), "user-1", testOutline())
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	id := c.Chapter("pandas").ID.String()

	tests := []struct {
		name   string
		path   string
		user   string
		body   any
		status int
	}{
		{"ok", "/api/chapters/" + id, "user-1", map[string]string{"chapterTitle": "Pandas in Practice"}, http.StatusOK},
		{"blank", "/api/chapters/" + id, "user-1", map[string]string{"chapterTitle": "   "}, http.StatusBadRequest},
		{"missingBody", "/api/chapters/" + id, "user-1", map[string]string{}, http.StatusBadRequest},
		{"badID", "/api/chapters/not-a-uuid", "user-1", map[string]string{"chapterTitle": "x"}, http.StatusBadRequest},
		{"otherOwner", "/api/chapters/" + id, "user-2", map[string]string{"chapterTitle": "x"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPatch, tt.path, tt.user, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}

	got, err := s.store.GetCourse(context.Background(), "user-1", c.Slug)
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if title := got.Chapter("pandas").Title; title != "Pandas in Practice" {
		t.Errorf("title = %q, want Pandas in Practice", title)
	}
}

func TestSeed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/admin/seed", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/api/courses", "user-1", nil)
	if list := decode[[]*course.Course](t, rec); len(list) != 5 {
		t.Errorf("seeded %d courses, want 5", len(list))
	}
}

func TestServeAudio(t *testing.T) {
	s := newTestServer(t)
	if err := os.MkdirAll(filepath.Join(s.publicDir, "audio"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.publicDir, "audio", "a.mp3"), []byte("ID3"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := s.do(t, http.MethodGet, "/audio/a.mp3", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ID3" {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/courses", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
