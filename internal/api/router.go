package api

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"coursecraft/internal/app"
	"coursecraft/internal/course"
)

type CourseStore interface {
	ListCourses(ctx context.Context, ownerID string) ([]*course.Course, error)
	GetCourse(ctx context.Context, ownerID, slug string) (*course.Course, error)
	RenameChapter(ctx context.Context, ownerID string, chapterID uuid.UUID, title string) (*course.Chapter, error)
	SeedDemoCourses(ctx context.Context, ownerID string) ([]*course.Course, error)
}

type Generator interface {
	GenerateAndPersistCourse(ctx context.Context, topic, ownerID string) (*course.Course, error)
	GenerateChapterContent(ctx context.Context, req app.ChapterRequest) app.ChapterOutcome
}

type Options struct {
	CORSOrigins []string
	// PublicDir is the local asset root; audio under it is served at /audio.
	PublicDir   string
	DefaultFPS  int
	Tracing     bool
	ServiceName string
}

func NewRouter(courses CourseStore, generator Generator, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	if opts.Tracing {
		router.Use(otelgin.Middleware(opts.ServiceName))
	}
	corsConfig := cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", userHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.CORSOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	if opts.PublicDir != "" {
		router.Static("/audio", filepath.Join(opts.PublicDir, "audio"))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handler{courses: courses, generator: generator, defaultFPS: opts.DefaultFPS}
	if h.defaultFPS <= 0 {
		h.defaultFPS = 30
	}

	api := router.Group("/api", RequireUser())
	api.GET("/courses", h.listCourses)
	api.POST("/courses", h.createCourse)
	api.GET("/courses/:courseId", h.getCourse)
	api.POST("/courses/:courseId/chapters/:chapterId/generate", h.generateChapter)
	api.GET("/courses/:courseId/chapters/:chapterId/timeline", h.chapterTimeline)
	api.PATCH("/chapters/:id", h.renameChapter)
	api.POST("/admin/seed", h.seed)

	return router
}
