package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coursecraft/internal/app"
	"coursecraft/internal/course"
)

const (
	slidesExistMessage = "Slides already generated"
	inProgressMessage  = "Slide generation already in progress"
)

type handler struct {
	courses    CourseStore
	generator  Generator
	defaultFPS int
}

type createCourseRequest struct {
	Topic string `json:"topic" binding:"required"`
}

type renameChapterRequest struct {
	Title string `json:"chapterTitle" binding:"required"`
}

func (h *handler) listCourses(c *gin.Context) {
	courses, err := h.courses.ListCourses(c.Request.Context(), currentUser(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *handler) getCourse(c *gin.Context) {
	crs, err := h.courses.GetCourse(c.Request.Context(), currentUser(c), c.Param("courseId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "course": crs})
}

func (h *handler) createCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Topic is required")
		return
	}

	crs, err := h.generator.GenerateAndPersistCourse(c.Request.Context(), req.Topic, currentUser(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "course": crs})
}

// lookupChapter resolves the course and chapter slugs in the path for the
// current user.
func (h *handler) lookupChapter(c *gin.Context) (*course.Course, *course.Chapter, bool) {
	crs, err := h.courses.GetCourse(c.Request.Context(), currentUser(c), c.Param("courseId"))
	if err != nil {
		respondErr(c, err)
		return nil, nil, false
	}
	ch := crs.Chapter(c.Param("chapterId"))
	if ch == nil {
		respondError(c, http.StatusNotFound, "Chapter not found")
		return nil, nil, false
	}
	return crs, ch, true
}

func (h *handler) generateChapter(c *gin.Context) {
	crs, ch, ok := h.lookupChapter(c)
	if !ok {
		return
	}

	if ch.HasContent() {
		c.JSON(http.StatusOK, gin.H{"success": true, "slides": ch.Slides, "message": slidesExistMessage})
		return
	}

	outcome := h.generator.GenerateChapterContent(c.Request.Context(), app.ChapterRequestFor(crs, ch))
	if outcome.Err != nil {
		respondErr(c, outcome.Err)
		return
	}
	if outcome.InProgress {
		c.JSON(http.StatusAccepted, gin.H{"success": true, "slides": []*course.Slide{}, "message": inProgressMessage})
		return
	}

	message := fmt.Sprintf("Generated %d slides", len(outcome.Slides))
	if outcome.Skipped {
		message = slidesExistMessage
	}
	slides := outcome.Slides
	if slides == nil {
		slides = []*course.Slide{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "slides": slides, "message": message})
}

func (h *handler) chapterTimeline(c *gin.Context) {
	fps := h.defaultFPS
	if raw := c.Query("fps"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "fps must be an integer")
			return
		}
		fps = v
	}

	_, ch, ok := h.lookupChapter(c)
	if !ok {
		return
	}

	tl, err := app.BuildChapterTimeline(ch, fps)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, tl)
}

func (h *handler) renameChapter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid chapter id")
		return
	}

	var req renameChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "chapterTitle is required")
		return
	}

	ch, err := h.courses.RenameChapter(c.Request.Context(), currentUser(c), id, req.Title)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chapter": ch})
}

func (h *handler) seed(c *gin.Context) {
	created, err := h.courses.SeedDemoCourses(c.Request.Context(), currentUser(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("Seeded %d courses", len(created))})
}
