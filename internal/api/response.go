package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"coursecraft/internal/course"
	"coursecraft/internal/timeline"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: message})
}

// respondErr maps domain errors onto HTTP statuses. Generation failures are
// reported as a bad gateway since the fault lies with the LLM or TTS vendor.
func respondErr(c *gin.Context, err error) {
	var genErr *course.GenerationError
	switch {
	case errors.Is(err, course.ErrEmptyTopic):
		respondError(c, http.StatusBadRequest, "Topic is required")
	case errors.Is(err, course.ErrNotFound):
		respondError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, timeline.ErrInvalidFPS):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &genErr):
		slog.Warn("Generation failed", "stage", genErr.Stage, "error", err)
		respondError(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, course.ErrSchemaValidation):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
