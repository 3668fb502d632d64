package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/http/response"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/jobs"
)

type JobReader interface {
	GetJobStatus(ctx context.Context, jobID string) (domain.Job, error)
}

type JobHandler struct {
	jobs JobReader
}

func NewJobHandler(jobs JobReader) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetJobStatus(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		response.RespondError(c, http.StatusNotFound, response.CodeJobNotFound, err)
		return
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, response.CodeJobLookupFailed, err)
		return
	}
	response.RespondOK(c, job)
}
