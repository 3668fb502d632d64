package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/http/response"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/pipeline"
)

type Submitter interface {
	Submit(ctx context.Context, req domain.EncounterRequest) (domain.Job, error)
}

type EncounterHandler struct {
	pipeline Submitter
}

func NewEncounterHandler(p Submitter) *EncounterHandler {
	return &EncounterHandler{pipeline: p}
}

type submitResponse struct {
	JobID       string           `json:"job_id"`
	EncounterID string           `json:"encounter_id"`
	Status      domain.JobStatus `json:"status"`
	Sections    int              `json:"sections"`
}

// POST /api/encounters
func (h *EncounterHandler) Submit(c *gin.Context) {
	var req domain.EncounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.CodeInvalidJSON, err)
		return
	}
	job, err := h.pipeline.Submit(c.Request.Context(), req)
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		response.RespondError(c, http.StatusBadRequest, response.CodeInvalidRequest, err)
		return
	case errors.Is(err, pipeline.ErrNoUsableTurns):
		response.RespondError(c, http.StatusUnprocessableEntity, response.CodeNoUsableTurns, err)
		return
	case errors.Is(err, pipeline.ErrNoUsableSections):
		response.RespondError(c, http.StatusUnprocessableEntity, response.CodeNoUsableSections, err)
		return
	case err != nil:
		response.RespondError(c, http.StatusInternalServerError, response.CodeSubmitFailed, err)
		return
	}
	response.RespondAccepted(c, "/api/jobs/"+job.JobID, submitResponse{
		JobID:       job.JobID,
		EncounterID: job.EncounterID,
		Status:      job.Status,
		Sections:    job.SectionsTotal,
	})
}
