package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/ctxutil"
)

// Code names an error class so clients can branch without parsing messages.
type Code string

const (
	CodeInvalidJSON      Code = "invalid_json"
	CodeInvalidRequest   Code = "invalid_request"
	CodeNoUsableTurns    Code = "no_usable_turns"
	CodeNoUsableSections Code = "no_usable_sections"
	CodeSubmitFailed     Code = "submit_failed"
	CodeJobNotFound      Code = "job_not_found"
	CodeJobLookupFailed  Code = "job_lookup_failed"
)

type APIError struct {
	Message string `json:"message"`
	Code    Code   `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope. The trace id matches the
// X-Trace-Id header and the server logs for the request.
func RespondError(c *gin.Context, status int, code Code, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	apiErr := APIError{Message: msg, Code: code}
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		apiErr.TraceID = td.TraceID
	}
	c.JSON(status, ErrorEnvelope{Error: apiErr})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondAccepted answers 202 and points Location at the resource to poll.
func RespondAccepted(c *gin.Context, location string, payload any) {
	if location != "" {
		c.Header("Location", location)
	}
	c.JSON(http.StatusAccepted, payload)
}
