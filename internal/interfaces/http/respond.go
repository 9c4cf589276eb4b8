package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencivic/civicflow/internal/workflow"
)

// Response is the standard JSON envelope
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// respondError maps a workflow error code onto an HTTP status. Codes
// not in the taxonomy fall through to 500.
func respondError(c *gin.Context, err error) {
	code := workflow.CodeOf(err)

	var status int
	switch code {
	case workflow.CodeUnauthorized:
		status = http.StatusForbidden
	case workflow.CodeValidation:
		status = http.StatusBadRequest
	case workflow.CodeNotFound:
		status = http.StatusNotFound
	case workflow.CodeInvalidTransition, workflow.CodeConflict:
		status = http.StatusConflict
	case workflow.CodeDependencyFailure:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{Success: false, Error: err.Error(), Code: string(code)})
}
