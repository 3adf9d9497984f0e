package api

import (
	"time"

	"site-ai-gateway/internal/llm-router/apperr"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Details   []string    `json:"details,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

func SuccessResponse(c *gin.Context, status int, data interface{}) {
	c.JSON(
		status, Response{
			Success: true,
			Data:    data,
		},
	)
}

func ErrorResponse(c *gin.Context, status int, code, message string, details ...string) {
	c.AbortWithStatusJSON(
		status, Response{
			Success:   false,
			Error:     message,
			Code:      code,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		},
	)
}

// AppErrorResponse writes err using its kind for the status and code. Details
// that could leak configuration or upstream internals are only shown in
// development.
func AppErrorResponse(c *gin.Context, err error, development bool) {
	e := apperr.From(err)
	ErrorResponse(c, e.HTTPStatus(), string(e.Kind), e.Message, publicDetails(e, development)...)
}

func publicDetails(e *apperr.Error, development bool) []string {
	if development || e.IsClientError() {
		if len(e.Details) == 0 && e.Err != nil && development {
			return []string{e.Err.Error()}
		}
		return e.Details
	}

	switch e.Kind {
	case apperr.KindInvalidProjectConfig:
		return []string{"Invalid project configuration"}
	case apperr.KindUpstreamAuth, apperr.KindUpstreamRateLimit:
		return nil
	default:
		return []string{"Internal server error"}
	}
}
