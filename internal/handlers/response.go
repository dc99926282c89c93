package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/paperforge-backend/internal/domain"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondDomainError maps the engine's error codes onto HTTP statuses.
// Anything uncoded falls through as a 500.
func RespondDomainError(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case domain.CodeValidation:
		status = http.StatusBadRequest
	case domain.CodeNotFound:
		status = http.StatusNotFound
	case domain.CodeConflict:
		status = http.StatusConflict
	case domain.CodePreconditionFailed:
		status = http.StatusPreconditionFailed
	case domain.CodeInsufficientInventory:
		status = http.StatusUnprocessableEntity
	case domain.CodeRetryable:
		status = http.StatusServiceUnavailable
	}
	if code == "" {
		code = domain.CodeInternal
	}
	RespondError(c, status, string(code), err)
}
