package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/platform/apierr"
)

type APIError struct {
	Message   string         `json:"message"`
	Code      string         `json:"code,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
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

// RespondDomainError maps an engine error to its HTTP status via its aggregate code.
func RespondDomainError(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		RespondError(c, http.StatusInternalServerError, "internal", nil)
		return
	}
	msg := ae.Error()
	details := domainagg.DetailsOf(err)
	if ae.Status >= http.StatusInternalServerError && !ae.Retryable() {
		_ = c.Error(err)
		msg = "internal error"
		details = nil
	}
	if ae.Retryable() {
		c.Header("Retry-After", "1")
	}
	c.JSON(ae.Status, ErrorEnvelope{
		Error: APIError{
			Message:   msg,
			Code:      ae.Code,
			Retryable: ae.Retryable(),
			Details:   details,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
