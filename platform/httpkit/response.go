// Package httpkit holds the gin middleware and response helpers shared by every module.
package httpkit

import (
	"errors"
	"net/http"

	"ops_reporting_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

const msgInternal = "internal server error"

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Accepted answers 202 for work handed to the background queue.
func Accepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}

// HandleError writes err and reports whether there was one. Typed *apperr.Error
// values map through their Kind; anything else is an infrastructure failure
// and becomes a 500 whose text stays in the gin error list for the logger.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		Error(c, appErr.HTTPStatus(), appErr.Message, appErr.Details)
		return true
	}

	_ = c.Error(err)
	Error(c, http.StatusInternalServerError, msgInternal, nil)
	return true
}
