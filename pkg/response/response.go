package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/sportperformance/academy-api/pkg/errors"
)

// Response defines the base API payload.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo holds error details sent to clients. CorrelationID is present on
// OTP verification failures so callers can reference server-side traces.
type ErrorInfo struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	ErrorWithCorrelation(c, err, "")
}

// ErrorWithCorrelation writes an error response carrying a correlation id.
func ErrorWithCorrelation(c *gin.Context, err error, correlationID string) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:          appErr.Code,
			Message:       appErr.Message,
			CorrelationID: correlationID,
		},
	})
}
