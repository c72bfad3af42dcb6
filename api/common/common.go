package common

import (
	"errors"
	"net/http"

	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusClientClosedRequest reports a render that ran out of time.
const StatusClientClosedRequest = 499

type Response struct {
	Status string      `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data,omitempty"`
}

func Respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Status: status,
		Msg:    message,
		Data:   data,
	})
}

// RespondJSON sends a bare JSON body with status 200.
func RespondJSON(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RespondError sends an error response with message.
func RespondError(c *gin.Context, httpStatus int, message string) {
	Respond(c, httpStatus, "error", message, nil)
}

// RespondErrorAbort sends an error response and stops the handler chain.
func RespondErrorAbort(c *gin.Context, httpStatus int, message string) {
	RespondError(c, httpStatus, message)
	c.Abort()
}

// StatusFor maps a domain error to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, fractal.ErrInvalidQuery):
		return http.StatusBadRequest, "Invalid query parameters"
	case errors.Is(err, fractal.ErrValidation):
		return http.StatusBadRequest, "Invalid fractal parameters"
	case errors.Is(err, fractal.ErrBusy):
		return http.StatusTooManyRequests, "Another fractal is currently generating. Try again later."
	case errors.Is(err, fractal.ErrAborted):
		return StatusClientClosedRequest, "Fractal generation aborted due to time limit."
	case errors.Is(err, fractal.ErrRenderFailed):
		return http.StatusInternalServerError, "Fractal generation failed"
	case errors.Is(err, fractal.ErrBlobStore):
		return http.StatusBadGateway, "Fractal storage unavailable"
	case errors.Is(err, fractal.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, fractal.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// RespondDomainError logs err and sends the mapped status. Parameter
// validation errors carry their message; everything else stays terse.
func RespondDomainError(c *gin.Context, err error) {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		utils.Component("api").Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	if status == http.StatusBadRequest {
		if errors.Is(err, fractal.ErrInvalidQuery) {
			utils.Component("api").Debug("invalid query", zap.String("path", c.FullPath()), zap.Error(err))
		} else {
			msg = err.Error()
		}
	}
	RespondError(c, status, msg)
}
