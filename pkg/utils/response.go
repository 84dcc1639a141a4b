package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the uniform API response shape. Either Data or Error is
// set, never both.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *AppError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta carries collection context alongside list payloads.
type Meta struct {
	Count int `json:"count"`
}

func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// SendList wraps a collection together with its element count.
func SendList(c *gin.Context, data interface{}, count int) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data, Meta: &Meta{Count: count}})
}

func SendError(c *gin.Context, status int, err *AppError) {
	c.JSON(status, envelope{Success: false, Error: err})
}

// One wrapper per error family keeps handler call sites to a line.

func SendValidationError(c *gin.Context, message, details string) {
	SendError(c, http.StatusBadRequest, NewAppError(ErrCodeValidation, message, details))
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, NewAppError(ErrCodeNotFound, message))
}

func SendUnauthorized(c *gin.Context, message string) {
	SendError(c, http.StatusUnauthorized, NewAppError(ErrCodeUnauthorized, message))
}

func SendForbidden(c *gin.Context, message string) {
	SendError(c, http.StatusForbidden, NewAppError(ErrCodeForbidden, message))
}

func SendInternalError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, NewAppError(ErrCodeInternal, message))
}

func SendConflict(c *gin.Context, message string) {
	SendError(c, http.StatusConflict, NewAppError(ErrCodeConflict, message))
}

// SendInsufficient reports a funds or resource shortfall distinctly from
// validation failures so clients can prompt a top-up.
func SendInsufficient(c *gin.Context, message string) {
	SendError(c, http.StatusPaymentRequired, NewAppError(ErrCodeInsufficient, message))
}
