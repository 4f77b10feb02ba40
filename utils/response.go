package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the envelope used for errors and plain messages.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON envelope with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success writes a resource body as-is; service clients decode it directly.
func Success(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, data)
}

// Message answers 200 with a plain confirmation message.
func Message(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusOK, 0, message, data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
