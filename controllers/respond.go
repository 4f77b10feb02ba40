package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flameberry/PrimePatrol/observability"
	"github.com/flameberry/PrimePatrol/services"
	"github.com/flameberry/PrimePatrol/utils"
)

// respondError writes err in the error envelope. The business code is status*100+nn so every
// handler keeps its own range; fallback is the message shown for unexpected failures.
func respondError(ctx *gin.Context, err error, nn int, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	message := fallback
	var serr *services.Error
	if errors.As(err, &serr) && status < http.StatusInternalServerError {
		message = serr.Message
	}
	if status == http.StatusServiceUnavailable {
		message = "upstream service unavailable"
	}

	if status >= http.StatusInternalServerError {
		utils.Logger.Error(fallback,
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			observability.CaptureError(err)
		}
	}
	utils.Error(ctx, status, status*100+nn, message)
}

// badRequest answers a payload that could not be bound.
func badRequest(ctx *gin.Context, nn int, message string) {
	utils.Error(ctx, http.StatusBadRequest, http.StatusBadRequest*100+nn, message)
}
