package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"insureportal-backend/shared/apperrors"
	applog "insureportal-backend/shared/logger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error" example:"Form not found"`
}

// MessageResponse is returned by operations without a payload
type MessageResponse struct {
	Message string `json:"message" example:"Form deleted"`
}

// respondError maps a service error to its status. Internal causes are
// logged and never sent to the caller.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal("Internal server error", err)
	}

	if appErr.Kind == apperrors.KindInternal {
		_ = c.Error(err)
		applog.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).
			Msg("❌ Request failed")
	}

	c.AbortWithStatusJSON(appErr.Kind.HTTPStatus(), gin.H{"error": appErr.Message})
}
