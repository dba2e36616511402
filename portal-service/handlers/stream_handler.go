package handlers

import (
	"github.com/gin-gonic/gin"

	"insureportal-backend/portal-service/middleware"
	"insureportal-backend/portal-service/services"
)

type StreamHandler struct {
	ws *services.WebSocketManager
}

func NewStreamHandler(ws *services.WebSocketManager) *StreamHandler {
	return &StreamHandler{ws: ws}
}

// GET /ws/forms
// @Summary Form event stream
// @Description WebSocket stream of form.created, form.updated and form.deleted events visible to the caller. Browsers pass the token as a query parameter.
// @Tags websocket
// @Param token query string false "Session token"
// @Failure 401 {object} handlers.ErrorResponse
// @Router /ws/forms [get]
func (h *StreamHandler) Forms(c *gin.Context) {
	h.ws.Serve(c, middleware.GetIdentity(c))
}
