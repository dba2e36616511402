package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"insureportal-backend/portal-service/services"
	"insureportal-backend/shared/database/models"
)

type MetaHandler struct {
	db *gorm.DB
	ws *services.WebSocketManager
}

func NewMetaHandler(db *gorm.DB, ws *services.WebSocketManager) *MetaHandler {
	return &MetaHandler{db: db, ws: ws}
}

// CatalogResponse lists the values the editor offers
type CatalogResponse struct {
	InsuranceTypes []string            `json:"insuranceTypes"`
	Packages       []string            `json:"packages"`
	RequestTypes   []string            `json:"requestTypes"`
	Statuses       []models.FormStatus `json:"statuses"`
}

// GET /api/catalog
// @Summary Insurance catalog
// @Tags meta
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.CatalogResponse
// @Router /catalog [get]
func (h *MetaHandler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, CatalogResponse{
		InsuranceTypes: models.InsuranceTypes,
		Packages:       models.Packages,
		RequestTypes:   models.RequestTypes,
		Statuses:       models.FormStatuses,
	})
}

// GET /health
// @Summary Health check
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *MetaHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, database := http.StatusOK, "up"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status, database = http.StatusServiceUnavailable, "down"
	}

	body := gin.H{
		"status":   http.StatusText(status),
		"service":  "portal-service",
		"database": database,
	}
	if h.ws != nil {
		body["websocketClients"] = h.ws.GetConnectionCount()
	}
	c.JSON(status, body)
}
