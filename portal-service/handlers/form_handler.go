package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"insureportal-backend/portal-service/middleware"
	"insureportal-backend/portal-service/services"
	"insureportal-backend/shared/apperrors"
	"insureportal-backend/shared/database/models"
	"insureportal-backend/shared/utils/query"
)

type FormHandler struct {
	forms *services.FormService
	pdf   *services.PDFService
}

func NewFormHandler(forms *services.FormService, pdf *services.PDFService) *FormHandler {
	return &FormHandler{forms: forms, pdf: pdf}
}

// StatsResponse counts the organization's active forms per status
type StatsResponse struct {
	Total    int64                       `json:"total"`
	ByStatus map[models.FormStatus]int64 `json:"byStatus"`
}

func parseFormID(c *gin.Context) (uuid.UUID, error) {
	formID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.NotFound("Form not found")
	}
	return formID, nil
}

// GET /api/forms
// @Summary List forms
// @Description Admins see every active form of their organization, clients only their own. Newest changes first.
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param search query string false "Case-insensitive client name search"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size, 0 for all" default(0)
// @Success 200 {array} models.Form
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Router /forms [get]
func (h *FormHandler) List(c *gin.Context) {
	params := query.ParseQueryParams(c, "status")

	result, err := h.forms.List(c.Request.Context(), middleware.GetIdentity(c), params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("X-Total-Count", strconv.FormatInt(result.Pagination.Total, 10))
	if params.Paginated() {
		c.Header("X-Page", strconv.Itoa(result.Pagination.Page))
		c.Header("X-Total-Pages", strconv.FormatInt(result.Pagination.TotalPages, 10))
	}
	c.JSON(http.StatusOK, result.Forms)
}

// GET /api/forms/{id}
// @Summary Get form
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} models.Form
// @Failure 401 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /forms/{id} [get]
func (h *FormHandler) Get(c *gin.Context) {
	formID, err := parseFormID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	form, err := h.forms.Get(c.Request.Context(), middleware.GetIdentity(c), formID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// POST /api/forms
// @Summary Create form
// @Description Creates a draft with nested items and documents. Prices sent by clients are ignored.
// @Tags forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param form body services.CreateFormInput true "Form"
// @Success 200 {object} models.Form
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Router /forms [post]
func (h *FormHandler) Create(c *gin.Context) {
	var req services.CreateFormInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	form, err := h.forms.Create(c.Request.Context(), middleware.GetIdentity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// PUT /api/forms/{id}
// @Summary Update form
// @Description Saves the form and reconciles its items and documents. version must match the stored version.
// @Tags forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param form body services.UpdateFormInput true "Form"
// @Success 200 {object} models.Form
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Failure 409 {object} handlers.ErrorResponse "Stale version"
// @Router /forms/{id} [put]
func (h *FormHandler) Update(c *gin.Context) {
	formID, err := parseFormID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req services.UpdateFormInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	form, err := h.forms.Update(c.Request.Context(), middleware.GetIdentity(c), formID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// DELETE /api/forms/{id}
// @Summary Delete form
// @Description Soft delete. Clients may only delete their own drafts.
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} handlers.MessageResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /forms/{id} [delete]
func (h *FormHandler) Delete(c *gin.Context) {
	formID, err := parseFormID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.forms.Delete(c.Request.Context(), middleware.GetIdentity(c), formID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Form deleted"})
}

// GET /api/forms/{id}/pdf
// @Summary Export summary
// @Description Priced summary of the form as a PDF attachment.
// @Tags forms
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {file} file
// @Failure 401 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /forms/{id}/pdf [get]
func (h *FormHandler) ExportPDF(c *gin.Context) {
	formID, err := parseFormID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	form, err := h.forms.LoadForExport(c.Request.Context(), middleware.GetIdentity(c), formID)
	if err != nil {
		respondError(c, err)
		return
	}

	content, err := h.pdf.Render(form)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(services.SummaryFileName(form.ClientName)))
	c.Data(http.StatusOK, "application/pdf", content)
}

// attachment quotes or RFC 2231 encodes the file name as needed
func attachment(fileName string) string {
	if header := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); header != "" {
		return header
	}
	return "attachment"
}

// GET /api/admin/stats
// @Summary Form statistics
// @Description Active forms of the organization per status. Admins only.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.StatsResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Router /admin/stats [get]
func (h *FormHandler) Stats(c *gin.Context) {
	counts, err := h.forms.StatusCounts(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, StatsResponse{Total: total, ByStatus: counts})
}
