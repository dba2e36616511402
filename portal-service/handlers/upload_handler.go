package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"insureportal-backend/portal-service/services"
	"insureportal-backend/shared/apperrors"
	"insureportal-backend/shared/utils/document"
)

// multipartOverhead leaves room for boundaries and headers around the file part
const multipartOverhead = 1 << 20

type UploadHandler struct {
	uploads *services.UploadService
}

func NewUploadHandler(uploads *services.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// POST /api/upload
// @Summary Upload document
// @Description Stores exactly one file from the multipart field "file". The returned fileUrl is embedded into a form's documents on the next save.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Document"
// @Success 200 {object} document.UploadResponse
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Failure 413 {object} handlers.ErrorResponse
// @Router /upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	if maxSize := h.uploads.MaxSize(); maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, apperrors.TooLarge("file size exceeds %s limit", document.HumanSize(h.uploads.MaxSize())))
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	files := form.File["file"]
	switch {
	case len(files) == 0:
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	case len(files) > 1:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only one file per request is allowed"})
		return
	}

	response, err := h.uploads.Upload(c.Request.Context(), files[0])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GET /uploads/{name}
// @Summary Download document
// @Description Public retrieval of a stored upload by its generated name.
// @Tags uploads
// @Produce octet-stream
// @Param name path string true "Stored file name"
// @Success 200 {file} file
// @Failure 404 {object} handlers.ErrorResponse
// @Router /uploads/{name} [get]
func (h *UploadHandler) Serve(c *gin.Context) {
	object, info, err := h.uploads.Open(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer object.Close()

	if info.ContentType != "" {
		c.Header("Content-Type", info.ContentType)
	}
	c.Header("X-Content-Type-Options", "nosniff")
	http.ServeContent(c.Writer, c.Request, info.Name, info.ModTime, object)
}
