package document

// UploadResponse is returned by the upload endpoint and later embedded into
// a form's document list on save.
type UploadResponse struct {
	Name    string `json:"name"`
	FileURL string `json:"fileUrl"`
}

// BuildUploadResponse creates a standardized upload response
func BuildUploadResponse(originalName, storedName string) UploadResponse {
	return UploadResponse{
		Name:    originalName,
		FileURL: PublicURL(storedName),
	}
}
