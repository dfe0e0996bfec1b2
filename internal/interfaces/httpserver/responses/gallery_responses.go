package responses

import (
	"fmt"

	"gallery-server/internal/domain/media"
)

// UploadResponse reports the outcome of an upload batch. Rejected files
// appear in Failures without affecting the accepted ones.
type UploadResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Files       []media.MediaRecord `json:"files"`
	Failures    []media.FileFailure `json:"failures,omitempty"`
	StorageType media.StorageType   `json:"storageType"`
}

// BuildUploadResponse creates the response from an upload result
func BuildUploadResponse(result *media.UploadResult) *UploadResponse {
	message := fmt.Sprintf("%d file(s) uploaded", len(result.Records))
	if len(result.Failures) > 0 {
		message = fmt.Sprintf("%d file(s) uploaded, %d rejected", len(result.Records), len(result.Failures))
	}
	return &UploadResponse{
		Success:     len(result.Failures) == 0,
		Message:     message,
		Files:       result.Records,
		Failures:    result.Failures,
		StorageType: result.StorageType,
	}
}

// ListResponse wraps the gallery listing
type ListResponse struct {
	Files []media.MediaRecord `json:"files"`
	Count int                 `json:"count"`
}

// BuildListResponse creates the listing response
func BuildListResponse(records []media.MediaRecord) *ListResponse {
	return &ListResponse{
		Files: records,
		Count: len(records),
	}
}

// DeleteResponse confirms a deletion
type DeleteResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// UpdateResponse wraps the updated record
type UpdateResponse struct {
	File *media.MediaRecord `json:"file"`
}
