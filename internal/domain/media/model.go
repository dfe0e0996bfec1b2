package media

import "time"

// StorageType tells where a record's artifacts live and how its URLs are
// interpreted: relative paths under the uploads root for local, absolute
// object-store URLs for s3.
type StorageType string

const (
	StorageLocal StorageType = "local"
	StorageS3    StorageType = "s3"
)

// MediaType is the kind of asset.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaRecord represents stored gallery metadata. Filename is the generated
// storage key and the only lookup key; it is never the user-supplied name.
type MediaRecord struct {
	Filename     string      `json:"filename"`
	OriginalName string      `json:"originalName"`
	Name         string      `json:"name"`
	URL          string      `json:"url"`
	Thumbnail    string      `json:"thumbnail,omitempty"`
	StorageType  StorageType `json:"storageType"`
	MediaType    MediaType   `json:"mediaType"`
	MimeType     string      `json:"mimeType"`
	Bytes        int64       `json:"bytes"`
	Width        int         `json:"width,omitempty"`
	Height       int         `json:"height,omitempty"`
	TakenAt      string      `json:"date,omitempty"`
	Location     string      `json:"location,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	Photographer string      `json:"photographer,omitempty"`
	UploadedAt   time.Time   `json:"uploadedAt"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// UploadFile is one file of an upload batch.
type UploadFile struct {
	OriginalName string
	Data         []byte
}

// FileMetadata is the descriptive metadata resolved for a single file.
type FileMetadata struct {
	Name         string   `json:"name"`
	Date         string   `json:"date"`
	Location     string   `json:"location"`
	Tags         []string `json:"tags"`
	Photographer string   `json:"photographer"`
}

// DetailUpdate carries the mutable descriptive fields. Storage fields are
// never updated through this path.
type DetailUpdate struct {
	Name         *string  `json:"name"`
	Location     *string  `json:"location"`
	Tags         []string `json:"tags"`
	Photographer *string  `json:"photographer"`
	Date         *string  `json:"date"`
}

// FileFailure reports why one file of a batch was rejected.
type FileFailure struct {
	OriginalName string `json:"originalName"`
	Reason       string `json:"reason"`
}

// UploadResult is the outcome of one upload batch.
type UploadResult struct {
	Records     []MediaRecord
	Failures    []FileFailure
	StorageType StorageType
}
