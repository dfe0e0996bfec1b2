package media

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MetadataSpec is the resolved form of the upload metadata payload, which
// is either one object applied to every file or an array positional per
// file. Ambiguous shapes are rejected at parse time instead of guessed at
// when files are processed.
type MetadataSpec struct {
	shared  *FileMetadata
	perFile []FileMetadata
}

// ParseMetadataSpec parses the optional metadata form field. An empty value
// yields a spec that resolves to zero metadata for every file. A JSON array
// must have exactly one element per file.
func ParseMetadataSpec(raw string, fileCount int) (*MetadataSpec, error) {
	if raw == "" {
		return &MetadataSpec{}, nil
	}

	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return &MetadataSpec{}, nil
	}

	switch trimmed[0] {
	case '{':
		var shared FileMetadata
		if err := json.Unmarshal(trimmed, &shared); err != nil {
			return nil, fmt.Errorf("invalid metadata object: %w", err)
		}
		return &MetadataSpec{shared: &shared}, nil
	case '[':
		var perFile []FileMetadata
		if err := json.Unmarshal(trimmed, &perFile); err != nil {
			return nil, fmt.Errorf("invalid metadata array: %w", err)
		}
		if len(perFile) != fileCount {
			return nil, fmt.Errorf("metadata array has %d entries for %d files", len(perFile), fileCount)
		}
		return &MetadataSpec{perFile: perFile}, nil
	default:
		return nil, fmt.Errorf("metadata must be a JSON object or array")
	}
}

// For returns the metadata for the i-th file of the batch.
func (m *MetadataSpec) For(i int) FileMetadata {
	if m == nil {
		return FileMetadata{}
	}
	if m.shared != nil {
		return *m.shared
	}
	if i >= 0 && i < len(m.perFile) {
		return m.perFile[i]
	}
	return FileMetadata{}
}
