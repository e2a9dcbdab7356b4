package gallery

import (
	"fmt"
	"strings"
)

// ValidationError reports which required fields were missing or malformed.
// It is never retried and maps to HTTP 400 at the handler layer.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// NewImageFields carries the caller-supplied fields for record creation.
type NewImageFields struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	MediaURL    string      `json:"cloudinaryUrl"`
	PublicID    string      `json:"publicId"`
	Tags        []string    `json:"tags"`
	Dimensions  *Dimensions `json:"dimensions,omitempty"`
	FileSize    string      `json:"fileSize,omitempty"`
	Visible     *bool       `json:"isVisible,omitempty"`
	Featured    *bool       `json:"featured,omitempty"`
}

// ValidateNewImage enforces the creation policy: a title and a resolved media
// reference are mandatory, everything else defaults.
func ValidateNewImage(f *NewImageFields) error {
	var missing []string
	if f == nil {
		return &ValidationError{Missing: []string{"title", "cloudinaryUrl", "publicId"}}
	}
	if strings.TrimSpace(f.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(f.MediaURL) == "" {
		missing = append(missing, "cloudinaryUrl")
	}
	if strings.TrimSpace(f.PublicID) == "" {
		missing = append(missing, "publicId")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// ImagePatch carries the updatable fields for an existing record. Nil fields
// are left unchanged; ID and UploadedAt are immutable and not patchable.
type ImagePatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Dimensions  *Dimensions `json:"dimensions,omitempty"`
	FileSize    *string     `json:"fileSize,omitempty"`
	Visible     *bool       `json:"isVisible,omitempty"`
	Featured    *bool       `json:"featured,omitempty"`
}

// Apply overlays the patch onto rec. Concurrent updates to the same record
// resolve last-write-wins at record granularity; there is no field merge
// between racing writers.
func (p *ImagePatch) Apply(rec *ImageRecord) {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.Tags != nil {
		rec.Tags = p.Tags
	}
	if p.Dimensions != nil {
		rec.Dimensions = p.Dimensions
	}
	if p.FileSize != nil {
		rec.FileSize = *p.FileSize
	}
	if p.Visible != nil {
		rec.Visible = *p.Visible
	}
	if p.Featured != nil {
		rec.Featured = *p.Featured
	}
}
