package gallery

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Categories the site serves. Upload and admin routes reject anything else.
var Categories = []string{"portrait", "landscape", "bw"}

// ValidCategory reports whether cat is one of the served categories.
func ValidCategory(cat string) bool {
	for _, c := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// Dimensions is descriptive metadata from the upload pipeline, not authoritative.
type Dimensions struct {
	Width  int `json:"width" bson:"width"`
	Height int `json:"height" bson:"height"`
}

// ImageRecord is one media entry in a category document.
// ID and UploadedAt are assigned at creation and never change afterwards.
type ImageRecord struct {
	ID          string      `json:"id" bson:"id"`
	Title       string      `json:"title" bson:"title"`
	Description string      `json:"description" bson:"description"`
	MediaURL    string      `json:"cloudinaryUrl" bson:"mediaUrl"`
	PublicID    string      `json:"publicId" bson:"publicId"`
	Tags        []string    `json:"tags" bson:"tags"`
	UploadedAt  time.Time   `json:"uploadedAt" bson:"uploadedAt"`
	UploadedBy  string      `json:"uploadedBy" bson:"uploadedBy"`
	Dimensions  *Dimensions `json:"dimensions,omitempty" bson:"dimensions,omitempty"`
	FileSize    string      `json:"fileSize,omitempty" bson:"fileSize,omitempty"`
	Visible     bool        `json:"isVisible" bson:"isVisible"`
	Featured    bool        `json:"featured" bson:"featured"`
}

// CollectionDocument is the persisted unit: one JSON file per category.
// Images are kept in display order, newest first. TotalImages is recomputed
// on every mutation rather than trusted from stored state.
type CollectionDocument struct {
	Category    string        `json:"category" bson:"category"`
	LastUpdated time.Time     `json:"lastUpdated" bson:"lastUpdated"`
	TotalImages int           `json:"totalImages" bson:"totalImages"`
	Images      []ImageRecord `json:"images" bson:"images"`
}

// EmptyDocument is the canonical empty collection used when the backing file
// does not exist yet.
func EmptyDocument(category string, now time.Time) *CollectionDocument {
	return &CollectionDocument{
		Category:    category,
		LastUpdated: now,
		TotalImages: 0,
		Images:      []ImageRecord{},
	}
}

// DecodeDocument parses a serialized collection, normalizing a missing
// images array to an empty one.
func DecodeDocument(content []byte) (*CollectionDocument, error) {
	var doc CollectionDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	if doc.Images == nil {
		doc.Images = []ImageRecord{}
	}
	doc.TotalImages = len(doc.Images)
	return &doc, nil
}

// FindImage returns the index of the record with the given id, or -1.
func (d *CollectionDocument) FindImage(id string) int {
	for i := range d.Images {
		if d.Images[i].ID == id {
			return i
		}
	}
	return -1
}

// IDGenerator produces unique record ids. Injected so tests can be
// deterministic.
type IDGenerator func(category string) string

// NewID is the production generator: category prefix + random UUID.
func NewID(category string) string {
	return fmt.Sprintf("%s_%s", category, uuid.NewString())
}

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time
