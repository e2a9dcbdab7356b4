package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snsphoto/gallery-api/internal/gallery"
	"github.com/snsphoto/gallery-api/internal/gallery/cache"
	"github.com/snsphoto/gallery-api/internal/gallery/store"
	"github.com/snsphoto/gallery-api/internal/gallery/updater"
	"github.com/snsphoto/gallery-api/pkg/logger"
	"github.com/snsphoto/gallery-api/pkg/metrics"
)

var (
	// ErrNotFound: the targeted image id does not exist in the category.
	ErrNotFound = errors.New("image not found")
	// ErrUnknownCategory: the category is not one the site serves.
	ErrUnknownCategory = errors.New("unknown category")
)

// ListOptions filters the read path.
type ListOptions struct {
	VisibleOnly  bool
	FeaturedOnly bool
	Fresh        bool // bypass the cache for this read
}

// Service exposes the gallery operations consumed by the HTTP handlers.
// Reads go through the cache; writes go through the optimistic update
// engine and invalidate the category's cache entry on success.
type Service struct {
	store  store.Store
	cache  cache.Cache
	engine *updater.Engine
	newID  gallery.IDGenerator
	now    gallery.Clock
}

// New wires a service. Pass nil newID/clock for production defaults.
func New(s store.Store, c cache.Cache, e *updater.Engine, newID gallery.IDGenerator, clock gallery.Clock) *Service {
	if newID == nil {
		newID = gallery.NewID
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{store: s, cache: c, engine: e, newID: newID, now: clock}
}

// List returns the category document, served from cache while fresh. A
// failed fetch falls back to the most recent stale snapshot; an absent
// document yields the canonical empty collection so the public page always
// renders.
func (s *Service) List(ctx context.Context, category string, opts ListOptions) (*gallery.CollectionDocument, error) {
	if !gallery.ValidCategory(category) {
		return nil, ErrUnknownCategory
	}

	if !opts.Fresh {
		if doc, ok := s.cache.Get(ctx, category); ok {
			metrics.CacheHits.WithLabelValues(category).Inc()
			return filterDocument(doc, opts), nil
		}
	}
	metrics.CacheMisses.WithLabelValues(category).Inc()

	snap, err := s.store.Fetch(ctx, category)
	if errors.Is(err, store.ErrNotFound) {
		return filterDocument(gallery.EmptyDocument(category, s.now().UTC()), opts), nil
	}
	if err != nil {
		if doc, ok := s.cache.GetStale(ctx, category); ok {
			metrics.CacheStaleServes.WithLabelValues(category).Inc()
			logger.Warnf("serving stale %s snapshot after fetch failure: %v", category, err)
			return filterDocument(doc, opts), nil
		}
		return nil, err
	}

	doc, err := decodeDocument(category, snap.Content)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, category, doc)
	return filterDocument(doc, opts), nil
}

// Create validates the fields, assigns id and timestamps, and prepends the
// record so the newest image displays first.
func (s *Service) Create(ctx context.Context, category string, fields *gallery.NewImageFields) (*gallery.ImageRecord, error) {
	if !gallery.ValidCategory(category) {
		return nil, ErrUnknownCategory
	}
	if err := gallery.ValidateNewImage(fields); err != nil {
		return nil, err
	}

	rec := gallery.ImageRecord{
		ID:          s.newID(category),
		Title:       fields.Title,
		Description: fields.Description,
		MediaURL:    fields.MediaURL,
		PublicID:    fields.PublicID,
		Tags:        fields.Tags,
		UploadedAt:  s.now().UTC(),
		UploadedBy:  "admin",
		Dimensions:  fields.Dimensions,
		FileSize:    fields.FileSize,
		Visible:     fields.Visible == nil || *fields.Visible,
		Featured:    fields.Featured != nil && *fields.Featured,
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	message := fmt.Sprintf("Add %s: %s", category, rec.Title)
	_, err := s.apply(ctx, category, message, func(doc *gallery.CollectionDocument) error {
		doc.Images = append([]gallery.ImageRecord{rec}, doc.Images...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update patches the targeted record in place. ID and UploadedAt are
// preserved from the stored record; racing updates to the same record
// resolve last-write-wins with no field merge.
func (s *Service) Update(ctx context.Context, category, id string, patch *gallery.ImagePatch) (*gallery.ImageRecord, error) {
	if !gallery.ValidCategory(category) {
		return nil, ErrUnknownCategory
	}

	var updated gallery.ImageRecord
	message := fmt.Sprintf("Update %s: %s", category, id)
	_, err := s.apply(ctx, category, message, func(doc *gallery.CollectionDocument) error {
		i := doc.FindImage(id)
		if i < 0 {
			return ErrNotFound
		}
		patch.Apply(&doc.Images[i])
		updated = doc.Images[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the record. An unknown id aborts before any store write.
func (s *Service) Delete(ctx context.Context, category, id string) error {
	if !gallery.ValidCategory(category) {
		return ErrUnknownCategory
	}

	message := fmt.Sprintf("Delete %s: %s", category, id)
	_, err := s.apply(ctx, category, message, func(doc *gallery.CollectionDocument) error {
		i := doc.FindImage(id)
		if i < 0 {
			return ErrNotFound
		}
		doc.Images = append(doc.Images[:i], doc.Images[i+1:]...)
		return nil
	})
	return err
}

// SetVisibility toggles whether the record appears on the public page.
func (s *Service) SetVisibility(ctx context.Context, category, id string, visible bool) (*gallery.ImageRecord, error) {
	return s.Update(ctx, category, id, &gallery.ImagePatch{Visible: &visible})
}

// SetFeatured toggles the record's featured flag.
func (s *Service) SetFeatured(ctx context.Context, category, id string, featured bool) (*gallery.ImageRecord, error) {
	return s.Update(ctx, category, id, &gallery.ImagePatch{Featured: &featured})
}

// InvalidateAll drops every cache entry (used after bulk operations).
func (s *Service) InvalidateAll(ctx context.Context) {
	s.cache.InvalidateAll(ctx)
}

func (s *Service) apply(ctx context.Context, category, message string, transform updater.Transform) (*updater.Result, error) {
	res, err := s.engine.Apply(ctx, category, transform, message)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, category)
	return res, nil
}

func decodeDocument(category string, content []byte) (*gallery.CollectionDocument, error) {
	doc, err := gallery.DecodeDocument(content)
	if err != nil {
		return nil, fmt.Errorf("parse document %q: %w", category, err)
	}
	doc.Category = category
	return doc, nil
}

// filterDocument returns a copy of doc restricted by opts. The cached
// document itself is never mutated.
func filterDocument(doc *gallery.CollectionDocument, opts ListOptions) *gallery.CollectionDocument {
	if !opts.VisibleOnly && !opts.FeaturedOnly {
		return doc
	}
	out := &gallery.CollectionDocument{
		Category:    doc.Category,
		LastUpdated: doc.LastUpdated,
		Images:      make([]gallery.ImageRecord, 0, len(doc.Images)),
	}
	for _, img := range doc.Images {
		if opts.VisibleOnly && !img.Visible {
			continue
		}
		if opts.FeaturedOnly && !img.Featured {
			continue
		}
		out.Images = append(out.Images, img)
	}
	out.TotalImages = len(out.Images)
	return out
}
