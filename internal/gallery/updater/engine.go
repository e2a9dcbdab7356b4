package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/snsphoto/gallery-api/internal/gallery"
	"github.com/snsphoto/gallery-api/internal/gallery/store"
	"github.com/snsphoto/gallery-api/pkg/logger"
	"github.com/snsphoto/gallery-api/pkg/metrics"
)

var (
	// ErrConcurrencyExhausted: every attempt lost the conditional-write race.
	ErrConcurrencyExhausted = errors.New("optimistic update exhausted: write conflicts on every attempt")
	// ErrTransientExhausted: every attempt failed on a transient store error.
	ErrTransientExhausted = errors.New("optimistic update exhausted: transient store failures on every attempt")
)

// Transform mutates a copy of the current document into the desired state.
// It must be pure: no I/O, no reliance on state outside the given document.
// Returning an error aborts the update with no write and no retry.
type Transform func(doc *gallery.CollectionDocument) error

// Result is a successful update: the written document and its new token.
type Result struct {
	Document *gallery.CollectionDocument
	Token    string
}

// Engine runs the read-transform-conditional-write loop against a Store.
// The store's token rejection is the only concurrency primitive; the engine
// just retries from a fresh read when it loses the race.
type Engine struct {
	store       store.Store
	maxAttempts int
	baseBackoff time.Duration
	now         gallery.Clock
}

// New builds an engine. maxAttempts counts total attempts, not retries;
// values below 1 are clamped to 1.
func New(s store.Store, maxAttempts int, baseBackoff time.Duration) *Engine {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Engine{store: s, maxAttempts: maxAttempts, baseBackoff: baseBackoff, now: time.Now}
}

// WithClock overrides the engine's clock (tests).
func (e *Engine) WithClock(clock gallery.Clock) *Engine {
	e.now = clock
	return e
}

// Apply performs fetch -> transform -> conditional write for the category
// document named by key, retrying on conflict or transient failure with the
// backoff doubling per attempt. message is the change description recorded
// with the write.
func (e *Engine) Apply(ctx context.Context, key string, transform Transform, message string) (*Result, error) {
	var lastErr error
	backoff := e.baseBackoff

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.UpdateRetries.WithLabelValues(key).Inc()
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		res, err := e.attempt(ctx, key, transform, message)
		if err == nil {
			return res, nil
		}

		switch {
		case errors.Is(err, store.ErrConflict):
			metrics.StoreConflicts.WithLabelValues(key).Inc()
			logger.Debugf("update %q attempt %d/%d lost the write race", key, attempt, e.maxAttempts)
			lastErr = err
		case store.IsTransient(err):
			metrics.StoreTransientErrors.WithLabelValues(key).Inc()
			logger.Warnf("update %q attempt %d/%d transient failure: %v", key, attempt, e.maxAttempts, err)
			lastErr = err
		default:
			// validation / not-found from the transform, or a permanent
			// store error: surface immediately
			return nil, err
		}
	}

	if errors.Is(lastErr, store.ErrConflict) {
		metrics.UpdateExhausted.WithLabelValues(key, "conflict").Inc()
		return nil, fmt.Errorf("%w (key %q, %d attempts)", ErrConcurrencyExhausted, key, e.maxAttempts)
	}
	metrics.UpdateExhausted.WithLabelValues(key, "transient").Inc()
	return nil, fmt.Errorf("%w (key %q, %d attempts): %v", ErrTransientExhausted, key, e.maxAttempts, lastErr)
}

func (e *Engine) attempt(ctx context.Context, key string, transform Transform, message string) (*Result, error) {
	doc, token, err := e.fetchCurrent(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := transform(doc); err != nil {
		return nil, err
	}
	doc.Category = key
	doc.LastUpdated = e.now().UTC()
	doc.TotalImages = len(doc.Images)

	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize document %q: %w", key, err)
	}

	newToken, err := e.store.Write(ctx, key, content, token, message)
	if err != nil {
		return nil, err
	}
	return &Result{Document: doc, Token: newToken}, nil
}

// fetchCurrent reads the authoritative document, treating an absent file as
// the canonical empty collection with no revision token.
func (e *Engine) fetchCurrent(ctx context.Context, key string) (*gallery.CollectionDocument, string, error) {
	snap, err := e.store.Fetch(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return gallery.EmptyDocument(key, e.now().UTC()), "", nil
	}
	if err != nil {
		return nil, "", err
	}

	doc, err := gallery.DecodeDocument(snap.Content)
	if err != nil {
		return nil, "", fmt.Errorf("parse document %q: %w", key, err)
	}
	return doc, snap.Token, nil
}
