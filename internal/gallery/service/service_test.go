package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snsphoto/gallery-api/internal/gallery"
	"github.com/snsphoto/gallery-api/internal/gallery/cache"
	"github.com/snsphoto/gallery-api/internal/gallery/store"
	"github.com/snsphoto/gallery-api/internal/gallery/updater"
)

// countingStore tracks fetches and can be switched to fail them.
type countingStore struct {
	*store.MemoryStore
	fetches   int
	failFetch bool
}

func (s *countingStore) Fetch(ctx context.Context, key string) (*store.Snapshot, error) {
	s.fetches++
	if s.failFetch {
		return nil, &store.TransientError{Op: "fetch", Cause: fmt.Errorf("network down")}
	}
	return s.MemoryStore.Fetch(ctx, key)
}

type fixture struct {
	svc   *Service
	store *countingStore
	cache *cache.MemoryCache
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: &countingStore{MemoryStore: store.NewMemoryStore()},
		now:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.cache = cache.NewMemoryCache(30 * time.Second).WithClock(clock)

	ids := 0
	newID := func(category string) string {
		ids++
		return fmt.Sprintf("%s_%04d", category, ids)
	}

	engine := updater.New(f.store, 3, time.Millisecond).WithClock(clock)
	f.svc = New(f.store, f.cache, engine, newID, clock)
	return f
}

func (f *fixture) mustCreate(t *testing.T, category, title string) *gallery.ImageRecord {
	t.Helper()
	rec, err := f.svc.Create(context.Background(), category, &gallery.NewImageFields{
		Title:    title,
		MediaURL: "https://cdn/" + title + ".jpg",
		PublicID: "gallery/" + title,
	})
	require.NoError(t, err)
	return rec
}

func TestCreateThenRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.mustCreate(t, "portrait", "T")
	require.NotEmpty(t, rec.ID)
	require.True(t, rec.Visible)
	require.False(t, rec.Featured)
	require.Equal(t, f.now, rec.UploadedAt)

	doc, err := f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, doc.TotalImages)
	require.Equal(t, "T", doc.Images[0].Title)
	require.Equal(t, rec.ID, doc.Images[0].ID)
}

func TestCreateValidation_NoStoreWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "portrait", &gallery.NewImageFields{Description: "only desc"})
	var verr *gallery.ValidationError
	require.ErrorAs(t, err, &verr)

	// nothing was written
	_, err = f.store.MemoryStore.Fetch(ctx, "portrait")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreate_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, "portrait", "first")
	f.mustCreate(t, "portrait", "second")

	doc, err := f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)
	require.Equal(t, "second", doc.Images[0].Title)
	require.Equal(t, "first", doc.Images[1].Title)
}

func TestUpdatePreservesIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.mustCreate(t, "portrait", "T")
	f.now = f.now.Add(time.Minute)

	title := "T2"
	updated, err := f.svc.Update(ctx, "portrait", rec.ID, &gallery.ImagePatch{Title: &title})
	require.NoError(t, err)
	require.Equal(t, rec.ID, updated.ID)
	require.Equal(t, rec.UploadedAt, updated.UploadedAt)
	require.Equal(t, "T2", updated.Title)

	doc, err := f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)
	require.Equal(t, f.now, doc.LastUpdated)
}

func TestUpdateUnknownID(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, "portrait", "T")

	title := "x"
	_, err := f.svc.Update(context.Background(), "portrait", "portrait_nope", &gallery.ImagePatch{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.mustCreate(t, "bw", "gone")
	require.NoError(t, f.svc.Delete(ctx, "bw", rec.ID))

	doc, err := f.svc.List(ctx, "bw", ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 0, doc.TotalImages)
}

func TestDeleteUnknownID_LeavesDocumentUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, "bw", "stays")
	before, err := f.store.MemoryStore.Fetch(ctx, "bw")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, "bw", "bw_missing")
	require.ErrorIs(t, err, ErrNotFound)

	// no write happened: same content, same revision token
	after, err := f.store.MemoryStore.Fetch(ctx, "bw")
	require.NoError(t, err)
	require.Equal(t, before.Token, after.Token)
	require.Equal(t, before.Content, after.Content)
}

func TestConflictRetryConvergence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, "portrait", "A")

	// force the next conditional write to lose the race once
	writes := 0
	f.store.MemoryStore.FailWrites = func(key string, attempt int) error {
		writes++
		if writes == 1 {
			return store.ErrConflict
		}
		return nil
	}

	f.mustCreate(t, "portrait", "B")

	doc, err := f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, doc.TotalImages)
	require.NotEqual(t, doc.Images[0].ID, doc.Images[1].ID)
}

func TestRetryCeilingSurfacesConcurrencyExhausted(t *testing.T) {
	f := newFixture(t)

	f.store.MemoryStore.FailWrites = func(key string, attempt int) error {
		return store.ErrConflict
	}

	_, err := f.svc.Create(context.Background(), "portrait", &gallery.NewImageFields{
		Title: "T", MediaURL: "u", PublicID: "p",
	})
	require.ErrorIs(t, err, updater.ErrConcurrencyExhausted)
}

func TestSetVisibilityAndFeatured(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.mustCreate(t, "landscape", "L")

	hidden, err := f.svc.SetVisibility(ctx, "landscape", rec.ID, false)
	require.NoError(t, err)
	require.False(t, hidden.Visible)

	featured, err := f.svc.SetFeatured(ctx, "landscape", rec.ID, true)
	require.NoError(t, err)
	require.True(t, featured.Featured)

	// hidden images disappear from the public filter
	doc, err := f.svc.List(ctx, "landscape", ListOptions{VisibleOnly: true})
	require.NoError(t, err)
	require.Equal(t, 0, doc.TotalImages)

	doc, err = f.svc.List(ctx, "landscape", ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, doc.TotalImages)
}

func TestListFeaturedFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, "portrait", "plain")
	b := f.mustCreate(t, "portrait", "star")
	_, err := f.svc.SetFeatured(ctx, "portrait", b.ID, true)
	require.NoError(t, err)

	doc, err := f.svc.List(ctx, "portrait", ListOptions{VisibleOnly: true, FeaturedOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, doc.TotalImages)
	require.Equal(t, "star", doc.Images[0].Title)
}

func TestListUnknownCategory(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.List(context.Background(), "general", ListOptions{})
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestListAbsentDocumentYieldsEmpty(t *testing.T) {
	f := newFixture(t)
	doc, err := f.svc.List(context.Background(), "bw", ListOptions{VisibleOnly: true})
	require.NoError(t, err)
	require.Equal(t, "bw", doc.Category)
	require.Equal(t, 0, doc.TotalImages)
	require.NotNil(t, doc.Images)
}

func TestCacheBehavior(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, "portrait", "one")

	// first read populates the cache
	_, err := f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)
	fetchesAfterFirst := f.store.fetches

	// a read just before TTL expiry serves the snapshot, no fetch
	f.now = f.now.Add(29 * time.Second)
	_, err = f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)
	require.Equal(t, fetchesAfterFirst, f.store.fetches)

	// past TTL expiry the read goes back to the store
	f.now = f.now.Add(2 * time.Second)
	_, err = f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)
	require.Greater(t, f.store.fetches, fetchesAfterFirst)
}

func TestReadAfterWriteReflectsWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, "portrait", "one")
	_, err := f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)

	// the write invalidates the cache entry, so the next read sees it
	f.mustCreate(t, "portrait", "two")
	doc, err := f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, doc.TotalImages)
}

func TestStaleOnErrorFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, "portrait", "kept")
	_, err := f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)

	// TTL expires and the store goes down
	f.now = f.now.Add(time.Minute)
	f.store.failFetch = true

	doc, err := f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, doc.TotalImages)
	require.Equal(t, "kept", doc.Images[0].Title)
}

func TestFreshBypassesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, "portrait", "one")
	_, err := f.svc.List(ctx, "portrait", ListOptions{})
	require.NoError(t, err)
	fetches := f.store.fetches

	_, err = f.svc.List(ctx, "portrait", ListOptions{Fresh: true})
	require.NoError(t, err)
	require.Greater(t, f.store.fetches, fetches)
}
