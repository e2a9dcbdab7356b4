package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/snsphoto/gallery-api/internal/config"
	"github.com/snsphoto/gallery-api/internal/gallery"
)

// UploadResult describes a stored binary: everything the gallery record
// needs to reference it.
type UploadResult struct {
	SecureURL string `json:"secureUrl"`
	PublicID  string `json:"publicId"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	ByteSize  int64  `json:"byteSize"`
}

// Storage uploads gallery media to a MinIO/S3 bucket and hands back the
// URL + object id pair fed into record creation.
type Storage struct {
	client *minio.Client
	bucket string
	folder string
	maxMB  int64
	urlTTL time.Duration
	now    func() time.Time
}

// NewStorage creates the media storage client and ensures the bucket exists.
func NewStorage(cfg *config.MediaConfig) (*Storage, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("media storage config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &Storage{
		client: mc,
		bucket: cfg.Bucket,
		folder: cfg.Folder,
		maxMB:  cfg.MaxUploadMB,
		urlTTL: cfg.PublicURLTTL,
		now:    time.Now,
	}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// MaxUploadBytes is the configured upload ceiling.
func (s *Storage) MaxUploadBytes() int64 {
	return s.maxMB * 1024 * 1024
}

// Upload stores the payload under <folder>/<category>/<unix-ms>-<name> and
// returns the record fields. The payload is read fully so dimensions can be
// sniffed before the object is written.
func (s *Storage) Upload(ctx context.Context, category, filename string, reader io.Reader, contentType string) (*UploadResult, error) {
	if !gallery.ValidCategory(category) {
		return nil, fmt.Errorf("invalid category %q", category)
	}

	data, err := io.ReadAll(io.LimitReader(reader, s.MaxUploadBytes()+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.MaxUploadBytes() {
		return nil, fmt.Errorf("file size must be less than %dMB", s.maxMB)
	}

	width, height := sniffDimensions(data)

	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	key := fmt.Sprintf("%s/%s/%d-%s%s", s.folder, category, s.now().UnixMilli(), base, path.Ext(filename))

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("minio put: %w", err)
	}

	secure, err := s.PresignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		SecureURL: secure,
		PublicID:  key,
		Width:     width,
		Height:    height,
		ByteSize:  int64(len(data)),
	}, nil
}

// Delete removes a stored object by its public id.
func (s *Storage) Delete(ctx context.Context, publicID string) error {
	return s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{})
}

// PresignedURL returns a presigned GET URL valid for the given duration.
func (s *Storage) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	reqParams := make(url.Values)
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, reqParams)
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}

// sniffDimensions decodes just the image header. Zero values when the
// payload is not a recognized format; dimensions are descriptive metadata,
// not authoritative.
func sniffDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
