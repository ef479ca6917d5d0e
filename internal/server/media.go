// media.go - Remote image storage for culto posts.
//
// Images live in an S3-compatible bucket; the database row keeps the public
// URL plus the object key (the deletion handle). Type and size are checked
// before any bytes travel to the remote host. Removal is best-effort only:
// failures are logged and swallowed, never retried, because an orphaned
// object is preferable to a blocked or confusing user-facing error.
package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// maxImageBytes is the upload ceiling for culto images.
const maxImageBytes = 5 << 20 // 5 MiB

// allowedImageTypes are the only content types accepted for upload.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// MediaObject is a stored image: its public URL and the key needed to
// delete it later.
type MediaObject struct {
	URL string
	Key string
}

// Uploader stores and removes culto images.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, filename, contentType string, size int64) (MediaObject, error)
	Remove(ctx context.Context, key string) error
}

// ValidationError marks a client-side precondition failure, mapped to 400.
type ValidationError struct {
	msg string
}

func (e ValidationError) Error() string { return e.msg }

// ValidateImage checks the preconditions enforced before any remote call.
// The returned error names the specific constraint violated.
func ValidateImage(contentType string, size int64) error {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if idx := strings.Index(ct, ";"); idx > 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if !allowedImageTypes[ct] {
		return ValidationError{msg: fmt.Sprintf("imagem must be jpeg, png or webp, got %q", ct)}
	}
	if size > maxImageBytes {
		return ValidationError{msg: "imagem exceeds the 5 MiB limit"}
	}
	return nil
}

// sanitizeFilename strips everything but ASCII letters and digits so the
// original name can safely appear in an object key.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "imagem"
	}
	return b.String()
}

// ImageStore is the MinIO-backed Uploader.
type ImageStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	now     func() time.Time
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		secure = (u.Scheme == "https")
		return u.Host, secure, nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// NewImageStore connects to the media host and verifies the bucket exists.
func NewImageStore(cfg Config) (*ImageStore, error) {
	endpoint, secure, err := normaliseEndpoint(cfg.S3Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(context.Background(), cfg.S3Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("bucket does not exist: %s", cfg.S3Bucket)
	}

	baseURL := strings.TrimRight(cfg.S3PublicURL, "/")
	if baseURL == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		baseURL = scheme + "://" + endpoint
	}

	return &ImageStore{
		client:  client,
		bucket:  cfg.S3Bucket,
		baseURL: baseURL,
		now:     time.Now,
	}, nil
}

// objectKey derives a collision-free key from the upload time and the
// sanitized original filename.
func (s *ImageStore) objectKey(filename string) string {
	return fmt.Sprintf("cultos/%s-%s", s.now().UTC().Format("20060102T150405.000000000"), sanitizeFilename(filename))
}

// Upload validates the image and streams it to the bucket.
func (s *ImageStore) Upload(ctx context.Context, r io.Reader, filename, contentType string, size int64) (MediaObject, error) {
	if err := ValidateImage(contentType, size); err != nil {
		return MediaObject{}, err
	}

	key := s.objectKey(filename)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return MediaObject{}, fmt.Errorf("put object: %w", err)
	}

	return MediaObject{
		URL: fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key),
		Key: key,
	}, nil
}

// Remove deletes a stored object. Failures are logged only; the caller's
// response has already been decided by the time this runs.
func (s *ImageStore) Remove(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		log.Printf("service=media msg=remove_failed key=%s err=%v", key, err)
		return err
	}
	return nil
}
