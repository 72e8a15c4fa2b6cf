package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// DefaultPublicBaseURL prefixes object URLs when no base is configured. The
// REST server serves objects under this path.
const DefaultPublicBaseURL = "/api/v1/media"

// Bucket is an object bucket and its upload policy. AllowedTypes holds
// content-type prefixes; an empty list accepts any type. MaxSize of zero
// means unlimited.
type Bucket struct {
	Name         string
	AllowedTypes []string
	MaxSize      int64
}

// Allows reports whether an object of the given type and size fits the
// bucket policy.
func (b Bucket) Allows(contentType string, size int64) bool {
	if b.MaxSize > 0 && size > b.MaxSize {
		return false
	}
	if len(b.AllowedTypes) == 0 {
		return true
	}
	for _, prefix := range b.AllowedTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// Object is a stored object.
type Object struct {
	Bucket      string
	Path        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

const defaultMaxObjectSize = 50 << 20

var defaultBuckets = []Bucket{
	{Name: types.ImagesBucket, AllowedTypes: []string{"image/"}, MaxSize: defaultMaxObjectSize},
	{Name: types.VideosBucket, AllowedTypes: []string{"video/"}, MaxSize: defaultMaxObjectSize},
	{Name: types.FallbackBucket, AllowedTypes: []string{"image/", "video/"}, MaxSize: defaultMaxObjectSize},
}

func seedBuckets(db *sql.DB, buckets []Bucket) error {
	for _, bk := range buckets {
		_, err := db.Exec(
			"INSERT OR IGNORE INTO buckets (name, allowed_types, max_size) VALUES (?, ?, ?)",
			bk.Name, strings.Join(bk.AllowedTypes, ","), bk.MaxSize,
		)
		if err != nil {
			return fmt.Errorf("bucket %s: %w", bk.Name, err)
		}
	}
	return nil
}

// SetBucket creates or replaces a bucket policy.
func (b *Backend) SetBucket(ctx context.Context, bk Bucket) error {
	if bk.Name == "" {
		return types.ErrBucketEmpty
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO buckets (name, allowed_types, max_size) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET allowed_types = excluded.allowed_types, max_size = excluded.max_size`,
		bk.Name, strings.Join(bk.AllowedTypes, ","), bk.MaxSize,
	)
	if err != nil {
		return fmt.Errorf("setting bucket %s: %w", bk.Name, err)
	}
	return nil
}

// DropBucket removes a bucket and its objects.
func (b *Backend) DropBucket(ctx context.Context, name string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM objects WHERE bucket = ?", name); err != nil {
		return fmt.Errorf("dropping objects of %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM buckets WHERE name = ?", name); err != nil {
		return fmt.Errorf("dropping bucket %s: %w", name, err)
	}
	return tx.Commit()
}

func (b *Backend) bucketLocked(ctx context.Context, db *sql.DB, name string) (Bucket, error) {
	var allowed string
	bk := Bucket{Name: name}
	err := db.QueryRowContext(ctx, "SELECT allowed_types, max_size FROM buckets WHERE name = ?", name).
		Scan(&allowed, &bk.MaxSize)
	if errors.Is(err, sql.ErrNoRows) {
		return Bucket{}, fmt.Errorf("%s: %w", name, types.ErrBucketNotFound)
	}
	if err != nil {
		return Bucket{}, fmt.Errorf("reading bucket %s: %w", name, err)
	}
	if allowed != "" {
		bk.AllowedTypes = strings.Split(allowed, ",")
	}
	return bk, nil
}

// UploadObject stores data at path in bucket, replacing any object already
// there. Returns ErrBucketNotFound for an unknown bucket and
// ErrObjectRejected when the bucket policy refuses the object.
func (b *Backend) UploadObject(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return err
	}

	bk, err := b.bucketLocked(ctx, db, bucket)
	if err != nil {
		return err
	}
	if !bk.Allows(contentType, int64(len(data))) {
		return fmt.Errorf("%s/%s (%s, %d bytes): %w", bucket, path, contentType, len(data), types.ErrObjectRejected)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO objects (bucket, path, content_type, size, data, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(bucket, path) DO UPDATE SET content_type = excluded.content_type,
		   size = excluded.size, data = excluded.data, created_at = excluded.created_at`,
		bucket, path, contentType, len(data), data, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("storing %s/%s: %w", bucket, path, err)
	}
	b.log.Debug("object stored", logging.Fields{"bucket": bucket, "path": path, "size": len(data)})
	return nil
}

// PublicURL returns the URL under which the REST server serves the object.
func (b *Backend) PublicURL(bucket, path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.publicBase + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// Object returns a stored object.
// Returns ErrNotFound if the object does not exist.
func (b *Backend) Object(ctx context.Context, bucket, path string) (Object, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return Object{}, err
	}

	obj := Object{Bucket: bucket, Path: path}
	var createdAt string
	err = db.QueryRowContext(ctx,
		"SELECT content_type, data, created_at FROM objects WHERE bucket = ? AND path = ?", bucket, path,
	).Scan(&obj.ContentType, &obj.Data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Object{}, fmt.Errorf("%s/%s: %w", bucket, path, types.ErrNotFound)
	}
	if err != nil {
		return Object{}, fmt.Errorf("reading %s/%s: %w", bucket, path, err)
	}
	obj.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return obj, nil
}
