// Package upload stores binary media through a fixed chain of fallback
// targets: the bucket for the media kind, a general bucket, and finally an
// inline data URI for files under the inline ceiling.
package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// File is one binary payload to store.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Config selects the buckets and limits of an Uploader.
type Config struct {
	ImageBucket    string
	VideoBucket    string
	FallbackBucket string
	// InlineCeiling is the exclusive size limit for data URI inlining.
	InlineCeiling int
	// RequireAll discards every URL of a batch when any file fails.
	RequireAll bool
	// Prefix is prepended to every object path.
	Prefix string
}

// ConfigFrom derives an uploader Config from the application config.
func ConfigFrom(c types.Config) Config {
	c = c.WithDefaults()
	return Config{
		ImageBucket:    c.Buckets.Images,
		VideoBucket:    c.Buckets.Videos,
		FallbackBucket: c.Buckets.Fallback,
		InlineCeiling:  c.Upload.InlineCeiling,
		RequireAll:     c.Upload.RequireAll,
	}
}

// Uploader stores files one at a time, in order.
type Uploader struct {
	storage types.ObjectStorage
	cfg     Config
	log     logging.Logger
	now     func() time.Time
	newID   func() string
}

// New returns an Uploader writing to storage.
func New(storage types.ObjectStorage, cfg Config, log logging.Logger) *Uploader {
	if cfg.ImageBucket == "" {
		cfg.ImageBucket = types.ImagesBucket
	}
	if cfg.VideoBucket == "" {
		cfg.VideoBucket = types.VideosBucket
	}
	if cfg.FallbackBucket == "" {
		cfg.FallbackBucket = types.FallbackBucket
	}
	if cfg.InlineCeiling <= 0 {
		cfg.InlineCeiling = types.DefaultInlineCeiling
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Uploader{
		storage: storage,
		cfg:     cfg,
		log:     log.WithFields(logging.Fields{"component": "uploader"}),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Upload stores every file and returns the URLs of the files that were
// stored, in input order. When some files fail, the error is an
// *types.UploadBatchError and the URLs of the other files are still
// returned, unless RequireAll is set.
func (u *Uploader) Upload(ctx context.Context, files []File) ([]string, error) {
	urls := make([]string, 0, len(files))
	var failures []*types.FileError
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			failures = append(failures, &types.FileError{Index: i, Name: f.Name, Err: err})
			continue
		}
		url, err := u.UploadOne(ctx, f)
		if err != nil {
			failures = append(failures, &types.FileError{Index: i, Name: f.Name, Err: err})
			continue
		}
		urls = append(urls, url)
	}
	if len(failures) == 0 {
		return urls, nil
	}
	batchErr := &types.UploadBatchError{Uploaded: len(urls), Failures: failures}
	if u.cfg.RequireAll {
		return nil, batchErr
	}
	return urls, batchErr
}

// UploadOne stores a single file, trying each target at most once. It
// returns *types.MediaUploadExhaustedError when every target fails.
func (u *Uploader) UploadOne(ctx context.Context, f File) (string, error) {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectPath := u.objectPath(f.Name)
	log := u.log.WithFields(logging.Fields{"file": f.Name, "size": len(f.Data)})

	var attempts []types.UploadAttempt
	for _, bucket := range u.buckets(contentType) {
		err := u.storage.UploadObject(ctx, bucket, objectPath, f.Data, contentType)
		if err == nil {
			log.Debug("media stored", logging.Fields{"bucket": bucket, "path": objectPath})
			return u.storage.PublicURL(bucket, objectPath), nil
		}
		log.Warn("media target failed", logging.Fields{"bucket": bucket, "error": err.Error()})
		attempts = append(attempts, types.UploadAttempt{Target: bucket, Err: err})
	}

	if len(f.Data) < u.cfg.InlineCeiling {
		log.Warn("media inlined as data uri", nil)
		return DataURI(contentType, f.Data), nil
	}
	return "", &types.MediaUploadExhaustedError{
		Name:     f.Name,
		Size:     len(f.Data),
		Ceiling:  u.cfg.InlineCeiling,
		Attempts: attempts,
	}
}

// buckets returns the bucket targets for contentType in fallback order.
func (u *Uploader) buckets(contentType string) []string {
	primary := u.cfg.ImageBucket
	if strings.HasPrefix(strings.ToLower(contentType), "video/") {
		primary = u.cfg.VideoBucket
	}
	if primary == u.cfg.FallbackBucket {
		return []string{primary}
	}
	return []string{primary, u.cfg.FallbackBucket}
}

// objectPath builds a collision-free path that keeps the file extension.
func (u *Uploader) objectPath(name string) string {
	ext := strings.ToLower(path.Ext(path.Base(name)))
	p := fmt.Sprintf("%s/%s%s", u.now().UTC().Format("2006/01/02"), u.newID(), ext)
	if u.cfg.Prefix != "" {
		p = strings.Trim(u.cfg.Prefix, "/") + "/" + p
	}
	return p
}

// DataURI encodes data as a base64 data URI.
func DataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI reverses DataURI. It reports false for anything that is not
// a base64 data URI.
func DecodeDataURI(uri string) (contentType string, data []byte, ok bool) {
	rest, found := strings.CutPrefix(uri, "data:")
	if !found {
		return "", nil, false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, false
	}
	contentType, found = strings.CutSuffix(meta, ";base64")
	if !found {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return contentType, data, true
}
