package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

func TestBucketAllows(t *testing.T) {
	tests := []struct {
		name        string
		bucket      Bucket
		contentType string
		size        int64
		want        bool
	}{
		{"matching prefix", Bucket{AllowedTypes: []string{"image/"}}, "image/png", 10, true},
		{"wrong prefix", Bucket{AllowedTypes: []string{"image/"}}, "video/mp4", 10, false},
		{"any type", Bucket{}, "application/pdf", 10, true},
		{"over size", Bucket{MaxSize: 5}, "image/png", 6, false},
		{"at size", Bucket{MaxSize: 5}, "image/png", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bucket.Allows(tt.contentType, tt.size))
		})
	}
}

func TestUploadObject(t *testing.T) {
	b := setupTestBackend(t)
	ctx := context.Background()
	data := []byte("\x89PNG fake")

	require.NoError(t, b.UploadObject(ctx, types.ImagesBucket, "2026/01/02/a.png", data, "image/png"))

	obj, err := b.Object(ctx, types.ImagesBucket, "2026/01/02/a.png")
	require.NoError(t, err)
	assert.Equal(t, data, obj.Data)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.False(t, obj.CreatedAt.IsZero())

	t.Run("replaces existing object", func(t *testing.T) {
		require.NoError(t, b.UploadObject(ctx, types.ImagesBucket, "2026/01/02/a.png", []byte("v2"), "image/png"))
		obj, err := b.Object(ctx, types.ImagesBucket, "2026/01/02/a.png")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), obj.Data)
	})

	t.Run("rejects content type", func(t *testing.T) {
		err := b.UploadObject(ctx, types.ImagesBucket, "clip.mp4", data, "video/mp4")
		assert.ErrorIs(t, err, types.ErrObjectRejected)
	})

	t.Run("unknown bucket", func(t *testing.T) {
		err := b.UploadObject(ctx, "nope", "a.png", data, "image/png")
		assert.ErrorIs(t, err, types.ErrBucketNotFound)
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := b.Object(ctx, types.ImagesBucket, "missing.png")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestSetAndDropBucket(t *testing.T) {
	b := setupTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.SetBucket(ctx, Bucket{Name: types.ImagesBucket, AllowedTypes: []string{"image/"}, MaxSize: 4}))
	err := b.UploadObject(ctx, types.ImagesBucket, "big.png", []byte("12345"), "image/png")
	assert.ErrorIs(t, err, types.ErrObjectRejected)

	require.NoError(t, b.UploadObject(ctx, types.FallbackBucket, "big.png", []byte("12345"), "image/png"))
	require.NoError(t, b.DropBucket(ctx, types.FallbackBucket))
	err = b.UploadObject(ctx, types.FallbackBucket, "big.png", []byte("12345"), "image/png")
	assert.ErrorIs(t, err, types.ErrBucketNotFound)

	assert.ErrorIs(t, b.SetBucket(ctx, Bucket{}), types.ErrBucketEmpty)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "/api/v1/media/property-images/2026/a%20b.png",
		NewBackend().PublicURL(types.ImagesBucket, "2026/a b.png"))
	assert.Equal(t, "https://cdn.example.com/m/media/x.mp4",
		NewBackend(WithPublicBaseURL("https://cdn.example.com/m/")).PublicURL(types.FallbackBucket, "x.mp4"))
}
