package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/propsync/internal/mapper"
	"github.com/mesh-intelligence/propsync/internal/sqlite"
	"github.com/mesh-intelligence/propsync/internal/store"
	"github.com/mesh-intelligence/propsync/internal/upload"
	"github.com/mesh-intelligence/propsync/internal/view"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// setupTestServer wires a sqlite backend, store and uploader behind the
// router.
func setupTestServer(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	backend := sqlite.NewBackend()
	require.NoError(t, backend.Attach(types.DefaultConfig(t.TempDir())))
	t.Cleanup(func() { backend.Detach() })

	m := mapper.New(mapper.NewLocations(backend, nil, nil), nil)
	s := store.New(backend, m, store.WithRetry(1, 0))
	require.NoError(t, s.Load(context.Background()))

	up := upload.New(backend, upload.Config{}, nil)
	h := NewRouter(types.ServerConfig{}, Deps{Store: s, Uploader: up, Objects: backend}, nil)
	return h, s
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	h, _ := setupTestServer(t)
	w := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(w.Header().Get(TraceHeader))
	assert.NoError(t, err, "every response carries a trace id")
}

func TestTraceIDPropagates(t *testing.T) {
	h, _ := setupTestServer(t)
	id := uuid.NewString()
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(TraceHeader, id)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, id, w.Header().Get(TraceHeader))
}

func TestPropertyLifecycle(t *testing.T) {
	h, s := setupTestServer(t)

	w := do(t, h, http.MethodPost, "/api/v1/properties",
		`{"title":"Garden flat","price":{"amount":1500,"currency":"kes"},"bedrooms":2,"address":{"city":"Nairobi","country":"Kenya"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[types.Property](t, w)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Garden flat", created.Title)
	assert.Equal(t, "KES", created.Price.Currency)
	assert.Equal(t, "KE", created.Address.CountryCode)
	assert.Len(t, s.List(), 1)

	w = do(t, h, http.MethodGet, "/api/v1/properties/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[types.Property](t, w).ID)

	w = do(t, h, http.MethodPatch, "/api/v1/properties/"+created.ID, `{"title":"Garden flat with view"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[types.Property](t, w)
	assert.Equal(t, "Garden flat with view", updated.Title)
	assert.Equal(t, 2, updated.Rooms.Bedrooms, "absent attributes are untouched")

	w = do(t, h, http.MethodPost, "/api/v1/properties/"+created.ID+"/counters/views", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[counterResponse](t, w).Value)

	w = do(t, h, http.MethodPost, "/api/v1/properties/"+created.ID+"/counters/likes", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/api/v1/properties/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/properties/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateValidation(t *testing.T) {
	h, s := setupTestServer(t)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing title", `{"description":"no title"}`, "title"},
		{"negative price", `{"title":"x","price":{"amount":-1}}`, "price"},
		{"unknown status", `{"title":"x","status":"gone"}`, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/v1/properties", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantField, decode[ErrorResponse](t, w).Field)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/properties", `{"title":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("unknown field", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/properties", `{"title":"x","colour":"red"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	assert.Empty(t, s.List(), "rejected creates never reach the collection")
}

func TestListProjection(t *testing.T) {
	h, s := setupTestServer(t)
	ctx := context.Background()

	for _, p := range []struct {
		title string
		price float64
		city  string
	}{
		{"Alpha", 100, "Nairobi"},
		{"Bravo", 200, "Lagos"},
		{"Charlie", 300, "Nairobi"},
	} {
		title, city := p.title, p.city
		_, err := s.Create(ctx, types.PropertyPatch{
			Title:   &title,
			Price:   &types.Price{Amount: p.price},
			Address: &types.Address{City: city},
		})
		require.NoError(t, err)
	}

	w := do(t, h, http.MethodGet, "/api/v1/properties?city=nairobi&sort=price&order=desc", "")
	require.Equal(t, http.StatusOK, w.Code)
	proj := decode[view.Projection](t, w)
	require.Len(t, proj.Items, 2)
	assert.Equal(t, "Charlie", proj.Items[0].Title)
	assert.Equal(t, types.Pagination{Page: 1, Limit: 10, Total: 2, TotalPages: 1}, proj.Pagination)

	w = do(t, h, http.MethodGet, "/api/v1/properties?page=9", "")
	require.Equal(t, http.StatusOK, w.Code)
	proj = decode[view.Projection](t, w)
	assert.NotNil(t, proj.Items)
	assert.Empty(t, proj.Items)
	assert.Equal(t, 3, proj.Pagination.Total)

	w = do(t, h, http.MethodGet, "/api/v1/properties?min_price=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkDelete(t *testing.T) {
	h, s := setupTestServer(t)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		p, err := s.Create(ctx, types.PropertyPatch{Title: &title})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	body, _ := json.Marshal(bulkDeleteRequest{IDs: ids[:2]})
	w := do(t, h, http.MethodPost, "/api/v1/properties/bulk-delete", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]int{"deleted": 2}, decode[map[string]int](t, w))
	require.Len(t, s.List(), 1)
	assert.Equal(t, ids[2], s.List()[0].ID)

	w = do(t, h, http.MethodPost, "/api/v1/properties/bulk-delete", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, spec := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		hdr.Set("Content-Type", spec[0])
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte(spec[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestMediaUploadAndServe(t *testing.T) {
	h, _ := setupTestServer(t)

	body, ct := multipartBody(t, map[string][2]string{"front.PNG": {"image/png", "png-bytes"}})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
	r.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[uploadResponse](t, w)
	require.Len(t, resp.URLs, 1)
	url := resp.URLs[0]
	assert.True(t, strings.HasPrefix(url, "/api/v1/media/property-images/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	w = do(t, h, http.MethodGet, url, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", w.Body.String())

	w = do(t, h, http.MethodGet, "/api/v1/media/property-images/missing.png", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMediaUploadInlinesRejectedType(t *testing.T) {
	h, _ := setupTestServer(t)

	body, ct := multipartBody(t, map[string][2]string{"notes.txt": {"text/plain", "hello"}})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
	r.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[uploadResponse](t, w)
	require.Len(t, resp.URLs, 1)
	gotType, data, ok := upload.DecodeDataURI(resp.URLs[0])
	require.True(t, ok)
	assert.Equal(t, "text/plain", gotType)
	assert.Equal(t, "hello", string(data))
}

func TestMediaUploadRequiresFiles(t *testing.T) {
	h, _ := setupTestServer(t)
	body, ct := multipartBody(t, nil)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
	r.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type stubUploader struct {
	urls []string
	err  error
}

func (u stubUploader) Upload(context.Context, []upload.File) ([]string, error) {
	return u.urls, u.err
}

func TestMediaUploadBatchStatus(t *testing.T) {
	failed := []*types.FileError{{Index: 1, Name: "b.png", Err: errors.New("bucket offline")}}
	tests := []struct {
		name     string
		uploader stubUploader
		wantCode int
		wantURLs int
	}{
		{"partial success", stubUploader{urls: []string{"/a.png"}, err: &types.UploadBatchError{Uploaded: 1, Failures: failed}}, http.StatusMultiStatus, 1},
		{"nothing stored", stubUploader{err: &types.UploadBatchError{Failures: failed}}, http.StatusBadGateway, 0},
		{"require all discards stored urls", stubUploader{err: &types.UploadBatchError{Uploaded: 1, Failures: failed}}, http.StatusBadGateway, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRouter(types.ServerConfig{}, Deps{Uploader: tt.uploader}, nil)
			body, ct := multipartBody(t, map[string][2]string{"a.png": {"image/png", "a"}, "b.png": {"image/png", "b"}})
			r := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
			r.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())

			resp := decode[uploadResponse](t, w)
			assert.Len(t, resp.URLs, tt.wantURLs)
			require.Len(t, resp.Failures, 1)
			assert.Equal(t, "b.png", resp.Failures[0].Name)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := setupTestServer(t)
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/properties", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	r.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
