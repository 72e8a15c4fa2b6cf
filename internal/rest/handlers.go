package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/internal/upload"
	"github.com/mesh-intelligence/propsync/internal/view"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// PropertyStore is the collection the handlers serve. *store.Store
// implements it.
type PropertyStore interface {
	List() []types.Property
	Get(id string) (types.Property, error)
	Create(ctx context.Context, patch types.PropertyPatch) (types.Property, error)
	Update(ctx context.Context, id string, patch types.PropertyPatch) (types.Property, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) error
	IncrementCounter(ctx context.Context, id string, counter types.Counter) (int64, error)
}

// PropertyHandler serves /api/v1/properties.
type PropertyHandler struct {
	store PropertyStore
}

// NewPropertyHandler returns a handler over s.
func NewPropertyHandler(s PropertyStore) *PropertyHandler {
	return &PropertyHandler{store: s}
}

// List handles GET /api/v1/properties.
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFromContext(r.Context()).WithFields(logging.Fields{"handler": "List"})

	req, err := view.ParseQuery(r.URL.Query())
	if err != nil {
		logger.Warn("invalid query", logging.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	proj := req.Project(h.store.List())
	logger.Debug("projection built", logging.Fields{
		"total": proj.Pagination.Total, "items_on_page": len(proj.Items),
	})
	RespondWithJSON(w, http.StatusOK, proj)
}

// Get handles GET /api/v1/properties/{id}.
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, p)
}

// Create handles POST /api/v1/properties.
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFromContext(r.Context()).WithFields(logging.Fields{"handler": "Create"})

	var patch types.PropertyPatch
	if err := decodeJSON(r, &patch); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.store.Create(r.Context(), patch)
	if err != nil {
		logger.Error("create failed", err, nil)
		writeError(w, err)
		return
	}
	logger.Info("property created", logging.Fields{"id": p.ID})
	RespondWithJSON(w, http.StatusCreated, p)
}

// Update handles PATCH /api/v1/properties/{id}.
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := LoggerFromContext(r.Context()).WithFields(logging.Fields{"handler": "Update", "id": id})

	var patch types.PropertyPatch
	if err := decodeJSON(r, &patch); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		logger.Error("update failed", err, nil)
		writeError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/v1/properties/{id}.
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		LoggerFromContext(r.Context()).Error("delete failed", err, logging.Fields{"id": id})
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDelete handles POST /api/v1/properties/bulk-delete.
func (h *PropertyHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.IDs) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}
	if err := h.store.BulkDelete(r.Context(), req.IDs); err != nil {
		LoggerFromContext(r.Context()).Error("bulk delete failed", err, logging.Fields{"count": len(req.IDs)})
		writeError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]int{"deleted": len(req.IDs)})
}

type counterResponse struct {
	ID      string        `json:"id"`
	Counter types.Counter `json:"counter"`
	Value   int64         `json:"value"`
}

// IncrementCounter handles POST /api/v1/properties/{id}/counters/{counter}.
func (h *PropertyHandler) IncrementCounter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	counter := types.Counter(chi.URLParam(r, "counter"))
	value, err := h.store.IncrementCounter(r.Context(), id, counter)
	if err != nil {
		writeError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, counterResponse{ID: id, Counter: counter, Value: value})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body must not be empty")
		}
		return errors.New("malformed JSON body: " + err.Error())
	}
	return nil
}

// Uploader stores media files. *upload.Uploader implements it.
type Uploader interface {
	Upload(ctx context.Context, files []upload.File) ([]string, error)
}

// MediaHandler serves /api/v1/media.
type MediaHandler struct {
	uploader Uploader
	objects  ObjectReader
	maxBytes int64
}

type uploadFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

type uploadResponse struct {
	URLs     []string        `json:"urls"`
	Failures []uploadFailure `json:"failures,omitempty"`
}

// Upload handles POST /api/v1/media with multipart field "files". Partial
// failures are reported next to the stored URLs with status 207, or 502 when
// no URL came back.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFromContext(r.Context()).WithFields(logging.Fields{"handler": "Upload"})

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "no files in field \"files\"")
		return
	}

	files := make([]upload.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "unreadable file "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "unreadable file "+fh.Filename)
			return
		}
		ct := fh.Header.Get("Content-Type")
		if ct == "" || ct == "application/octet-stream" {
			ct = http.DetectContentType(data)
		}
		files = append(files, upload.File{Name: fh.Filename, ContentType: ct, Data: data})
	}

	urls, err := h.uploader.Upload(r.Context(), files)
	resp := uploadResponse{URLs: urls}
	if resp.URLs == nil {
		resp.URLs = []string{}
	}
	if err == nil {
		logger.Info("media uploaded", logging.Fields{"count": len(urls)})
		RespondWithJSON(w, http.StatusOK, resp)
		return
	}

	var batch *types.UploadBatchError
	if !errors.As(err, &batch) {
		logger.Error("upload failed", err, nil)
		writeError(w, err)
		return
	}
	for _, fe := range batch.Failures {
		resp.Failures = append(resp.Failures, uploadFailure{Index: fe.Index, Name: fe.Name, Error: fe.Err.Error()})
	}
	logger.Warn("media partially uploaded", logging.Fields{"uploaded": batch.Uploaded, "failed": len(batch.Failures)})
	// With RequireAll no URLs come back even when some files were stored,
	// so that batch is answered 502.
	status := http.StatusMultiStatus
	if len(urls) == 0 {
		status = http.StatusBadGateway
	}
	RespondWithJSON(w, status, resp)
}

// Object handles GET /api/v1/media/{bucket}/*.
func (h *MediaHandler) Object(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if h.objects == nil || path == "" {
		WriteJSONError(w, http.StatusNotFound, "object not found")
		return
	}
	obj, err := h.objects.Object(r.Context(), bucket, path)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			WriteJSONError(w, http.StatusNotFound, "object not found")
			return
		}
		LoggerFromContext(r.Context()).Error("object read failed", err, logging.Fields{"bucket": bucket, "path": path})
		WriteJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}
