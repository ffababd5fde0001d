package httpadapter

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kem-osh/write-wellspring/internal/config"
	"github.com/kem-osh/write-wellspring/internal/core/domain"
	"github.com/kem-osh/write-wellspring/internal/core/ports"
)

// multipartMemoryLimit bounds the in-memory part of a parsed form. Larger
// uploads spill to temp files, which RemoveAll cleans up.
const multipartMemoryLimit = 32 << 20

type Router struct {
	cfg       config.Config
	uploads   ports.UploadController
	documents ports.DocumentReader
}

func NewRouter(
	cfg config.Config,
	uploads ports.UploadController,
	documents ports.DocumentReader,
) *Router {
	return &Router{
		cfg:       cfg,
		uploads:   uploads,
		documents: documents,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/uploads", rt.uploadsCollection)
	mux.HandleFunc("/v1/uploads/", rt.uploadsItem)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)

	var handler http.Handler = mux
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	if rt.cfg.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Second)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.submitUploads(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, rt.uploads.State())
	case http.MethodDelete:
		removed, err := rt.uploads.ClearAll()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, clearResponse{Removed: removed, State: rt.uploads.State()})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) submitUploads(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	files := make([]domain.RawFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("open uploaded file %q", header.Filename),
			})
			return
		}
		opened = append(opened, file)
		files = append(files, domain.RawFile{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Content:     file,
		})
	}

	ids, err := rt.uploads.Submit(r.Context(), files)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{ItemIDs: ids, State: rt.uploads.State()})
}

func (rt *Router) uploadsItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/uploads/")
	switch {
	case rest == "retry-failed":
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		retried := rt.uploads.RetryFailed()
		writeJSON(w, http.StatusAccepted, retryFailedResponse{Retried: retried, State: rt.uploads.State()})
	case rest == "completed":
		if r.Method != http.MethodDelete {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		removed, err := rt.uploads.ClearCompleted()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, clearResponse{Removed: removed, State: rt.uploads.State()})
	case strings.HasSuffix(rest, "/retry"):
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		id := strings.TrimSuffix(rest, "/retry")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item id is required"})
			return
		}
		if err := rt.uploads.Retry(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, rt.uploads.State())
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.documents.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type submitResponse struct {
	ItemIDs []string           `json:"item_ids"`
	State   domain.UploadState `json:"state"`
}

type retryFailedResponse struct {
	Retried int                `json:"retried"`
	State   domain.UploadState `json:"state"`
}

type clearResponse struct {
	Removed int                `json:"removed"`
	State   domain.UploadState `json:"state"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
