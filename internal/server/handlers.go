package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"veridoc/internal/logging"
	"veridoc/internal/metadata"
	"veridoc/internal/service"
	"veridoc/internal/store"
)

type handlers struct {
	svc           *service.Service
	log           *logging.Logger
	maxUploadSize int64
}

// analyze accepts one document as multipart form field "file" and
// returns its full analysis report.
func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing form field: file")
		return
	}
	defer file.Close()

	out, err := h.svc.AnalyzeUpload(r.Context(), header.Filename, file)
	if err != nil {
		var unsupported *metadata.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		h.log.WithContext(r.Context()).Error("analyze upload failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, out)
}

type batchRequest struct {
	Paths []string `json:"paths"`
}

// analyzeBatch analyzes a set of server-local paths and returns the
// per-document reports with batch counters.
func (h *handlers) analyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths must not be empty")
		return
	}

	out, err := h.svc.AnalyzeBatch(r.Context(), req.Paths)
	if err != nil {
		h.log.WithContext(r.Context()).Error("batch analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "batch analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) listReports(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{
		Level:  r.URL.Query().Get("level"),
		Format: r.URL.Query().Get("format"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		opts.Offset = n
	}

	reports, err := h.svc.Reports(r.Context(), opts)
	if err != nil {
		h.log.WithContext(r.Context()).Error("list reports failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list reports failed")
		return
	}
	if reports == nil {
		reports = []store.Report{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

func (h *handlers) getReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rep, err := h.svc.Report(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		h.log.WithContext(r.Context()).Error("get report failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "get report failed")
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
