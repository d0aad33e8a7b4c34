package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/text2mind/internal/parser"
	"github.com/dgallion1/text2mind/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// xmindContentType is served for every archive download.
const xmindContentType = "application/vnd.xmind.workbook"

// upload is the document carried by a convert or job request.
type upload struct {
	filename string
	title    string
	data     []byte
}

// httpError is an error with the status it should be reported as.
type httpError struct {
	msg  string
	code int
}

func (e *httpError) Error() string { return e.msg }

// readUpload accepts either a multipart "file" part or a "text" form field.
// A filename is only set for file uploads; pasted text is parsed as an
// indented outline.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	var up upload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return up, &httpError{"invalid multipart form: " + err.Error(), http.StatusBadRequest}
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()
			up.filename = sanitizeFilename(header.Filename)
			if !parser.IsSupportedExtension(up.filename) {
				return up, &httpError{fmt.Sprintf("unsupported file type: %s", filepath.Ext(up.filename)), http.StatusBadRequest}
			}
			data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
			if err != nil {
				return up, &httpError{"failed to read file", http.StatusInternalServerError}
			}
			up.data = data
		} else if !errors.Is(err, http.ErrMissingFile) {
			return up, &httpError{"invalid file: " + err.Error(), http.StatusBadRequest}
		}
	}

	if up.data == nil {
		text := r.FormValue("text")
		if strings.TrimSpace(text) == "" {
			return up, &httpError{"text or file is required", http.StatusBadRequest}
		}
		up.data = []byte(text)
	}
	if int64(len(up.data)) > s.cfg.MaxUploadBytes {
		return up, &httpError{fmt.Sprintf("input exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge}
	}
	up.title = strings.TrimSpace(r.FormValue("title"))
	return up, nil
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	job := pipeline.NewJob(up.filename, up.title, up.data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":       job.ID,
		"status":       pipeline.StatusQueued,
		"poll_url":     fmt.Sprintf("/api/jobs/%s", job.ID),
		"download_url": fmt.Sprintf("/api/jobs/%s/download", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleJobDownload(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if snap.Status != pipeline.StatusCompleted {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}

	f, err := os.Open(job.OutputPath())
	if err != nil {
		s.log.Warn("job output missing", "job_id", snap.ID, "error", err)
		jsonError(w, "output no longer available", http.StatusGone)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		jsonError(w, "failed to read output", http.StatusInternalServerError)
		return
	}

	setArchiveHeaders(w, downloadName(snap.Filename), snap.Progress.Tier, snap.Progress.Nodes)
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// setArchiveHeaders marks the response as an .xmind attachment and reports
// how it was produced.
func setArchiveHeaders(w http.ResponseWriter, name, tier string, nodes int) {
	w.Header().Set("Content-Type", xmindContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("X-Text2mind-Tier", tier)
	w.Header().Set("X-Text2mind-Nodes", fmt.Sprint(nodes))
}

// downloadName swaps the upload's extension for .xmind.
func downloadName(filename string) string {
	if filename == "" {
		return "mindmap.xmind"
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".xmind"
}

func writeUploadError(w http.ResponseWriter, err error) {
	var he *httpError
	if errors.As(err, &he) {
		jsonError(w, he.msg, he.code)
		return
	}
	jsonError(w, err.Error(), http.StatusInternalServerError)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
