package api

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/text2mind/internal/parser"
)

// handleConvert converts the request body synchronously and streams the
// archive back as an attachment.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	tree, err := parser.Parse(up.filename, bytes.NewReader(up.data), parser.Options{
		PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		code := http.StatusUnprocessableEntity
		if errors.Is(err, parser.ErrUnsupportedFormat) {
			code = http.StatusBadRequest
		}
		jsonError(w, err.Error(), code)
		return
	}
	if up.title != "" {
		tree.Title = up.title
	}

	dir, err := os.MkdirTemp(s.cfg.WorkDir, "text2mind-http-*")
	if err != nil {
		s.log.Error("create response dir", "error", err)
		jsonError(w, "failed to prepare output", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	stats := s.orchestrator.Stats()
	start := time.Now()
	res, err := s.orchestrator.Converter().Convert(tree, filepath.Join(dir, "mindmap.xmind"))
	if err != nil {
		stats.RecordFailure(time.Since(start))
		s.log.Error("conversion failed", "filename", up.filename, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats.Record(time.Since(start), res.Tier)

	f, err := os.Open(res.Path)
	if err != nil {
		jsonError(w, "failed to read output", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	setArchiveHeaders(w, downloadName(up.filename), res.Tier.String(), res.Nodes)
	w.Header().Set("X-Text2mind-Strategy", res.Strategy.String())
	http.ServeContent(w, r, "", time.Now(), f)
}
