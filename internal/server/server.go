// Package server implements the editor backend: session workspaces with
// image paste and ZIP import/export, markdown-to-paginated-PDF conversion,
// raw HTML printing, and a websocket live preview channel.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	mdpress "github.com/mdpress/mdpress"
	"github.com/mdpress/mdpress/internal/config"
	"github.com/mdpress/mdpress/internal/session"
)

// Server wires the workspace store and the converter pool behind an
// HTTP API.
type Server struct {
	cfg   config.ServerConfig
	store *session.Store
	pool  *mdpress.ConverterPool
	log   *zap.Logger
}

// New creates a Server. Pool converters connect to the browser lazily.
func New(cfg config.ServerConfig, log *zap.Logger, opts ...mdpress.Option) (*Server, error) {
	store, err := session.NewStore(cfg.WorkspacesRoot, cfg.TTL)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:   cfg,
		store: store,
		pool:  mdpress.NewConverterPool(mdpress.ResolvePoolSize(0), opts...),
		log:   log,
	}, nil
}

// Store exposes the session store.
func (s *Server) Store() *session.Store { return s.store }

// Close releases browser resources.
func (s *Server) Close() error {
	return s.pool.Close()
}

// Handler builds the route table. API routes come first; the editor is a
// static client that may be opened straight from disk, so every response
// carries permissive CORS headers (file:// pages send Origin: null).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/document", s.handleGetDocument)
	mux.HandleFunc("PUT /api/sessions/{id}/document", s.handleSaveDocument)
	mux.HandleFunc("POST /api/sessions/{id}/images", s.handlePasteImage)
	mux.HandleFunc("GET /api/sessions/{id}/images/{name}", s.handleServeImage)
	mux.HandleFunc("POST /api/sessions/{id}/import", s.handleImportZip)
	mux.HandleFunc("GET /api/sessions/{id}/export", s.handleExportZip)
	mux.HandleFunc("POST /api/sessions/{id}/pdf", s.handleSessionPDF)
	mux.HandleFunc("POST /api/pdf", s.handlePrintHTML)
	mux.HandleFunc("GET /ws/preview", s.handlePreview)

	return s.withCORS(mux)
}

// withCORS allows the browser editor to call the API even when index.html
// is opened from disk.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunCleanup sweeps expired sessions until the context is done.
func (s *Server) RunCleanup(done <-chan struct{}) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			n, err := s.store.CleanupExpired()
			if err != nil {
				s.log.Warn("session cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ws, err := s.store.Create()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("session created", zap.String("session", ws.ID))
	s.writeJSON(w, http.StatusCreated, map[string]string{"session_id": ws.ID})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	markdown, err := s.store.LoadDocument(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"markdown": markdown})
}

func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Markdown string `json:"markdown"`
	}
	if err := s.readJSON(w, r, &body); err != nil {
		return
	}
	if err := s.store.SaveDocument(r.PathValue("id"), body.Markdown); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePasteImage(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxImageBytes))
	if err != nil {
		http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
		return
	}
	url, err := s.store.SavePastedImage(r.PathValue("id"), data, r.Header.Get("Content-Type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (s *Server) handleServeImage(w http.ResponseWriter, r *http.Request) {
	path, err := s.store.ImagePath(r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleImportZip(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxZipBytes))
	if err != nil {
		http.Error(w, "archive too large", http.StatusRequestEntityTooLarge)
		return
	}

	imported, err := session.ImportZip(data)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	id := r.PathValue("id")
	markdown := session.RewriteImageURLs(imported.Markdown, imported.Images)
	if err := s.store.SaveDocument(id, markdown); err != nil {
		s.fail(w, r, err)
		return
	}
	for base, content := range imported.Images {
		if err := s.store.SaveImageAs(id, base, content); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"markdown": markdown})
}

func (s *Server) handleExportZip(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	markdown, err := s.store.LoadDocument(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	images, err := s.store.Images(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// Only ship images the document still references.
	referenced := session.ReferencedImages(markdown)
	for base := range images {
		if !referenced[base] {
			delete(images, base)
		}
	}

	archive, err := session.BuildExportZip(markdown, images)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="document.zip"`)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(archive)
}

// handleSessionPDF converts the session's document (or the markdown
// supplied in the request) to a paginated PDF.
func (s *Server) handleSessionPDF(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Markdown   string `json:"markdown"`
		Filename   string `json:"filename"`
		FirstPage  int    `json:"first_numbered_page"`
		FirstValue int    `json:"first_number_value"`
	}
	if err := s.readJSON(w, r, &body); err != nil {
		return
	}

	id := r.PathValue("id")
	markdown := body.Markdown
	if markdown != "" {
		if err := s.store.SaveDocument(id, markdown); err != nil {
			s.fail(w, r, err)
			return
		}
	} else {
		var err error
		if markdown, err = s.store.LoadDocument(id); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	conv, err := s.pool.Acquire()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer s.pool.Release(conv)

	result, err := conv.Convert(r.Context(), mdpress.Input{
		Markdown:  markdown,
		Numbering: mdpress.Numbering{FirstPage: body.FirstPage, FirstValue: body.FirstValue},
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writePDF(w, result.PDF, body.Filename)
}

// handlePrintHTML prints caller-supplied HTML as-is. This is the escape
// hatch the editor uses when it has already rendered the pages itself.
func (s *Server) handlePrintHTML(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HTML     string `json:"html"`
		Filename string `json:"filename"`
	}
	if err := s.readJSON(w, r, &body); err != nil {
		return
	}
	if body.HTML == "" {
		http.Error(w, "html is required", http.StatusBadRequest)
		return
	}

	conv, err := s.pool.Acquire()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer s.pool.Release(conv)

	pdf, err := conv.PrintHTML(r.Context(), body.HTML, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writePDF(w, pdf, body.Filename)
}

func writePDF(w http.ResponseWriter, pdf []byte, filename string) {
	if filename == "" {
		filename = "document.pdf"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(pdf)
}

// readJSON decodes the request body, writing a 400 on failure.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps domain errors to HTTP status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, session.ErrImageType),
		errors.Is(err, session.ErrZipInvalid),
		errors.Is(err, session.ErrZipUnsafePath),
		errors.Is(err, session.ErrZipMarkdownCount),
		errors.Is(err, session.ErrZipDuplicateImage),
		errors.Is(err, mdpress.ErrEmptyMarkdown):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrPathTraversal):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.log.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}
