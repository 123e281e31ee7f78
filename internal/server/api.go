package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/snack"
	"github.com/livetemplate/mint/internal/store"
)

// maxRequestBodySize limits the size of incoming request bodies (1MB)
const maxRequestBodySize = 1 << 20

type snackRequest struct {
	Code     string `json:"code"`
	FileName string `json:"fileName"`
	Platform string `json:"platform"`
}

type snackResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type putFileRequest struct {
	Contents *string `json:"contents"`
}

// handleSnack publishes the posted code as an Expo snack.
func (s *Server) handleSnack(w http.ResponseWriter, r *http.Request) {
	if s.snack == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "snack publishing is disabled")
		return
	}

	var req snackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeJSONError(w, http.StatusBadRequest, "code is required")
		return
	}

	p := platform.Default
	if req.Platform != "" {
		parsed, err := platform.Parse(req.Platform)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		p = parsed
	}

	sn, err := s.snack.Create(r.Context(), req.Code, req.FileName)
	if err != nil {
		log.Printf("[API] Snack creation failed: %v", err)
		var (
			circuit  *snack.CircuitOpenError
			upstream *snack.UpstreamError
		)
		switch {
		case errors.As(err, &circuit):
			writeJSONError(w, http.StatusServiceUnavailable, snack.UserMessage(err))
		case errors.As(err, &upstream):
			writeJSONError(w, http.StatusBadGateway, snack.UserMessage(err))
		default:
			writeJSONError(w, http.StatusInternalServerError, snack.UserMessage(err))
		}
		return
	}

	writeJSON(w, http.StatusOK, snackResponse{
		ID: sn.ID,
		URL: snack.EmbedURL(sn.ID, snack.EmbedOptions{
			Platform: p.String(),
			Preview:  snack.Bool(true),
			Theme:    "dark",
		}),
	})
}

// handleListFiles lists the project files without their contents.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	files, err := s.store.List(r.Context(), s.project())
	if err != nil {
		log.Printf("[API] List failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	if files == nil {
		files = []store.File{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	name := r.PathValue("name")
	if err := store.ValidName(name); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := s.store.Get(r.Context(), s.project(), name)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "file not found: "+name)
		return
	}
	if err != nil {
		log.Printf("[API] Get %s failed: %v", name, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// handlePutFile stores a file. Saving the entry file also rewrites it on
// disk when the project has one there.
func (s *Server) handlePutFile(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	name := r.PathValue("name")
	if err := store.ValidName(name); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req putFileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Contents == nil {
		writeJSONError(w, http.StatusBadRequest, "contents is required")
		return
	}

	if err := s.store.Put(r.Context(), s.project(), name, *req.Contents); err != nil {
		log.Printf("[API] Put %s failed: %v", name, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save file")
		return
	}

	if name == s.entryName() {
		if err := s.writeEntry(*req.Contents); err != nil {
			log.Printf("[API] Failed to write %s: %v", name, err)
			writeJSONError(w, http.StatusInternalServerError, "failed to write file")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeEntry mirrors a saved entry file to disk if it exists there. The
// watcher ignores the resulting event.
func (s *Server) writeEntry(contents string) error {
	path := filepath.Join(s.rootDir, filepath.FromSlash(s.entryName()))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	s.savedMu.Lock()
	s.lastSaved = contents
	s.savedMu.Unlock()
	return os.WriteFile(path, []byte(contents), 0644)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "project storage is disabled")
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeJSONError(w, http.StatusBadRequest, "request body is empty")
		default:
			writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		}
		return false
	}
	return true
}
