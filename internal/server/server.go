// Package server serves the editor, its websocket protocol and the project
// API.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/livetemplate/mint/internal/assets"
	"github.com/livetemplate/mint/internal/config"
	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/preview"
	"github.com/livetemplate/mint/internal/sandbox"
	"github.com/livetemplate/mint/internal/snack"
	"github.com/livetemplate/mint/internal/store"
)

// Options carries the collaborators of a Server. Store and Snack may be nil,
// which disables the project API and snack publishing respectively.
type Options struct {
	Builder *sandbox.Builder
	Store   *store.Store
	Snack   *snack.Client
}

// Server is the mint development server.
type Server struct {
	rootDir string
	config  *config.Config
	debug   bool

	builder *sandbox.Builder
	manager *preview.Manager
	store   *store.Store
	snack   *snack.Client

	editor  *template.Template
	docs    []byte
	handler http.Handler

	connections map[*wsClient]bool // Track connected editors
	connMu      sync.RWMutex

	watcher   *Watcher
	savedMu   sync.Mutex
	lastSaved string // Entry contents last written to disk by the API

	stop        context.CancelFunc
	limiterDone <-chan struct{}
}

// New creates a server for the project in rootDir.
func New(rootDir string, cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Builder == nil {
		b, err := sandbox.NewBuilder(sandbox.Options{
			ReactURL:    cfg.Sandbox.ReactURL,
			ReactDOMURL: cfg.Sandbox.ReactDOMURL,
			BabelURL:    cfg.Sandbox.BabelURL,
		})
		if err != nil {
			return nil, err
		}
		opts.Builder = b
	}

	page, err := assets.GetEditorHTML()
	if err != nil {
		return nil, fmt.Errorf("load editor page: %w", err)
	}
	editor, err := template.New("editor").Parse(string(page))
	if err != nil {
		return nil, fmt.Errorf("parse editor page: %w", err)
	}

	s := &Server{
		rootDir: rootDir,
		config:  cfg,
		debug:   cfg.Server.Debug,
		builder: opts.Builder,
		manager: preview.NewManager(opts.Builder, preview.Options{
			Debounce:    cfg.Editor.GetDebounce(),
			IdleTimeout: cfg.Editor.GetIdleTimeout(),
			Debug:       cfg.Server.Debug,
		}),
		store:       opts.Store,
		snack:       opts.Snack,
		editor:      editor,
		connections: make(map[*wsClient]bool),
	}

	if cfg.Features.Docs {
		if s.docs, err = renderDocs(cfg.Title); err != nil {
			s.manager.Close()
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.handler = s.routes(ctx)
	return s, nil
}

func (s *Server) routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.serveEditor)
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServerFS(assets.ClientFS())))
	mux.HandleFunc("GET /ws", s.serveWebSocket)
	mux.HandleFunc("GET /preview/{session}", s.servePreview)
	if s.docs != nil {
		mux.HandleFunc("GET /docs", s.serveDocs)
	}

	api := s.config.API
	cors := CORSMiddleware(api.GetCORSOrigins())
	limit, done := RateLimitMiddleware(ctx, api.GetRateLimitRPS(), api.GetRateLimitBurst(), api.GetMaxTrackedIPs())
	s.limiterDone = done

	mux.Handle("POST /api/snack", cors(limit(http.HandlerFunc(s.handleSnack))))
	mux.Handle("GET /api/files", cors(http.HandlerFunc(s.handleListFiles)))
	mux.Handle("GET /api/files/{name...}", cors(http.HandlerFunc(s.handleGetFile)))
	mux.Handle("PUT /api/files/{name...}", cors(limit(http.HandlerFunc(s.handlePutFile))))
	mux.Handle("OPTIONS /api/", cors(http.NotFoundHandler()))

	return SecurityHeadersMiddleware(s.scriptSources())(compressionMiddleware(mux))
}

// scriptSources are the origins preview documents load libraries from.
// Sandboxed srcdoc frames inherit the editor page's policy.
func (s *Server) scriptSources() []string {
	seen := make(map[string]bool)
	var out []string
	opts := s.builder.Options()
	for _, raw := range []string{opts.ReactURL, opts.ReactDOMURL, opts.BabelURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		origin := u.Scheme + "://" + u.Host
		if !seen[origin] {
			seen[origin] = true
			out = append(out, origin)
		}
	}
	return out
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Manager returns the preview session manager.
func (s *Server) Manager() *preview.Manager {
	return s.manager
}

// Close stops background work and ends every session.
func (s *Server) Close() error {
	err := s.StopWatch()
	s.stop()
	<-s.limiterDone
	s.manager.Close()
	return err
}

type editorData struct {
	Title     string
	Entry     string
	Platforms []platform.Profile
	Sandbox   string
	Snack     bool
	Docs      bool
}

func (s *Server) serveEditor(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := s.editor.Execute(&buf, editorData{
		Title:     s.config.Title,
		Entry:     s.entryName(),
		Platforms: platform.All(),
		Sandbox:   sandbox.IframeSandbox,
		Snack:     s.snack != nil,
		Docs:      s.docs != nil,
	})
	if err != nil {
		log.Printf("[Server] Failed to render editor: %v", err)
		http.Error(w, "Failed to render editor", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

// servePreview serves the latest document of a session so it can be
// inspected outside the editor.
func (s *Server) servePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.manager.Get(r.PathValue("session"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	doc := sess.Document()
	if doc == nil {
		http.Error(w, "No preview built yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(doc.HTML))
}

func (s *Server) serveDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.docs)
}

func (s *Server) entryName() string {
	if s.config.Editor.Entry != "" {
		return s.config.Editor.Entry
	}
	return store.EntryFile
}

func (s *Server) project() string {
	if s.config.Store.Project != "" {
		return s.config.Store.Project
	}
	return "default"
}

// entrySource returns the text new sessions start from: the entry file on
// disk, then the stored entry file, then the starter app.
func (s *Server) entrySource(ctx context.Context) (string, error) {
	name := s.entryName()
	if data, err := os.ReadFile(filepath.Join(s.rootDir, filepath.FromSlash(name))); err == nil {
		return string(data), nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", name, err)
	}

	if s.store != nil {
		f, err := s.store.Get(ctx, s.project(), name)
		if err == nil {
			return f.Contents, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
	}

	files, err := store.StarterFiles()
	if err != nil {
		return "", err
	}
	return files[store.EntryFile], nil
}

// RegisterConnection adds an editor connection to the tracked connections.
func (s *Server) RegisterConnection(c *wsClient) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.connections[c] = true
	if s.debug {
		log.Printf("[Server] WebSocket connection registered: %d active connections", len(s.connections))
	}
}

// UnregisterConnection removes an editor connection from tracked connections.
func (s *Server) UnregisterConnection(c *wsClient) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.connections, c)
	if s.debug {
		log.Printf("[Server] WebSocket connection unregistered: %d active connections", len(s.connections))
	}
}

// ActiveConnections returns the number of connected editors.
func (s *Server) ActiveConnections() int {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return len(s.connections)
}

// BroadcastSource pushes new entry text to every session and editor.
func (s *Server) BroadcastSource(source string) {
	n := s.manager.Broadcast(source)

	s.connMu.RLock()
	clients := make([]*wsClient, 0, len(s.connections))
	for c := range s.connections {
		clients = append(clients, c)
	}
	s.connMu.RUnlock()

	log.Printf("[Server] Broadcasting %s to %d sessions", s.entryName(), n)
	for _, c := range clients {
		if err := c.send(serverMessage{Type: msgSource, Source: source}); err != nil {
			log.Printf("[Server] Failed to send source to connection: %v", err)
		}
	}
}

// EnableWatch pushes on-disk edits of the entry file to open editors.
func (s *Server) EnableWatch() error {
	entry := filepath.Clean(filepath.FromSlash(s.entryName()))
	watcher, err := NewWatcher(s.rootDir, func(rel string) bool {
		return rel == entry
	}, func(rel string) error {
		data, err := os.ReadFile(filepath.Join(s.rootDir, rel))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}
		source := string(data)

		s.savedMu.Lock()
		echo := source == s.lastSaved
		s.savedMu.Unlock()
		if echo {
			return nil
		}

		if s.store != nil {
			if err := s.store.Put(context.Background(), s.project(), s.entryName(), source); err != nil {
				return err
			}
		}
		s.BroadcastSource(source)
		return nil
	}, s.debug)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	s.watcher = watcher
	s.watcher.Start()

	log.Printf("[Watch] Watching %s", filepath.Join(s.rootDir, entry))
	return nil
}

// StopWatch stops the file watcher if it's running.
func (s *Server) StopWatch() error {
	if s.watcher != nil {
		w := s.watcher
		s.watcher = nil
		return w.Stop()
	}
	return nil
}
