package server

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports writes to matching files under a project directory.
type Watcher struct {
	watcher  *fsnotify.Watcher
	rootDir  string
	match    func(rel string) bool
	onChange func(rel string) error
	done     chan struct{}
	debug    bool
}

// NewWatcher creates a watcher for rootDir. match receives paths relative
// to rootDir; onChange runs for every write or create of a matching path.
func NewWatcher(rootDir string, match func(string) bool, onChange func(string) error, debug bool) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		rootDir:  rootDir,
		match:    match,
		onChange: onChange,
		done:     make(chan struct{}),
		debug:    debug,
	}

	if err := w.addDirectoryRecursive(rootDir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// addDirectoryRecursive adds a directory and all its subdirectories to the watcher.
func (w *Watcher) addDirectoryRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		// Skip hidden dirs like .git and .mint, and installed packages.
		name := info.Name()
		if path != dir && (strings.HasPrefix(name, ".") || name == "node_modules") {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			return err
		}
		if w.debug {
			log.Printf("[Watch] Added directory: %s", path)
		}
		return nil
	})
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}

				relPath, err := filepath.Rel(w.rootDir, event.Name)
				if err != nil {
					relPath = event.Name
				}
				if !w.match(relPath) {
					continue
				}

				if w.debug {
					log.Printf("[Watch] File changed: %s", relPath)
				}
				if err := w.onChange(relPath); err != nil {
					log.Printf("[Watch] Reload failed for %s: %v", relPath, err)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Watch] Error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
