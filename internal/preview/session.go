// Package preview keeps the state of one live preview per editor: the
// current source, the selected platform profile, the compile generation and
// the loading state reported by the sandbox.
package preview

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/sandbox"
	"github.com/livetemplate/mint/internal/transform"
)

// State is the loading state of a session.
type State string

const (
	Idle      State = "idle"
	Compiling State = "compiling"
	Ready     State = "ready"
	Failed    State = "error"
)

// ErrorKind separates errors found before execution from errors raised by
// the running code.
type ErrorKind string

const (
	TransformError ErrorKind = "transform"
	RuntimeError   ErrorKind = "runtime"
)

// Error is the last error shown to the user.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Line    int       `json:"line,omitempty"`
	Column  int       `json:"column,omitempty"`
	Stack   string    `json:"stack,omitempty"`
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	State      State            `json:"loadingState"`
	Error      *Error           `json:"lastError,omitempty"`
	Generation uint64           `json:"generation"`
	Platform   platform.Profile `json:"platform"`
}

// Observer is notified of new documents and state changes. Calls for one
// session never overlap.
type Observer interface {
	DocumentReady(doc *sandbox.Document)
	StateChanged(s Snapshot)
}

// DefaultDebounce is the quiet interval after the last edit before the
// source is recompiled.
const DefaultDebounce = 300 * time.Millisecond

// Options configures sessions.
type Options struct {
	Debounce    time.Duration
	IdleTimeout time.Duration
	Debug       bool
}

// Session is one live preview.
type Session struct {
	id      string
	builder *sandbox.Builder
	debug   bool

	// compileMu serialises compiles and their notifications so observers
	// see documents in generation order.
	compileMu sync.Mutex
	debounced func(func())

	mu         sync.Mutex
	observer   Observer
	source     string
	profile    platform.Profile
	state      State
	lastErr    *Error
	generation uint64
	doc        *sandbox.Document
	pending    bool
	closed     bool
	lastActive time.Time
}

// NewSession returns an idle session. obs may be nil.
func NewSession(id string, b *sandbox.Builder, obs Observer, opts Options) *Session {
	d := opts.Debounce
	if d <= 0 {
		d = DefaultDebounce
	}
	return &Session{
		id:         id,
		builder:    b,
		debug:      opts.Debug,
		debounced:  debounce.New(d),
		observer:   obs,
		profile:    platform.Default,
		state:      Idle,
		lastActive: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetObserver replaces the observer; nil detaches the session.
func (s *Session) SetObserver(obs Observer) {
	s.mu.Lock()
	s.observer = obs
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// Attached reports whether an observer is set.
func (s *Session) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observer != nil
}

// Edit replaces the source and schedules a recompile once edits pause.
func (s *Session) Edit(source string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.source = source
	s.pending = true
	s.lastActive = time.Now()
	changed := s.setState(Compiling, nil)
	snap, obs := s.snapshot(), s.observer
	s.mu.Unlock()

	if changed && obs != nil {
		obs.StateChanged(snap)
	}
	s.debounced(s.flush)
}

// Load replaces the source and compiles it immediately.
func (s *Session) Load(source string) {
	s.mu.Lock()
	s.source = source
	s.pending = true
	s.mu.Unlock()
	s.compile()
}

// SetProfile switches the platform profile and recompiles immediately.
func (s *Session) SetProfile(p platform.Profile) error {
	if !p.Valid() {
		return errors.New("unknown platform " + string(p))
	}
	s.mu.Lock()
	s.profile = p
	s.pending = true
	s.mu.Unlock()
	s.compile()
	return nil
}

// Recompile rebuilds the current source immediately.
func (s *Session) Recompile() {
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
	s.compile()
}

// flush runs when the debounce interval expires.
func (s *Session) flush() {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if pending {
		s.compile()
	}
}

func (s *Session) compile() {
	s.compileMu.Lock()
	defer s.compileMu.Unlock()

	s.mu.Lock()
	if s.closed || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.generation++
	gen, src, p := s.generation, s.source, s.profile
	s.setState(Compiling, nil)
	s.mu.Unlock()

	start := time.Now()
	unit, err := transform.Transform(src)
	var doc *sandbox.Document
	if err == nil {
		doc, err = s.builder.Build(gen, unit, p)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.setState(Failed, transformError(err))
		snap, obs := s.snapshot(), s.observer
		s.mu.Unlock()
		if s.debug {
			log.Printf("[Preview] %s generation %d failed: %v", s.id, gen, err)
		}
		if obs != nil {
			obs.StateChanged(snap)
		}
		return
	}
	s.doc = doc
	snap, obs := s.snapshot(), s.observer
	s.mu.Unlock()

	if s.debug {
		log.Printf("[Preview] %s generation %d built in %v (entry %s, %s)", s.id, gen, time.Since(start), doc.Entry, doc.Profile)
	}
	if obs != nil {
		obs.DocumentReady(doc)
		obs.StateChanged(snap)
	}
}

func transformError(err error) *Error {
	var terr *transform.Error
	if errors.As(err, &terr) {
		return &Error{Kind: TransformError, Message: terr.Message, Line: terr.Line, Column: terr.Column}
	}
	return &Error{Kind: TransformError, Message: err.Error()}
}

// HandleMessage applies a sandbox message and reports whether it changed
// anything. Messages from superseded generations are ignored, as are
// messages arriving while a newer edit waits to be compiled.
func (s *Session) HandleMessage(m sandbox.Message) bool {
	s.mu.Lock()
	if s.closed || m.Generation != s.generation || s.pending || s.doc == nil || s.doc.Generation != m.Generation {
		s.mu.Unlock()
		if s.debug {
			log.Printf("[Preview] %s ignoring %s for generation %d", s.id, m.Type, m.Generation)
		}
		return false
	}

	changed := false
	switch m.Type {
	case sandbox.TypeReady:
		if s.state == Compiling {
			changed = s.setState(Ready, nil)
		}
	case sandbox.TypeError:
		if s.state == Compiling || s.state == Ready {
			changed = s.setState(Failed, &Error{
				Kind:    RuntimeError,
				Message: m.Message,
				Line:    m.Line,
				Column:  m.Column,
				Stack:   m.Stack,
			})
		}
	}
	snap, obs := s.snapshot(), s.observer
	s.lastActive = time.Now()
	s.mu.Unlock()

	if changed && obs != nil {
		obs.StateChanged(snap)
	}
	return changed
}

// State returns the current snapshot.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Document returns the latest built document, or nil.
func (s *Session) Document() *sandbox.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Source returns the current source text.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Profile returns the selected platform profile.
func (s *Session) Profile() platform.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// LastActive returns the time of the last edit, message or attach.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close stops the session. Pending compiles are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.observer = nil
	s.mu.Unlock()
}

func (s *Session) setState(st State, err *Error) bool {
	changed := s.state != st || s.lastErr != err
	s.state = st
	s.lastErr = err
	return changed
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{State: s.state, Generation: s.generation, Platform: s.profile}
	if s.lastErr != nil {
		e := *s.lastErr
		snap.Error = &e
	}
	return snap
}
