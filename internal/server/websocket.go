package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/preview"
	"github.com/livetemplate/mint/internal/sandbox"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

const (
	maxMessageSize = 1 << 20
	writeWait      = 10 * time.Second
)

// Editor to server actions.
const (
	actionEdit      = "edit"
	actionPlatform  = "platform"
	actionRecompile = "recompile"
	actionSandbox   = "sandbox"
)

// Server to editor message types.
const (
	msgHello    = "hello"
	msgDocument = "document"
	msgState    = "state"
	msgSource   = "source"
	msgError    = "error"
)

// clientMessage is what the editor sends over the socket.
type clientMessage struct {
	Action   string          `json:"action"`
	Source   string          `json:"source,omitempty"`
	Platform string          `json:"platform,omitempty"`
	Message  json.RawMessage `json:"message,omitempty"` // Relayed sandbox message
}

// serverMessage is what the server pushes to the editor.
type serverMessage struct {
	Type       string               `json:"type"`
	Session    string               `json:"session,omitempty"`
	Generation uint64               `json:"generation,omitempty"`
	Entry      string               `json:"entry,omitempty"`
	Platform   platform.Profile     `json:"platform,omitempty"`
	HTML       string               `json:"html,omitempty"`
	State      *preview.Snapshot    `json:"state,omitempty"`
	Source     string               `json:"source,omitempty"`
	Frames     map[string]frameInfo `json:"frames,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// frameInfo is the device frame the editor draws around the preview.
type frameInfo struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Radius       string `json:"radius"`
	ScreenRadius string `json:"screenRadius"`
	Bezel        string `json:"bezel"`
	Notch        bool   `json:"notch"`
}

func frames() map[string]frameInfo {
	out := make(map[string]frameInfo)
	for _, p := range platform.All() {
		f := p.Cosmetics().Frame
		out[p.String()] = frameInfo{
			Width:        f.Width,
			Height:       f.Height,
			Radius:       f.Radius,
			ScreenRadius: f.ScreenRadius,
			Bezel:        f.Bezel,
			Notch:        f.Notch,
		}
	}
	return out
}

// wsClient is one connected editor. It observes its preview session and
// forwards documents and state changes over the socket.
type wsClient struct {
	conn  *websocket.Conn
	mu    sync.Mutex // Serializes writes
	debug bool
}

func (c *wsClient) send(msg serverMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// DocumentReady implements preview.Observer.
func (c *wsClient) DocumentReady(doc *sandbox.Document) {
	err := c.send(serverMessage{
		Type:       msgDocument,
		Generation: doc.Generation,
		Entry:      doc.Entry,
		Platform:   doc.Profile,
		HTML:       doc.HTML,
	})
	if err != nil && c.debug {
		log.Printf("[WS] Failed to send document %d: %v", doc.Generation, err)
	}
}

// StateChanged implements preview.Observer.
func (c *wsClient) StateChanged(snap preview.Snapshot) {
	if err := c.send(serverMessage{Type: msgState, State: &snap}); err != nil && c.debug {
		log.Printf("[WS] Failed to send state: %v", err)
	}
}

// serveWebSocket attaches an editor to a preview session. A known
// ?session= id resumes that session; otherwise a new one is created from
// the entry source.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	client := &wsClient{conn: conn, debug: s.debug}

	sess, resumed := s.manager.Get(r.URL.Query().Get("session"))
	if !resumed {
		p := s.config.Editor.GetPlatform()
		if name := r.URL.Query().Get("platform"); name != "" {
			if parsed, err := platform.Parse(name); err == nil {
				p = parsed
			}
		}
		source, err := s.entrySource(r.Context())
		if err != nil {
			log.Printf("[WS] Failed to load entry source: %v", err)
			client.send(serverMessage{Type: msgError, Error: "failed to load " + s.entryName()})
			return
		}
		sess = s.manager.Create(nil, p, source)
	}

	snap := sess.State()
	if err := client.send(serverMessage{
		Type:     msgHello,
		Session:  sess.ID(),
		Entry:    s.entryName(),
		Platform: sess.Profile(),
		Source:   sess.Source(),
		State:    &snap,
		Frames:   frames(),
	}); err != nil {
		return
	}

	sess.SetObserver(client)
	s.RegisterConnection(client)
	defer func() {
		sess.SetObserver(nil)
		s.UnregisterConnection(client)
	}()

	if s.debug {
		log.Printf("[WS] Editor attached to session %s (resumed=%v)", sess.ID(), resumed)
	}

	if doc := sess.Document(); doc != nil {
		client.DocumentReady(doc)
	}
	client.StateChanged(sess.State())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error: %v", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.send(serverMessage{Type: msgError, Error: "malformed message"})
			continue
		}

		if err := s.handleClientMessage(sess, msg); err != nil {
			if s.debug {
				log.Printf("[WS] Session %s: %v", sess.ID(), err)
			}
			client.send(serverMessage{Type: msgError, Error: err.Error()})
		}
	}
}

func (s *Server) handleClientMessage(sess *preview.Session, msg clientMessage) error {
	switch msg.Action {
	case actionEdit:
		sess.Edit(msg.Source)
	case actionPlatform:
		p, err := platform.Parse(msg.Platform)
		if err != nil {
			return err
		}
		return sess.SetProfile(p)
	case actionRecompile:
		sess.Recompile()
	case actionSandbox:
		m, err := sandbox.DecodeMessage(msg.Message)
		if err != nil {
			return err
		}
		sess.HandleMessage(m)
	default:
		return &unknownActionError{Action: msg.Action}
	}
	return nil
}

type unknownActionError struct {
	Action string
}

func (e *unknownActionError) Error() string {
	return "unknown action: " + e.Action
}
