package widget

import (
	"context"
	"encoding/json"
	"html"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/devmud/devmud-site/internal/chat"
	"github.com/devmud/devmud-site/internal/domain"
	"github.com/devmud/devmud-site/internal/identity"
	"github.com/devmud/devmud-site/internal/markup"
)

const (
	defaultReadLimit = 32 << 10 // 32KB per client event
	writeTimeout     = 10 * time.Second
)

// Config wires the handler to the completion stack.
type Config struct {
	Credentials chat.CredentialSource
	Completer   chat.Completer
	Recorder    chat.TurnRecorder
	Registry    *Registry
	// AllowedOrigins lists browser origins that may open the widget. Empty or
	// "*" allows any origin, matching the CORS middleware.
	AllowedOrigins []string
	IsDev          bool
	Logger         *slog.Logger
}

// Handler upgrades widget connections and runs one controller per connection.
type Handler struct {
	creds          chat.CredentialSource
	completer      chat.Completer
	recorder       chat.TurnRecorder
	registry       *Registry
	allowedOrigins []string
	isDev          bool
	logger         *slog.Logger
}

// NewHandler creates a widget handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		creds:          cfg.Credentials,
		completer:      cfg.Completer,
		recorder:       cfg.Recorder,
		registry:       cfg.Registry,
		allowedOrigins: cfg.AllowedOrigins,
		isDev:          cfg.IsDev,
		logger:         cfg.Logger,
	}
	if h.registry == nil {
		h.registry = NewRegistry()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Registry returns the live connection registry.
func (h *Handler) Registry() *Registry {
	return h.registry
}

// clientEvent is a message from the widget.
type clientEvent struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Action string `json:"action,omitempty"`
}

// serverEvent is a message to the widget.
type serverEvent struct {
	Type   string       `json:"type"`
	State  *stateView   `json:"state,omitempty"`
	Intent *chat.Intent `json:"intent,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type stateView struct {
	Version  uint64        `json:"version"`
	IsOpen   bool          `json:"is_open"`
	IsBusy   bool          `json:"is_busy"`
	Draft    string        `json:"draft"`
	Messages []messageView `json:"messages"`
}

type messageView struct {
	Role      domain.Role `json:"role"`
	Content   string      `json:"content"`
	HTML      string      `json:"html"`
	Time      string      `json:"time"`
	Timestamp time.Time   `json:"timestamp"`
}

// ServeHTTP implements http.Handler for the widget websocket.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	visitorID := identity.VisitorIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	logger := h.logger.With("visitor_id", visitorID, "session_id", sessionID)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Error("Failed to accept widget websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			logger.Debug("Failed to close widget websocket", "error", closeErr)
		}
	}()
	ws.SetReadLimit(defaultReadLimit)

	h.registry.Register(visitorID, sessionID, ws)
	defer func() {
		if !h.registry.Unregister(visitorID, sessionID, ws) {
			logger.Debug("Widget session was replaced by a newer connection")
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &session{conn: ws, logger: logger}
	ctrl := chat.NewController(chat.ControllerConfig{
		Credentials: h.creds,
		Completer:   h.completer,
		Intents:     sess,
		Recorder:    h.recorder,
		OnChange:    sess.sendState,
		Logger:      logger,
		VisitorID:   visitorID,
		SessionID:   sessionID,
	})
	sess.sendState(ctrl.Snapshot())

	// A submitted turn runs to completion even if the visitor disconnects;
	// its reply is still audited.
	submitCtx := context.WithoutCancel(r.Context())

	h.readLoop(ctx, ws, ctrl, sess, submitCtx)
	logger.Info("Chat widget session ended", "messages", len(ctrl.Messages()))
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	h.logger.Warn("Widget origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, ctrl *chat.Controller, sess *session, submitCtx context.Context) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				sess.logger.Debug("Widget websocket closed by client")
			} else if ctx.Err() == nil {
				sess.logger.Warn("Widget websocket read error", "error", err)
			}
			return
		}

		var ev clientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			sess.sendError("invalid message")
			continue
		}

		switch ev.Type {
		case "open":
			ctrl.Open()
		case "close":
			ctrl.Close()
		case "draft":
			ctrl.UpdateDraft(ev.Text)
		case "submit":
			if ev.Text != "" {
				ctrl.UpdateDraft(ev.Text)
			}
			if _, ok := ctrl.SubmitAsync(submitCtx); !ok {
				sess.logger.Debug("Widget submit ignored", "busy", ctrl.IsBusy())
			}
		case "quick_action":
			action, err := chat.ParseQuickAction(ev.Action)
			if err != nil {
				sess.sendError(err.Error())
				continue
			}
			if err := ctrl.QuickAction(action); err != nil {
				sess.sendError(err.Error())
			}
		case "ping":
			sess.send(serverEvent{Type: "pong"})
		default:
			sess.sendError("unknown message type")
		}
	}
}

// session is the write side of one widget connection. It also receives the
// controller's quick-action intents.
type session struct {
	conn   *websocket.Conn
	logger *slog.Logger

	mu          sync.Mutex
	lastVersion uint64
	sentState   bool
	rendered    []string
}

var _ chat.Intents = (*session)(nil)

// Navigate implements chat.Intents.
func (s *session) Navigate(route string) {
	s.send(serverEvent{Type: "intent", Intent: &chat.Intent{Kind: chat.IntentNavigate, Target: route}})
}

// Dial implements chat.Intents.
func (s *session) Dial(uri string) {
	s.send(serverEvent{Type: "intent", Intent: &chat.Intent{Kind: chat.IntentDial, Target: uri}})
}

// sendState pushes a snapshot unless a newer one already went out.
// Snapshots can arrive out of order from the reader and the submit goroutine.
func (s *session) sendState(snap chat.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sentState && snap.Version <= s.lastVersion {
		return
	}
	view := s.viewLocked(snap)
	if err := s.writeLocked(serverEvent{Type: "state", State: view}); err != nil {
		return
	}
	s.sentState = true
	s.lastVersion = snap.Version
}

// viewLocked renders messages, reusing earlier renders: the transcript only grows.
func (s *session) viewLocked(snap chat.Snapshot) *stateView {
	view := &stateView{
		Version:  snap.Version,
		IsOpen:   snap.IsOpen,
		IsBusy:   snap.IsBusy,
		Draft:    snap.Draft,
		Messages: make([]messageView, len(snap.Messages)),
	}
	for i, m := range snap.Messages {
		if i >= len(s.rendered) {
			s.rendered = append(s.rendered, renderMessage(m))
		}
		view.Messages[i] = messageView{
			Role:      m.Role,
			Content:   m.Content,
			HTML:      s.rendered[i],
			Time:      m.TimeLabel(),
			Timestamp: m.Timestamp,
		}
	}
	return view
}

func renderMessage(m domain.Message) string {
	if m.Role == domain.RoleAssistant {
		return markup.Render(m.Content)
	}
	return "<p>" + html.EscapeString(m.Content) + "</p>"
}

func (s *session) sendError(msg string) {
	s.send(serverEvent{Type: "error", Error: msg})
}

func (s *session) send(ev serverEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.writeLocked(ev)
}

func (s *session) writeLocked(ev serverEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("Failed to marshal widget event", "type", ev.Type, "error", err)
		return err
	}
	writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		s.logger.Debug("Widget websocket write failed", "type", ev.Type, "error", err)
		return err
	}
	return nil
}
