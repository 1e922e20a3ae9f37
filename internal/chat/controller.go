// Package chat implements the conversation controller behind the site's
// floating chat widget.
//
// A Controller owns the widget's visibility, the transcript, the draft input
// and the busy flag, and it mediates every call to the completion service.
// One Controller belongs to exactly one rendered widget.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/devmud/devmud-site/internal/domain"
	"github.com/google/uuid"
)

const recordTimeout = 5 * time.Second

// CredentialSource resolves the completion service credential from process
// configuration at the moment a turn is submitted.
type CredentialSource interface {
	// Credential returns the credential and whether it is set.
	Credential() (string, bool)
	// Name identifies the configuration entry, e.g. the environment variable.
	Name() string
}

// StaticCredential is a fixed credential. An empty value counts as missing.
type StaticCredential struct {
	Value    string
	Variable string
}

// Credential implements CredentialSource.
func (s StaticCredential) Credential() (string, bool) {
	return s.Value, s.Value != ""
}

// Name implements CredentialSource.
func (s StaticCredential) Name() string {
	if s.Variable == "" {
		return "GROQ_API_KEY"
	}
	return s.Variable
}

// Completer sends one prompt to the completion service and returns the
// generated text. Errors should be *TransportError or ErrMalformedResponse.
type Completer interface {
	Complete(ctx context.Context, apiKey string, prompt Prompt) (string, error)
}

// TurnRecorder receives an audit record after every resolved turn.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, turn domain.Turn) error
}

// Snapshot is an immutable view of controller state. Version increases with
// every published change.
type Snapshot struct {
	Version  uint64           `json:"version"`
	IsOpen   bool             `json:"is_open"`
	IsBusy   bool             `json:"is_busy"`
	Draft    string           `json:"draft"`
	Messages []domain.Message `json:"messages"`
}

// ControllerConfig wires a Controller to its collaborators. Credentials and
// Completer are required.
type ControllerConfig struct {
	Credentials CredentialSource
	Completer   Completer
	Intents     Intents
	Recorder    TurnRecorder
	// OnChange is called after every state change, outside the controller lock.
	OnChange  func(Snapshot)
	Logger    *slog.Logger
	Clock     func() time.Time
	VisitorID string
	SessionID string
}

// Controller is the conversation state machine of one chat widget.
type Controller struct {
	mu         sync.Mutex
	open       bool
	busy       bool
	draft      string
	transcript Transcript
	version    uint64

	creds     CredentialSource
	completer Completer
	intents   Intents
	recorder  TurnRecorder
	onChange  func(Snapshot)
	now       func() time.Time
	logger    *slog.Logger
	visitorID string
	sessionID string
}

type pendingTurn struct {
	text    string
	apiKey  string
	started time.Time
}

// NewController creates a closed widget with an empty transcript.
func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		creds:     cfg.Credentials,
		completer: cfg.Completer,
		intents:   cfg.Intents,
		recorder:  cfg.Recorder,
		onChange:  cfg.OnChange,
		now:       cfg.Clock,
		logger:    cfg.Logger,
		visitorID: cfg.VisitorID,
		sessionID: cfg.SessionID,
	}
	if c.intents == nil {
		c.intents = noopIntents{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	return c
}

// Open shows the widget. The first open of a session seeds the transcript
// with the greeting; later opens only toggle visibility.
func (c *Controller) Open() {
	c.update(func() bool {
		changed := !c.open
		c.open = true
		if c.transcript.Len() == 0 {
			c.transcript.Append(c.message(domain.RoleAssistant, Greeting))
			changed = true
		}
		return changed
	})
}

// Close hides the widget. Transcript and draft are kept.
func (c *Controller) Close() {
	c.update(func() bool {
		if !c.open {
			return false
		}
		c.open = false
		return true
	})
}

// UpdateDraft replaces the input buffer. Any text is accepted, including "".
func (c *Controller) UpdateDraft(text string) {
	c.update(func() bool {
		if c.draft == text {
			return false
		}
		c.draft = text
		return true
	})
}

// Submit commits the draft as a user message and blocks until the turn
// resolves. It returns false, changing nothing, when the trimmed draft is
// empty or a request is already in flight.
func (c *Controller) Submit(ctx context.Context) bool {
	turn, ok := c.commit(ctx)
	if !ok {
		return false
	}
	if turn != nil {
		c.resolve(ctx, turn)
	}
	return true
}

// SubmitAsync commits the draft like Submit but runs the request in its own
// goroutine. The returned channel is closed once the turn has resolved. The
// busy check and the commit happen before SubmitAsync returns.
func (c *Controller) SubmitAsync(ctx context.Context) (<-chan struct{}, bool) {
	turn, ok := c.commit(ctx)
	if !ok {
		return nil, false
	}
	done := make(chan struct{})
	if turn == nil {
		close(done)
		return done, true
	}
	go func() {
		defer close(done)
		c.resolve(ctx, turn)
	}()
	return done, true
}

// commit performs the synchronous half of a submission. A nil turn with ok
// set means the turn already resolved locally (missing credential).
func (c *Controller) commit(ctx context.Context) (*pendingTurn, bool) {
	var (
		turn     *pendingTurn
		accepted bool
		text     string
		cfgErr   *ConfigurationError
	)
	c.update(func() bool {
		text = strings.TrimSpace(c.draft)
		if text == "" || c.busy {
			return false
		}
		accepted = true
		c.transcript.Append(c.message(domain.RoleUser, text))
		c.draft = ""
		c.busy = true

		key, ok := c.creds.Credential()
		if !ok || key == "" {
			cfgErr = &ConfigurationError{Variable: c.creds.Name()}
			c.transcript.Append(c.message(domain.RoleAssistant, configurationErrorReply(cfgErr.Variable)))
			c.busy = false
			return true
		}
		turn = &pendingTurn{text: text, apiKey: key, started: c.now()}
		return true
	})
	if !accepted {
		return nil, false
	}
	if cfgErr != nil {
		c.logger.Warn("Chat turn skipped, completion credential missing",
			"session_id", c.sessionID,
			"variable", cfgErr.Variable,
		)
		c.record(ctx, text, configurationErrorReply(cfgErr.Variable), classify(cfgErr), 0)
		return nil, true
	}
	return turn, true
}

// resolve issues the single outbound request for a committed turn and
// appends exactly one assistant entry, whatever the outcome.
func (c *Controller) resolve(ctx context.Context, turn *pendingTurn) {
	reply, err := c.completer.Complete(ctx, turn.apiKey, newPrompt(turn.text))
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrMalformedResponse
	}
	outcome := classify(err)
	if err != nil {
		c.logger.Error("Completion request failed",
			"session_id", c.sessionID,
			"outcome", outcome,
			"error", err,
		)
		reply = failureReply(err.Error())
	}

	c.update(func() bool {
		c.transcript.Append(c.message(domain.RoleAssistant, reply))
		c.busy = false
		return true
	})

	latency := c.now().Sub(turn.started)
	c.logger.Info("Chat turn resolved",
		"session_id", c.sessionID,
		"outcome", outcome,
		"latency_ms", latency.Milliseconds(),
	)
	c.record(ctx, turn.text, reply, outcome, latency)
}

// QuickAction dispatches a quick-action button. Navigation closes the
// widget; dialing leaves it open. The transcript is never touched.
func (c *Controller) QuickAction(a QuickAction) error {
	intent, ok := Destination(a)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuickAction, a)
	}
	dispatch(c.intents, intent)
	if intent.ClosesWidget() {
		c.Close()
	}
	return nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Messages returns the transcript in insertion order.
func (c *Controller) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Messages()
}

// IsOpen reports whether the widget is visible.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// IsBusy reports whether a request is in flight.
func (c *Controller) IsBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Draft returns the uncommitted input.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SessionID identifies this widget session in logs and audit records.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// update runs fn under the lock and publishes a snapshot if fn reports a change.
func (c *Controller) update(fn func() bool) {
	c.mu.Lock()
	changed := fn()
	var snap Snapshot
	if changed {
		c.version++
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()

	if changed && c.onChange != nil {
		c.onChange(snap)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Version:  c.version,
		IsOpen:   c.open,
		IsBusy:   c.busy,
		Draft:    c.draft,
		Messages: c.transcript.Messages(),
	}
}

func (c *Controller) message(role domain.Role, content string) domain.Message {
	return domain.Message{Role: role, Content: content, Timestamp: c.now()}
}

func (c *Controller) record(ctx context.Context, question, reply string, outcome domain.Outcome, latency time.Duration) {
	if c.recorder == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	err := c.recorder.RecordTurn(recordCtx, domain.Turn{
		ID:          uuid.NewString(),
		VisitorID:   c.visitorID,
		SessionID:   c.sessionID,
		UserMessage: question,
		Reply:       reply,
		Outcome:     outcome,
		Latency:     latency,
		CreatedAt:   c.now(),
	})
	if err != nil {
		c.logger.Warn("Failed to record chat turn", "session_id", c.sessionID, "error", err)
	}
}
