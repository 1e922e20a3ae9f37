package chat

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devmud/devmud-site/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu      sync.Mutex
	calls   int
	prompts []Prompt
	keys    []string
	reply   func(call int, p Prompt) (string, error)
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeCompleter) Complete(ctx context.Context, apiKey string, p Prompt) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.prompts = append(f.prompts, p)
	f.keys = append(f.keys, apiKey)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.reply == nil {
		return "ok", nil
	}
	return f.reply(call, p)
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func replying(text string) func(int, Prompt) (string, error) {
	return func(int, Prompt) (string, error) { return text, nil }
}

func failing(err error) func(int, Prompt) (string, error) {
	return func(int, Prompt) (string, error) { return "", err }
}

type recordedIntent struct {
	kind   IntentKind
	target string
}

type fakeIntents struct {
	got []recordedIntent
}

func (f *fakeIntents) Navigate(route string) {
	f.got = append(f.got, recordedIntent{IntentNavigate, route})
}

func (f *fakeIntents) Dial(uri string) {
	f.got = append(f.got, recordedIntent{IntentDial, uri})
}

type fakeRecorder struct {
	mu    sync.Mutex
	turns []domain.Turn
}

func (f *fakeRecorder) RecordTurn(_ context.Context, turn domain.Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn)
	return nil
}

func newTestController(t *testing.T, completer *fakeCompleter, key string) *Controller {
	t.Helper()
	return NewController(ControllerConfig{
		Credentials: StaticCredential{Value: key},
		Completer:   completer,
		SessionID:   "test-session",
	})
}

func TestOpenSeedsGreetingOnce(t *testing.T) {
	c := newTestController(t, &fakeCompleter{}, "key")

	c.Open()
	c.Open()

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleAssistant, msgs[0].Role)
	assert.Equal(t, Greeting, msgs[0].Content)
	assert.True(t, c.IsOpen())
}

func TestCloseKeepsConversation(t *testing.T) {
	c := newTestController(t, &fakeCompleter{}, "key")

	c.Open()
	c.UpdateDraft("half typed")
	c.Close()
	assert.False(t, c.IsOpen())

	c.Open()
	assert.True(t, c.IsOpen())
	assert.Equal(t, "half typed", c.Draft())
	assert.Len(t, c.Messages(), 1, "reopening must not re-seed the greeting")
}

func TestSubmitIgnoresBlankDraft(t *testing.T) {
	for _, draft := range []string{"", "   ", "\t\n"} {
		t.Run(fmt.Sprintf("%q", draft), func(t *testing.T) {
			completer := &fakeCompleter{}
			c := newTestController(t, completer, "key")
			c.UpdateDraft(draft)

			assert.False(t, c.Submit(context.Background()))
			assert.Empty(t, c.Messages())
			assert.False(t, c.IsBusy())
			assert.Equal(t, 0, completer.callCount())
		})
	}
}

func TestSubmitAppendsReply(t *testing.T) {
	completer := &fakeCompleter{reply: replying("Hello")}
	c := newTestController(t, completer, "secret")
	c.Open()
	c.UpdateDraft("  Hi  ")

	require.True(t, c.Submit(context.Background()))

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "Hi", Timestamp: msgs[1].Timestamp}, msgs[1])
	assert.Equal(t, domain.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "Hello", msgs[2].Content)
	assert.False(t, c.IsBusy())
	assert.Empty(t, c.Draft())

	require.Equal(t, 1, completer.callCount())
	assert.Equal(t, "secret", completer.keys[0])
	assert.Equal(t, Prompt{System: SystemPrompt, User: "Hi"}, completer.prompts[0])
}

func TestSubmitSendsOnlyLatestMessage(t *testing.T) {
	completer := &fakeCompleter{}
	c := newTestController(t, completer, "key")

	for _, q := range []string{"first", "second", "third"} {
		c.UpdateDraft(q)
		require.True(t, c.Submit(context.Background()))
	}

	require.Equal(t, 3, completer.callCount())
	assert.Equal(t, "third", completer.prompts[2].User)
	assert.Equal(t, SystemPrompt, completer.prompts[2].System)
}

func TestSubmitWithoutCredential(t *testing.T) {
	completer := &fakeCompleter{}
	c := NewController(ControllerConfig{
		Credentials: StaticCredential{Variable: "GROQ_API_KEY"},
		Completer:   completer,
	})
	c.UpdateDraft("Hi")

	require.True(t, c.Submit(context.Background()))

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Configuration Error")
	assert.Contains(t, msgs[1].Content, "GROQ_API_KEY")
	assert.False(t, c.IsBusy())
	assert.Equal(t, 0, completer.callCount())

	// The conversation stays usable.
	c.UpdateDraft("again")
	assert.True(t, c.Submit(context.Background()))
	assert.Len(t, c.Messages(), 4)
}

func TestSubmitTransportError(t *testing.T) {
	completer := &fakeCompleter{reply: failing(&TransportError{StatusCode: 500, Message: "rate limited"})}
	c := newTestController(t, completer, "key")
	c.UpdateDraft("Hi")

	require.True(t, c.Submit(context.Background()))

	last := c.Messages()[len(c.Messages())-1]
	assert.Equal(t, domain.RoleAssistant, last.Role)
	assert.Equal(t, "Error: rate limited. Please try again or contact us at "+ContactEmail+" or "+ContactPhone+".", last.Content)
	assert.False(t, c.IsBusy())
}

func TestSubmitMalformedResponse(t *testing.T) {
	tests := []struct {
		name  string
		reply func(int, Prompt) (string, error)
	}{
		{"sentinel", failing(ErrMalformedResponse)},
		{"empty text", replying("   ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			c := NewController(ControllerConfig{
				Credentials: StaticCredential{Value: "key"},
				Completer:   &fakeCompleter{reply: tt.reply},
				Recorder:    rec,
			})
			c.UpdateDraft("Hi")
			require.True(t, c.Submit(context.Background()))

			msgs := c.Messages()
			require.Len(t, msgs, 2)
			assert.Contains(t, msgs[1].Content, "Invalid response format from AI")
			assert.False(t, c.IsBusy())
			require.Len(t, rec.turns, 1)
			assert.Equal(t, domain.OutcomeMalformedResponse, rec.turns[0].Outcome)
		})
	}
}

func TestSubmitWhileBusyIsDropped(t *testing.T) {
	completer := &fakeCompleter{
		reply:   replying("done"),
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c := newTestController(t, completer, "key")
	c.UpdateDraft("first")

	done, ok := c.SubmitAsync(context.Background())
	require.True(t, ok)
	<-completer.started
	require.True(t, c.IsBusy())
	before := len(c.Messages())

	for _, draft := range []string{"second", "third", "   "} {
		c.UpdateDraft(draft)
		assert.False(t, c.Submit(context.Background()))
		_, accepted := c.SubmitAsync(context.Background())
		assert.False(t, accepted)
	}
	assert.Len(t, c.Messages(), before, "no entries while busy")

	close(completer.gate)
	<-done

	msgs := c.Messages()
	require.Len(t, msgs, before+1)
	assert.Equal(t, "done", msgs[len(msgs)-1].Content)
	assert.False(t, c.IsBusy())
	assert.Equal(t, 1, completer.callCount())
	assert.Equal(t, "   ", c.Draft(), "rejected drafts stay in the buffer")
}

func TestConcurrentSubmitsAreSingleFlight(t *testing.T) {
	completer := &fakeCompleter{gate: make(chan struct{})}
	c := newTestController(t, completer, "key")
	c.UpdateDraft("Hi")

	var accepted atomic.Int32
	var dones []<-chan struct{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if done, ok := c.SubmitAsync(context.Background()); ok {
				accepted.Add(1)
				mu.Lock()
				dones = append(dones, done)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(completer.gate)
	for _, d := range dones {
		<-d
	}

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, 1, completer.callCount())
	assert.Len(t, c.Messages(), 2)
}

func TestQuickActions(t *testing.T) {
	tests := []struct {
		action    QuickAction
		want      recordedIntent
		wantsOpen bool
	}{
		{QuickQuote, recordedIntent{IntentNavigate, "/contact"}, false},
		{QuickCall, recordedIntent{IntentDial, "tel:+923215765302"}, true},
		{QuickServices, recordedIntent{IntentNavigate, "/services"}, false},
		{QuickContact, recordedIntent{IntentNavigate, "/contact"}, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			intents := &fakeIntents{}
			c := NewController(ControllerConfig{
				Credentials: StaticCredential{Value: "key"},
				Completer:   &fakeCompleter{},
				Intents:     intents,
			})
			c.Open()
			before := c.Messages()

			require.NoError(t, c.QuickAction(tt.action))

			assert.Equal(t, []recordedIntent{tt.want}, intents.got)
			assert.Equal(t, tt.wantsOpen, c.IsOpen())
			assert.Equal(t, before, c.Messages())
		})
	}
}

func TestQuickActionCallKeepsClosedWidgetClosed(t *testing.T) {
	c := newTestController(t, &fakeCompleter{}, "key")
	require.NoError(t, c.QuickAction(QuickCall))
	assert.False(t, c.IsOpen())
}

func TestQuickActionUnknown(t *testing.T) {
	intents := &fakeIntents{}
	c := NewController(ControllerConfig{
		Credentials: StaticCredential{Value: "key"},
		Completer:   &fakeCompleter{},
		Intents:     intents,
	})
	c.Open()

	err := c.QuickAction("brochure")
	require.ErrorIs(t, err, ErrUnknownQuickAction)
	assert.Empty(t, intents.got)
	assert.True(t, c.IsOpen())
}

func TestTranscriptKeepsInsertionOrder(t *testing.T) {
	// A clock running backwards proves ordering never follows timestamps.
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	clock := func() time.Time {
		return base.Add(-time.Duration(tick.Add(1)) * time.Second)
	}
	completer := &fakeCompleter{reply: func(call int, _ Prompt) (string, error) {
		return fmt.Sprintf("answer-%d", call), nil
	}}
	c := NewController(ControllerConfig{
		Credentials: StaticCredential{Value: "key"},
		Completer:   completer,
		Clock:       clock,
	})

	const pairs = 12
	for i := 1; i <= pairs; i++ {
		c.UpdateDraft(fmt.Sprintf("question-%d", i))
		require.True(t, c.Submit(context.Background()))
	}

	msgs := c.Messages()
	require.Len(t, msgs, pairs*2)
	for i := 0; i < pairs; i++ {
		assert.Equal(t, domain.RoleUser, msgs[2*i].Role)
		assert.Equal(t, fmt.Sprintf("question-%d", i+1), msgs[2*i].Content)
		assert.Equal(t, domain.RoleAssistant, msgs[2*i+1].Role)
		assert.Equal(t, fmt.Sprintf("answer-%d", i+1), msgs[2*i+1].Content)
	}
}

func TestOnChangePublishesIncreasingVersions(t *testing.T) {
	var snaps []Snapshot
	c := NewController(ControllerConfig{
		Credentials: StaticCredential{Value: "key"},
		Completer:   &fakeCompleter{reply: replying("Hello")},
		OnChange:    func(s Snapshot) { snaps = append(snaps, s) },
	})

	c.Open()
	c.UpdateDraft("Hi")
	c.UpdateDraft("Hi") // unchanged, not published
	c.Submit(context.Background())

	require.Len(t, snaps, 4)
	for i := 1; i < len(snaps); i++ {
		assert.Greater(t, snaps[i].Version, snaps[i-1].Version)
	}
	assert.True(t, snaps[2].IsBusy, "commit publishes the busy state")
	assert.Len(t, snaps[2].Messages, 2)
	assert.False(t, snaps[3].IsBusy)
	assert.Len(t, snaps[3].Messages, 3)
}

func TestRecorderReceivesTurns(t *testing.T) {
	rec := &fakeRecorder{}
	c := NewController(ControllerConfig{
		Credentials: StaticCredential{Value: "key"},
		Completer:   &fakeCompleter{reply: replying("Hello")},
		Recorder:    rec,
		VisitorID:   "visitor-1",
		SessionID:   "session-1",
	})
	c.UpdateDraft("Hi")
	c.Submit(context.Background())

	require.Len(t, rec.turns, 1)
	turn := rec.turns[0]
	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, "visitor-1", turn.VisitorID)
	assert.Equal(t, "session-1", turn.SessionID)
	assert.Equal(t, "Hi", turn.UserMessage)
	assert.Equal(t, "Hello", turn.Reply)
	assert.Equal(t, domain.OutcomeOK, turn.Outcome)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.Outcome
	}{
		{"ok", nil, domain.OutcomeOK},
		{"configuration", &ConfigurationError{Variable: "GROQ_API_KEY"}, domain.OutcomeConfigurationError},
		{"malformed", fmt.Errorf("decode: %w", ErrMalformedResponse), domain.OutcomeMalformedResponse},
		{"transport", &TransportError{StatusCode: 429, Message: "rate limited"}, domain.OutcomeTransportError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
