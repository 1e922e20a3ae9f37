package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/devmud/devmud-site/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCompleter struct {
	reply string
	users []string
}

func (e *echoCompleter) Complete(_ context.Context, _ string, p chat.Prompt) (string, error) {
	e.users = append(e.users, p.User)
	return e.reply, nil
}

func runREPL(t *testing.T, creds chat.CredentialSource, completer chat.Completer, input string) string {
	t.Helper()
	var out bytes.Buffer
	pal := newPalette(false)
	ctrl := chat.NewController(chat.ControllerConfig{
		Credentials: creds,
		Completer:   completer,
		Intents:     &terminalIntents{out: &out, pal: pal},
	})
	repl := NewREPL(ctrl, strings.NewReader(input), &out, pal, false)
	require.NoError(t, repl.Run(context.Background()))
	return out.String()
}

func TestREPLConversation(t *testing.T) {
	completer := &echoCompleter{reply: "We build:\n\n- **Web** apps\n- Cloud"}

	out := runREPL(t, chat.StaticCredential{Value: "k"}, completer, "  What do you build?  \n\n/exit\nnever sent\n")

	assert.Contains(t, out, "Hi! I'm Dev Mud's AI assistant.")
	assert.Contains(t, out, "We build:\n• Web apps\n• Cloud")
	assert.NotContains(t, out, "**")
	assert.Equal(t, []string{"What do you build?"}, completer.users)
}

func TestREPLQuickActions(t *testing.T) {
	out := runREPL(t, chat.StaticCredential{Value: "k"}, &echoCompleter{reply: "ok"}, "/call\n/services\n/open\n")

	assert.Contains(t, out, "→ Calling +923215765302")
	assert.Contains(t, out, "→ Opening /services")
	assert.Equal(t, 1, strings.Count(out, "Chat closed"))
	// Reopening does not repeat the greeting.
	assert.Equal(t, 1, strings.Count(out, "Hi! I'm Dev Mud's AI assistant."))
}

func TestREPLUnknownCommand(t *testing.T) {
	out := runREPL(t, chat.StaticCredential{Value: "k"}, &echoCompleter{reply: "ok"}, "/pricing\n")

	assert.Contains(t, out, "Unknown command /pricing")
}

func TestREPLMissingCredential(t *testing.T) {
	completer := &echoCompleter{reply: "never"}

	out := runREPL(t, chat.StaticCredential{Variable: "GROQ_API_KEY"}, completer, "Hello\n")

	assert.Contains(t, out, "Configuration Error")
	assert.Empty(t, completer.users)
}

func TestREPLHistory(t *testing.T) {
	out := runREPL(t, chat.StaticCredential{Value: "k"}, &echoCompleter{reply: "Sure"}, "Hi\n/history\n")

	assert.Contains(t, out, "You [")
	assert.Equal(t, 2, strings.Count(out, "\nSure\n"))
}

func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"base-url", "model", "db", "no-color", "verbose"} {
		assert.NotNil(t, cmd.Flag(name), name)
	}
	assert.Equal(t, "devmud-chat", cmd.Name())
}
