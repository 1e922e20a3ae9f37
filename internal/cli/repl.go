package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/devmud/devmud-site/internal/chat"
	"github.com/devmud/devmud-site/internal/domain"
	"github.com/devmud/devmud-site/internal/markup"
	"github.com/fatih/color"
)

type palette struct {
	user      *color.Color
	assistant *color.Color
	dim       *color.Color
	intent    *color.Color
	warn      *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		user:      color.New(color.FgGreen, color.Bold),
		assistant: color.New(color.FgCyan, color.Bold),
		dim:       color.New(color.Faint),
		intent:    color.New(color.FgMagenta),
		warn:      color.New(color.FgYellow),
	}
	if !enabled {
		for _, c := range []*color.Color{p.user, p.assistant, p.dim, p.intent, p.warn} {
			c.DisableColor()
		}
	}
	return p
}

// terminalIntents prints quick-action destinations instead of navigating.
type terminalIntents struct {
	out io.Writer
	pal palette
}

func (t *terminalIntents) Navigate(route string) {
	fmt.Fprintln(t.out, t.pal.intent.Sprintf("→ Opening %s", route))
}

func (t *terminalIntents) Dial(uri string) {
	fmt.Fprintln(t.out, t.pal.intent.Sprintf("→ Calling %s", strings.TrimPrefix(uri, "tel:")))
}

// REPL drives a controller from line-oriented input.
type REPL struct {
	ctrl        *chat.Controller
	in          *bufio.Scanner
	out         io.Writer
	pal         palette
	interactive bool
	printed     int
}

// NewREPL creates a REPL. Prompts are only printed when interactive is set.
func NewREPL(ctrl *chat.Controller, in io.Reader, out io.Writer, pal palette, interactive bool) *REPL {
	return &REPL{
		ctrl:        ctrl,
		in:          bufio.NewScanner(in),
		out:         out,
		pal:         pal,
		interactive: interactive,
	}
}

// Run opens the widget, prints the greeting and reads until EOF, /exit or
// context cancellation.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(r.out, r.pal.assistant.Sprint("Dev Mud Assistant"))
	fmt.Fprintln(r.out, r.pal.dim.Sprint("Type your message and press Enter. /help lists commands."))
	fmt.Fprintln(r.out)

	r.ctrl.Open()
	r.flush()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for r.in.Scan() {
			select {
			case lines <- r.in.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		if r.interactive {
			fmt.Fprint(r.out, r.pal.user.Sprint("You: "))
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return r.in.Err()
			}
			if done := r.handle(ctx, line); done {
				return nil
			}
		}
	}
}

// handle processes one input line and reports whether the session ended.
func (r *REPL) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "/") {
		return r.command(line)
	}

	if !r.ctrl.IsOpen() {
		r.ctrl.Open()
	}
	r.ctrl.UpdateDraft(line)
	if r.interactive {
		fmt.Fprintln(r.out, r.pal.dim.Sprint("Typing..."))
	}
	if !r.ctrl.Submit(ctx) {
		fmt.Fprintln(r.out, r.pal.warn.Sprint("Still waiting for the previous reply."))
		return false
	}
	r.flush()
	return false
}

func (r *REPL) command(line string) bool {
	name := strings.ToLower(strings.Fields(line)[0])
	switch name {
	case "/exit", "/quit":
		return true
	case "/help":
		r.help()
	case "/open":
		r.ctrl.Open()
		r.flush()
	case "/close":
		r.ctrl.Close()
		fmt.Fprintln(r.out, r.pal.dim.Sprint("Chat closed. Type /open to resume."))
	case "/history":
		r.history()
	default:
		action, err := chat.ParseQuickAction(strings.TrimPrefix(name, "/"))
		if err != nil {
			fmt.Fprintln(r.out, r.pal.warn.Sprintf("Unknown command %s. Type /help for commands.", name))
			return false
		}
		if err := r.ctrl.QuickAction(action); err != nil {
			fmt.Fprintln(r.out, r.pal.warn.Sprint(err.Error()))
			return false
		}
		if !r.ctrl.IsOpen() {
			fmt.Fprintln(r.out, r.pal.dim.Sprint("Chat closed. Type /open to resume."))
		}
	}
	return false
}

func (r *REPL) help() {
	fmt.Fprintln(r.out, "Commands:")
	for _, a := range chat.QuickActions() {
		intent, _ := chat.Destination(a)
		fmt.Fprintf(r.out, "  /%-10s %s (%s)\n", a, intent.Label, intent.Target)
	}
	fmt.Fprintf(r.out, "  /%-10s %s\n", "open", "reopen the chat")
	fmt.Fprintf(r.out, "  /%-10s %s\n", "close", "close the chat, keeping the conversation")
	fmt.Fprintf(r.out, "  /%-10s %s\n", "history", "reprint the conversation")
	fmt.Fprintf(r.out, "  /%-10s %s\n", "exit", "quit")
}

func (r *REPL) history() {
	for _, m := range r.ctrl.Messages() {
		r.print(m)
	}
}

// flush prints assistant messages appended since the last flush. User
// messages are already on screen.
func (r *REPL) flush() {
	msgs := r.ctrl.Messages()
	for _, m := range msgs[r.printed:] {
		if m.Role == domain.RoleAssistant {
			r.print(m)
		}
	}
	r.printed = len(msgs)
}

func (r *REPL) print(m domain.Message) {
	label := r.pal.user.Sprint("You")
	body := m.Content
	if m.Role == domain.RoleAssistant {
		label = r.pal.assistant.Sprint("Dev Mud")
		body = markup.PlainText(markup.Parse(m.Content))
	}
	fmt.Fprintf(r.out, "%s %s\n%s\n\n", label, r.pal.dim.Sprintf("[%s]", m.TimeLabel()), body)
}
