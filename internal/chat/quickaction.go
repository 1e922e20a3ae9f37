package chat

import (
	"fmt"
	"strings"
)

// QuickAction is a one-shot widget button.
type QuickAction string

const (
	QuickQuote    QuickAction = "quote"
	QuickCall     QuickAction = "call"
	QuickServices QuickAction = "services"
	QuickContact  QuickAction = "contact"
)

// IntentKind distinguishes page navigation from a phone dial.
type IntentKind string

const (
	IntentNavigate IntentKind = "navigate"
	IntentDial     IntentKind = "dial"
)

// Intent is where a quick action sends the visitor.
type Intent struct {
	Kind   IntentKind `json:"kind"`
	Target string     `json:"target"`
	Label  string     `json:"label"`
}

// ClosesWidget reports whether dispatching the intent hides the widget.
// Navigation leaves the chat; dialing keeps it open.
func (i Intent) ClosesWidget() bool {
	return i.Kind == IntentNavigate
}

// Intents receives quick-action dispatches. Implementations deliver them to
// whatever renders the widget: a browser over websocket, a terminal, a test.
type Intents interface {
	Navigate(route string)
	Dial(uri string)
}

var quickActions = map[QuickAction]Intent{
	QuickQuote:    {Kind: IntentNavigate, Target: "/contact", Label: "Get a Quote"},
	QuickCall:     {Kind: IntentDial, Target: dialURI, Label: "Book a Call"},
	QuickServices: {Kind: IntentNavigate, Target: "/services", Label: "View Services"},
	QuickContact:  {Kind: IntentNavigate, Target: "/contact", Label: "Contact Us"},
}

// QuickActions lists the buttons in display order.
func QuickActions() []QuickAction {
	return []QuickAction{QuickQuote, QuickCall, QuickServices, QuickContact}
}

// ParseQuickAction accepts the action name case-insensitively.
func ParseQuickAction(s string) (QuickAction, error) {
	a := QuickAction(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := quickActions[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownQuickAction, s)
	}
	return a, nil
}

// Destination returns the fixed intent for a quick action.
func Destination(a QuickAction) (Intent, bool) {
	intent, ok := quickActions[a]
	return intent, ok
}

func dispatch(intents Intents, intent Intent) {
	switch intent.Kind {
	case IntentNavigate:
		intents.Navigate(intent.Target)
	case IntentDial:
		intents.Dial(intent.Target)
	}
}

type noopIntents struct{}

func (noopIntents) Navigate(string) {}
func (noopIntents) Dial(string)     {}
