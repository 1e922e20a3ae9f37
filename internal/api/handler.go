// Package api provides HTTP handlers for the Dev Mud site API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/devmud/devmud-site/internal/chat"
	"github.com/devmud/devmud-site/internal/contact"
	"github.com/devmud/devmud-site/internal/store"
)

// Relay delivers contact forms.
type Relay interface {
	Send(ctx context.Context, f contact.Form) error
}

// WidgetCounter reports live chat widget connections.
type WidgetCounter interface {
	Count() int
}

// Handler provides common handler utilities.
type Handler struct {
	repo    store.Repository
	relay   Relay
	creds   chat.CredentialSource
	widgets WidgetCounter
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, relay Relay, creds chat.CredentialSource, widgets WidgetCounter) *Handler {
	return &Handler{
		repo:    repo,
		relay:   relay,
		creds:   creds,
		widgets: widgets,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
