package api

import (
	"net/http"

	"github.com/devmud/devmud-site/internal/chat"
	"github.com/devmud/devmud-site/internal/contact"
	"github.com/go-chi/chi/v5"
)

type quickActionView struct {
	Action chat.QuickAction `json:"action"`
	chat.Intent
}

type siteInfo struct {
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Greeting     string            `json:"greeting"`
	QuickActions []quickActionView `json:"quick_actions"`
	Services     []string          `json:"services"`
	Routes       []string          `json:"routes"`
}

// Routes are the site's client-side pages.
var Routes = []string{"/", "/about", "/services", "/testimonials", "/contact"}

// Site returns the static data the frontend needs to render the widget and
// the contact form.
func (h *Handler) Site(w http.ResponseWriter, _ *http.Request) {
	info := siteInfo{
		Email:    chat.ContactEmail,
		Phone:    chat.ContactPhone,
		Greeting: chat.Greeting,
		Services: contact.Services,
		Routes:   Routes,
	}
	for _, a := range chat.QuickActions() {
		intent, _ := chat.Destination(a)
		info.QuickActions = append(info.QuickActions, quickActionView{Action: a, Intent: intent})
	}
	JSON(w, http.StatusOK, info)
}

// RegisterRoutes registers the site API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			Error(w, http.StatusNotFound, "not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			Error(w, http.StatusMethodNotAllowed, "method not allowed")
		})
		r.Get("/site", h.Site)
		r.Post("/contact", h.SubmitContact)
	})
}
