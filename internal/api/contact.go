package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/devmud/devmud-site/internal/contact"
	"github.com/devmud/devmud-site/internal/domain"
	"github.com/devmud/devmud-site/internal/identity"
)

const maxContactBody = 64 << 10

type contactResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SubmitContact stores a contact form and forwards it to the relay once.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)

	var form contact.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		JSON(w, http.StatusBadRequest, contactResponse{Error: "invalid request body"})
		return
	}
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		JSON(w, http.StatusBadRequest, contactResponse{Error: strings.TrimPrefix(err.Error(), contact.ErrInvalidForm.Error()+": ")})
		return
	}

	ctx := r.Context()
	logger := slog.With("visitor_id", identity.VisitorIDFromContext(ctx), "ip", identity.IPFromRequest(r))

	// Storage failure does not block delivery.
	inquiry := form.Inquiry()
	stored := true
	if err := h.repo.CreateInquiry(ctx, inquiry); err != nil {
		logger.Error("Failed to store inquiry", "error", err)
		stored = false
		inquiry.ID = ""
	}
	logger = logger.With("inquiry_id", inquiry.ID)

	relayErr := h.relay.Send(ctx, form)
	status := domain.InquiryRelayed
	if relayErr != nil {
		status = domain.InquiryFailed
		logger.Warn("Contact relay failed", "error", relayErr)
	}

	if stored {
		if err := h.repo.UpdateInquiryStatus(ctx, inquiry.ID, status); err != nil {
			logger.Error("Failed to update inquiry status", "status", status, "error", err)
		}
	}

	if relayErr != nil {
		JSON(w, http.StatusBadGateway, contactResponse{ID: inquiry.ID, Error: contact.FailureMessage})
		return
	}
	logger.Info("Contact inquiry relayed", "service", form.Service)
	JSON(w, http.StatusOK, contactResponse{Success: true, ID: inquiry.ID})
}
