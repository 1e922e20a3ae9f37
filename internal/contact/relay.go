// Package contact forwards contact form submissions to the form relay.
package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/devmud/devmud-site/internal/domain"
)

// DefaultRelayURL delivers submissions to the Dev Mud inbox.
const DefaultRelayURL = "https://formsubmit.co/devmudservices@gmail.com"

// FailureMessage is shown when delivery fails.
const FailureMessage = "Failed to send message. Please try emailing us directly at devmudservices@gmail.com"

// Services lists the options of the contact form's service field.
var Services = []string{
	"Web Development",
	"App Development",
	"Custom Software",
	"AI & Machine Learning",
	"Automation & Integration",
	"Cloud Solutions",
	"Consulting",
	"Other",
}

// ErrInvalidForm is returned by Validate.
var ErrInvalidForm = errors.New("invalid contact form")

// Form is a contact form submission as posted by the site.
type Form struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Service string `json:"service"`
	Message string `json:"message"`
}

// Normalize trims every field.
func (f Form) Normalize() Form {
	return Form{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Phone:   strings.TrimSpace(f.Phone),
		Company: strings.TrimSpace(f.Company),
		Service: strings.TrimSpace(f.Service),
		Message: strings.TrimSpace(f.Message),
	}
}

// Validate requires every field the form marks required. Service must be one
// of Services.
func (f Form) Validate() error {
	switch {
	case f.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidForm)
	case f.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalidForm)
	case f.Service == "":
		return fmt.Errorf("%w: service is required", ErrInvalidForm)
	case f.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalidForm)
	}
	addr, err := mail.ParseAddress(f.Email)
	if err != nil || addr.Address != f.Email {
		return fmt.Errorf("%w: email is invalid", ErrInvalidForm)
	}
	if !slices.Contains(Services, f.Service) {
		return fmt.Errorf("%w: service is invalid", ErrInvalidForm)
	}
	return nil
}

// Inquiry converts the form to a pending inquiry.
func (f Form) Inquiry() *domain.Inquiry {
	return &domain.Inquiry{
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		Company: f.Company,
		Service: f.Service,
		Message: f.Message,
		Status:  domain.InquiryPending,
	}
}

// Relay posts forms to a FormSubmit-compatible endpoint.
type Relay struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewRelay creates a relay. A zero timeout means 15 seconds.
func NewRelay(url string, timeout time.Duration, logger *slog.Logger) *Relay {
	if url == "" {
		url = DefaultRelayURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Send makes a single delivery attempt. Any non-2xx status is an error.
func (r *Relay) Send(ctx context.Context, f Form) error {
	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			r.logger.Debug("Failed to close relay response body", "error", closeErr)
		}
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay returned %s", resp.Status)
	}
	return nil
}
