package contact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devmud/devmud-site/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() Form {
	return Form{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Service: "Cloud Solutions",
		Message: "We need a migration plan.",
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(*Form)
		wantErr string
	}{
		"valid":         {mutate: func(*Form) {}},
		"missing name":  {mutate: func(f *Form) { f.Name = "" }, wantErr: "name is required"},
		"missing email": {mutate: func(f *Form) { f.Email = "" }, wantErr: "email is required"},
		"bad email":     {mutate: func(f *Form) { f.Email = "not-an-email" }, wantErr: "email is invalid"},
		"display name":  {mutate: func(f *Form) { f.Email = "Ada <ada@example.com>" }, wantErr: "email is invalid"},
		"missing body":  {mutate: func(f *Form) { f.Message = "" }, wantErr: "message is required"},
		"no service":    {mutate: func(f *Form) { f.Service = "" }, wantErr: "service is required"},
		"odd service":   {mutate: func(f *Form) { f.Service = "Catering" }, wantErr: "service is invalid"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidForm)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNormalizeAndInquiry(t *testing.T) {
	f := Form{Name: "  Ada ", Email: " ada@example.com", Service: "Other", Message: " hi \n"}.Normalize()
	require.NoError(t, f.Validate())

	inq := f.Inquiry()
	assert.Equal(t, "Ada", inq.Name)
	assert.Equal(t, "hi", inq.Message)
	assert.Equal(t, domain.InquiryPending, inq.Status)
}

func TestSendPostsJSON(t *testing.T) {
	var got Form
	var accept, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":"true"}`))
	}))
	defer srv.Close()

	relay := NewRelay(srv.URL, time.Second, nil)
	require.NoError(t, relay.Send(context.Background(), validForm()))

	assert.Equal(t, "application/json", accept)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, validForm(), got)
}

func TestSendRejectedStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	relay := NewRelay(srv.URL, time.Second, nil)
	err := relay.Send(context.Background(), validForm())

	assert.ErrorContains(t, err, "503")
	assert.Equal(t, 1, calls)
}

func TestSendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	relay := NewRelay(url, time.Second, nil)
	assert.Error(t, relay.Send(context.Background(), validForm()))
}
