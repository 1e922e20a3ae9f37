package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(origins []string, method, origin string) (*httptest.ResponseRecorder, bool) {
	called := false
	h := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/site", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, called
}

func TestCORSExplicitOrigin(t *testing.T) {
	w, called := serve([]string{"https://devmud.com"}, http.MethodGet, "https://devmud.com")

	if !called {
		t.Fatal("next handler not called")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://devmud.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Widget-Session" {
		t.Errorf("Allow-Headers = %q", got)
	}
}

func TestCORSWildcardHasNoCredentials(t *testing.T) {
	w, _ := serve([]string{"*"}, http.MethodGet, "https://elsewhere.example")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://elsewhere.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials = %q, want empty", got)
	}
}

func TestCORSRejectedOrigin(t *testing.T) {
	w, called := serve([]string{"https://devmud.com"}, http.MethodGet, "https://evil.example")

	if !called {
		t.Fatal("next handler not called")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	w, called := serve([]string{"*"}, http.MethodOptions, "https://devmud.com")

	if called {
		t.Error("preflight reached next handler")
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
