package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newRoutedTestServer() *Server {
	s := &Server{
		tokens: TokenIssuer{Secret: []byte("test-secret")},
		images: &fakeUploader{},
		admins: fakeAdminStore{admins: map[string]Admin{}},
		cultos: &fakeCultoStore{},
		agenda: &fakeAgendaStore{},
	}
	return s
}

func TestPublicRoutesNeedNoToken(t *testing.T) {
	s := newRoutedTestServer()
	h := s.routes()

	for _, path := range []string{"/health", "/cultos/ultimo", "/agenda"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200 without a token, got %d", path, rr.Code)
		}
	}
}

func TestMutatingRoutesRequireToken(t *testing.T) {
	s := newRoutedTestServer()
	h := s.routes()

	routes := []struct{ method, path string }{
		{http.MethodPost, "/cultos"},
		{http.MethodPut, "/cultos/1"},
		{http.MethodDelete, "/cultos/1"},
		{http.MethodPost, "/agenda"},
		{http.MethodPut, "/agenda/1"},
		{http.MethodDelete, "/agenda/1"},
	}
	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without a token, got %d", rt.method, rt.path, rr.Code)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	s := newRoutedTestServer()
	h := s.routes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "rid-from-client")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-Id"); got != "rid-from-client" {
		t.Errorf("expected client request id echoed, got %q", got)
	}

	// And one is generated when the client sends none.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("expected a generated request id")
	}
}
