package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type fakeAdminStore struct {
	admins map[string]Admin
}

func (f fakeAdminStore) byUsername(ctx context.Context, username string) (Admin, error) {
	a, ok := f.admins[username]
	if !ok {
		return Admin{}, errAdminNotFound
	}
	return a, nil
}

func newAuthTestServer(t *testing.T) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return &Server{
		tokens: TokenIssuer{Secret: []byte("test-secret")},
		admins: fakeAdminStore{admins: map[string]Admin{
			"pastor": {ID: "admin-id-1", Username: "pastor", PasswordHash: string(hash)},
		}},
	}
}

func postLogin(t *testing.T, s *Server, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.handleLogin(rr, req)
	return rr
}

func TestLoginSuccess(t *testing.T) {
	s := newAuthTestServer(t)
	rr := postLogin(t, s, loginReq{Username: "pastor", Password: "correct horse"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	claims, err := s.tokens.Verify(resp["token"])
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Subject != "admin-id-1" || claims.Name != "pastor" {
		t.Errorf("unexpected claims: sub=%s name=%s", claims.Subject, claims.Name)
	}
}

func TestLoginMissingFields(t *testing.T) {
	s := newAuthTestServer(t)
	for _, payload := range []loginReq{
		{Username: "", Password: "x"},
		{Username: "pastor", Password: ""},
	} {
		rr := postLogin(t, s, payload)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for %+v, got %d", payload, rr.Code)
		}
	}
}

func TestLoginBadCredentialsIndistinguishable(t *testing.T) {
	s := newAuthTestServer(t)

	unknown := postLogin(t, s, loginReq{Username: "nobody", Password: "correct horse"})
	wrongPass := postLogin(t, s, loginReq{Username: "pastor", Password: "wrong"})

	if unknown.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: expected 401, got %d", unknown.Code)
	}
	if wrongPass.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", wrongPass.Code)
	}
	if unknown.Body.String() != wrongPass.Body.String() {
		t.Errorf("responses differ, enumeration possible: %q vs %q",
			unknown.Body.String(), wrongPass.Body.String())
	}
}

func TestRequireAuthMatrix(t *testing.T) {
	s := newAuthTestServer(t)
	protected := s.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	issued := time.Now().Add(-2 * time.Hour)
	expiredIss := TokenIssuer{Secret: []byte("test-secret"), Now: func() time.Time { return issued }}
	expiredTok, err := expiredIss.Issue("admin-id-1", "pastor")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	validTok, err := s.tokens.Issue("admin-id-1", "pastor")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	cases := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"malformed token", "Bearer not-a-jwt", http.StatusForbidden, ""},
		{"expired token", "Bearer " + expiredTok, http.StatusUnauthorized, "expired"},
		{"valid token", "Bearer " + validTok, http.StatusOK, ""},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/cultos", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		if rr.Code != tc.wantStatus {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.wantStatus, rr.Code)
		}
		if tc.wantBody != "" && !strings.Contains(rr.Body.String(), tc.wantBody) {
			t.Errorf("%s: body %q does not mention %q", tc.name, rr.Body.String(), tc.wantBody)
		}
	}
}
