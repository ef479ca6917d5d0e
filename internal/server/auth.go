// auth.go - Admin login and bearer-token middleware.
//
// A single admin identity is seeded out-of-band (cmd/seed); the HTTP surface
// never creates or mutates accounts. Login compares bcrypt hashes and issues
// a one-hour JWT. Unknown usernames and wrong passwords fail identically so
// the API does not leak which usernames exist.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Admin is a row of the admins table.
type Admin struct {
	ID           string
	Username     string
	PasswordHash string
}

var errAdminNotFound = errors.New("admin not found")

type adminStore interface {
	byUsername(ctx context.Context, username string) (Admin, error)
}

type pgAdminStore struct {
	db *sql.DB
}

func (s pgAdminStore) byUsername(ctx context.Context, username string) (Admin, error) {
	var a Admin
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM admins WHERE username = $1`,
		username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Admin{}, errAdminNotFound
		}
		return Admin{}, err
	}
	return a, nil
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin handles POST /login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	if body.Username == "" || body.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	admin, err := s.admins.byUsername(r.Context(), body.Username)
	if err != nil {
		if errors.Is(err, errAdminNotFound) {
			// Same response as a wrong password.
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=admin_lookup_failed err=%v", rid, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(body.Password)); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	tok, err := s.tokens.Issue(admin.ID, admin.Username)
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=token_issue_failed err=%v", rid, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

// requireAuth guards mutating routes. Missing header -> 401, expired token
// -> 401 with an expired message, anything else wrong with the token -> 403.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, err := s.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			if errors.Is(err, errTokenExpired) {
				http.Error(w, "token expired, login again", http.StatusUnauthorized)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
