package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"
)

// Server owns the HTTP surface and the handles it routes to.
type Server struct {
	httpServer *http.Server

	tokens TokenIssuer
	images Uploader
	admins adminStore
	cultos cultoStore
	agenda agendaStore
}

// New wires the route table. Mutating routes go through requireAuth; the
// read routes and login are public.
func New(cfg Config, db *sql.DB, images Uploader) *Server {
	s := &Server{
		tokens: TokenIssuer{Secret: []byte(cfg.JWTSecret)},
		images: images,
		admins: pgAdminStore{db: db},
		cultos: pgCultoStore{db: db},
		agenda: pgAgendaStore{db: db},
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /login", s.handleLogin)

	mux.HandleFunc("GET /cultos/ultimo", s.handleLatestCulto)
	mux.Handle("POST /cultos", s.requireAuth(http.HandlerFunc(s.handleCreateCulto)))
	mux.Handle("PUT /cultos/{id}", s.requireAuth(http.HandlerFunc(s.handleUpdateCulto)))
	mux.Handle("DELETE /cultos/{id}", s.requireAuth(http.HandlerFunc(s.handleDeleteCulto)))

	mux.HandleFunc("GET /agenda", s.handleListAgenda)
	mux.Handle("POST /agenda", s.requireAuth(http.HandlerFunc(s.handleCreateAgenda)))
	mux.Handle("PUT /agenda/{id}", s.requireAuth(http.HandlerFunc(s.handleUpdateAgenda)))
	mux.Handle("DELETE /agenda/{id}", s.requireAuth(http.HandlerFunc(s.handleDeleteAgenda)))

	// Wrap middleware: requestID -> logging -> mux
	var handler http.Handler = mux
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
