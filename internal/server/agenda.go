// agenda.go - Calendar events: plain relational CRUD with edge validation.
// Dates are real calendar dates, times are zero-padded 24h "HH:MM" text so
// that lexicographic order is chronological order.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// AgendaEvent is a calendar entry.
type AgendaEvent struct {
	ID         int64  `json:"id"`
	Titulo     string `json:"titulo"`
	DataEvento string `json:"data_evento"`
	Horario    string `json:"horario"`
	Local      string `json:"local"`
}

// agendaPatch carries the subset of fields supplied on an update.
type agendaPatch struct {
	Titulo     *string
	DataEvento *string
	Horario    *string
	Local      *string
}

func (p agendaPatch) empty() bool {
	return p.Titulo == nil && p.DataEvento == nil && p.Horario == nil && p.Local == nil
}

type agendaStore interface {
	insert(ctx context.Context, e AgendaEvent) error
	update(ctx context.Context, id int64, p agendaPatch) (int64, error)
	deleteRow(ctx context.Context, id int64) (int64, error)
	list(ctx context.Context) ([]AgendaEvent, error)
}

type pgAgendaStore struct {
	db *sql.DB
}

func (s pgAgendaStore) insert(ctx context.Context, e AgendaEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agenda (titulo, data_evento, horario, local) VALUES ($1, $2, $3, $4)`,
		e.Titulo, e.DataEvento, e.Horario, e.Local)
	return err
}

func (s pgAgendaStore) update(ctx context.Context, id int64, p agendaPatch) (int64, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	add := func(col string, v *string) {
		if v != nil {
			args = append(args, *v)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	add("titulo", p.Titulo)
	add("data_evento", p.DataEvento)
	add("horario", p.Horario)
	add("local", p.Local)
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE agenda SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s pgAgendaStore) deleteRow(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agenda WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s pgAgendaStore) list(ctx context.Context) ([]AgendaEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, titulo, to_char(data_evento, 'YYYY-MM-DD'), horario, local
		   FROM agenda ORDER BY data_evento ASC, horario ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []AgendaEvent{}
	for rows.Next() {
		var e AgendaEvent
		if err := rows.Scan(&e.ID, &e.Titulo, &e.DataEvento, &e.Horario, &e.Local); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var horarioRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func validDataEvento(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validHorario(s string) bool {
	return horarioRe.MatchString(s)
}

type agendaReq struct {
	Titulo     string `json:"titulo"`
	DataEvento string `json:"data_evento"`
	Horario    string `json:"horario"`
	Local      string `json:"local"`
}

// handleCreateAgenda handles POST /agenda. All four fields are required.
func (s *Server) handleCreateAgenda(w http.ResponseWriter, r *http.Request) {
	var req agendaReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	req.Titulo = strings.TrimSpace(req.Titulo)
	req.DataEvento = strings.TrimSpace(req.DataEvento)
	req.Horario = strings.TrimSpace(req.Horario)
	req.Local = strings.TrimSpace(req.Local)

	switch {
	case req.Titulo == "":
		http.Error(w, "titulo is required", http.StatusBadRequest)
		return
	case req.DataEvento == "":
		http.Error(w, "data_evento is required", http.StatusBadRequest)
		return
	case req.Horario == "":
		http.Error(w, "horario is required", http.StatusBadRequest)
		return
	case req.Local == "":
		http.Error(w, "local is required", http.StatusBadRequest)
		return
	}
	if !validDataEvento(req.DataEvento) {
		http.Error(w, "data_evento must be a valid YYYY-MM-DD date", http.StatusBadRequest)
		return
	}
	if !validHorario(req.Horario) {
		http.Error(w, "horario must be HH:MM between 00:00 and 23:59", http.StatusBadRequest)
		return
	}

	err := s.agenda.insert(r.Context(), AgendaEvent{
		Titulo:     req.Titulo,
		DataEvento: req.DataEvento,
		Horario:    req.Horario,
		Local:      req.Local,
	})
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=agenda_insert_failed err=%v", rid, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "evento criado"})
}

// handleUpdateAgenda handles PUT /agenda/{id}. Any nonempty subset of the
// four fields may be supplied; only supplied fields are re-validated.
func (s *Server) handleUpdateAgenda(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	var req agendaReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var p agendaPatch
	if v := strings.TrimSpace(req.Titulo); v != "" {
		p.Titulo = &v
	}
	if v := strings.TrimSpace(req.DataEvento); v != "" {
		if !validDataEvento(v) {
			http.Error(w, "data_evento must be a valid YYYY-MM-DD date", http.StatusBadRequest)
			return
		}
		p.DataEvento = &v
	}
	if v := strings.TrimSpace(req.Horario); v != "" {
		if !validHorario(v) {
			http.Error(w, "horario must be HH:MM between 00:00 and 23:59", http.StatusBadRequest)
			return
		}
		p.Horario = &v
	}
	if v := strings.TrimSpace(req.Local); v != "" {
		p.Local = &v
	}
	if p.empty() {
		http.Error(w, "nothing to update: send at least one field", http.StatusBadRequest)
		return
	}

	affected, err := s.agenda.update(r.Context(), id, p)
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=agenda_update_failed id=%d err=%v", rid, id, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if affected == 0 {
		http.Error(w, "evento not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "evento atualizado"})
}

// handleDeleteAgenda handles DELETE /agenda/{id}.
func (s *Server) handleDeleteAgenda(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	affected, err := s.agenda.deleteRow(r.Context(), id)
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=agenda_delete_failed id=%d err=%v", rid, id, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if affected == 0 {
		http.Error(w, "evento not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "evento removido"})
}

// handleListAgenda handles GET /agenda, soonest events first.
func (s *Server) handleListAgenda(w http.ResponseWriter, r *http.Request) {
	events, err := s.agenda.list(r.Context())
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=agenda_list_failed err=%v", rid, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
