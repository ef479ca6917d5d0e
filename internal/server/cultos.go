// cultos.go - Culto posts: an image in remote storage plus a Postgres row,
// kept consistent by sequencing upload-then-persist (create) and
// persist-then-delete-remote (update/delete) with best-effort compensating
// deletes on partial failure. The compensation never changes the HTTP
// status already decided for the client.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Culto is a published service post.
type Culto struct {
	ID         int64     `json:"id"`
	Titulo     string    `json:"titulo"`
	ImagemPath string    `json:"imagem_path"`
	PublicID   string    `json:"public_id"`
	CriadoEm   time.Time `json:"criado_em"`
}

type cultoStore interface {
	insert(ctx context.Context, titulo string, img MediaObject) error
	// imageHandle returns the deletion handle for a row, or "" when the
	// row does not exist.
	imageHandle(ctx context.Context, id int64) (string, error)
	// update touches exactly the supplied fields and reports rows affected.
	update(ctx context.Context, id int64, titulo *string, img *MediaObject) (int64, error)
	deleteRow(ctx context.Context, id int64) (int64, error)
	latest(ctx context.Context) (*Culto, error)
}

type pgCultoStore struct {
	db *sql.DB
}

func (s pgCultoStore) insert(ctx context.Context, titulo string, img MediaObject) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cultos (titulo, imagem_path, public_id) VALUES ($1, $2, $3)`,
		titulo, img.URL, img.Key)
	return err
}

func (s pgCultoStore) imageHandle(ctx context.Context, id int64) (string, error) {
	var handle string
	err := s.db.QueryRowContext(ctx,
		`SELECT public_id FROM cultos WHERE id = $1`, id).Scan(&handle)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return handle, nil
}

func (s pgCultoStore) update(ctx context.Context, id int64, titulo *string, img *MediaObject) (int64, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if titulo != nil {
		args = append(args, *titulo)
		sets = append(sets, fmt.Sprintf("titulo = $%d", len(args)))
	}
	if img != nil {
		args = append(args, img.URL)
		sets = append(sets, fmt.Sprintf("imagem_path = $%d", len(args)))
		args = append(args, img.Key)
		sets = append(sets, fmt.Sprintf("public_id = $%d", len(args)))
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE cultos SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s pgCultoStore) deleteRow(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cultos WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s pgCultoStore) latest(ctx context.Context) (*Culto, error) {
	var c Culto
	err := s.db.QueryRowContext(ctx,
		`SELECT id, titulo, imagem_path, public_id, criado_em
		   FROM cultos ORDER BY criado_em DESC LIMIT 1`,
	).Scan(&c.ID, &c.Titulo, &c.ImagemPath, &c.PublicID, &c.CriadoEm)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// discardImage is the compensating action: best-effort removal of a remote
// object, detached from request cancellation, errors swallowed.
func (s *Server) discardImage(ctx context.Context, key string) {
	_ = s.images.Remove(context.WithoutCancel(ctx), key)
}

// uploadFormImage pulls the "imagem" part out of a multipart form, validates
// it and stores it remotely. Returns nil when the part is absent.
func (s *Server) uploadFormImage(r *http.Request) (*MediaObject, error) {
	file, header, err := r.FormFile("imagem")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, ValidationError{msg: "imagem form field is malformed"}
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if err := ValidateImage(contentType, header.Size); err != nil {
		return nil, err
	}

	obj, err := s.images.Upload(r.Context(), file, header.Filename, contentType, header.Size)
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// handleCreateCulto handles POST /cultos.
func (s *Server) handleCreateCulto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes + 1<<20); err != nil {
		http.Error(w, "bad multipart form", http.StatusBadRequest)
		return
	}

	img, err := s.uploadFormImage(r)
	if err != nil {
		s.writeUploadError(w, r, err)
		return
	}
	if img == nil {
		http.Error(w, "imagem is required", http.StatusBadRequest)
		return
	}

	titulo := strings.TrimSpace(r.FormValue("titulo"))
	if titulo == "" {
		// The image is already remote at this point and stays there;
		// matches the historical create-path behavior.
		http.Error(w, "titulo is required", http.StatusBadRequest)
		return
	}

	if err := s.cultos.insert(r.Context(), titulo, *img); err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=culto_insert_failed err=%v", rid, err)
		s.discardImage(r.Context(), img.Key)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "culto criado"})
}

// handleUpdateCulto handles PUT /cultos/{id}.
func (s *Server) handleUpdateCulto(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes + 1<<20); err != nil {
		http.Error(w, "bad multipart form", http.StatusBadRequest)
		return
	}

	var titulo *string
	if v := strings.TrimSpace(r.FormValue("titulo")); v != "" {
		titulo = &v
	}

	hasImagePart := false
	if r.MultipartForm != nil && len(r.MultipartForm.File["imagem"]) > 0 {
		hasImagePart = true
	}
	if titulo == nil && !hasImagePart {
		http.Error(w, "nothing to update: send titulo and/or imagem", http.StatusBadRequest)
		return
	}

	// Capture the old handle before touching the row; a missing row simply
	// yields no handle.
	var oldHandle string
	if hasImagePart {
		oldHandle, err = s.cultos.imageHandle(r.Context(), id)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=culto_lookup_failed id=%d err=%v", rid, id, err)
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}

	var img *MediaObject
	if hasImagePart {
		img, err = s.uploadFormImage(r)
		if err != nil {
			s.writeUploadError(w, r, err)
			return
		}
	}

	affected, err := s.cultos.update(r.Context(), id, titulo, img)
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=culto_update_failed id=%d err=%v", rid, id, err)
		if img != nil {
			s.discardImage(r.Context(), img.Key)
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if affected == 0 {
		// Nothing to attach the new image to.
		if img != nil {
			s.discardImage(r.Context(), img.Key)
		}
		http.Error(w, "culto not found", http.StatusNotFound)
		return
	}

	// Only after the row committed is the old object safe to drop.
	if img != nil && oldHandle != "" {
		s.discardImage(r.Context(), oldHandle)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "culto atualizado"})
}

// handleDeleteCulto handles DELETE /cultos/{id}.
func (s *Server) handleDeleteCulto(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	handle, err := s.cultos.imageHandle(r.Context(), id)
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=culto_lookup_failed id=%d err=%v", rid, id, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	affected, err := s.cultos.deleteRow(r.Context(), id)
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=culto_delete_failed id=%d err=%v", rid, id, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if affected == 0 {
		http.Error(w, "culto not found", http.StatusNotFound)
		return
	}

	if handle != "" {
		s.discardImage(r.Context(), handle)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "culto removido"})
}

// handleLatestCulto handles GET /cultos/ultimo. Returns JSON null when no
// post has been published yet.
func (s *Server) handleLatestCulto(w http.ResponseWriter, r *http.Request) {
	c, err := s.cultos.latest(r.Context())
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=culto_latest_failed err=%v", rid, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// writeUploadError maps image upload failures onto the error taxonomy:
// precondition violations are the client's fault, everything else is a 500.
func (s *Server) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var ve ValidationError
	if errors.As(err, &ve) {
		http.Error(w, ve.Error(), http.StatusBadRequest)
		return
	}
	rid := RequestIDFromContext(r.Context())
	log.Printf("rid=%s msg=image_upload_failed err=%v", rid, err)
	http.Error(w, "server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
