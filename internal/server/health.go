package server

import "net/http"

// handleHealth is a liveness probe only; it does not touch the database or
// the media host.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
