package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// parseDate reads a required YYYY-MM-DD query parameter
func parseDate(r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(contracts.DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
