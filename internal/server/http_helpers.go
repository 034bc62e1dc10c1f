package server

import (
	"encoding/json"
	"io"
	"net/http"
)

// Every API body here is a small JSON document; cap reads so a misbehaving
// client cannot stream an unbounded one.
const maxBodyBytes = 64 << 10

func readJSON(body io.Reader, dest any) error {
	decoder := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
