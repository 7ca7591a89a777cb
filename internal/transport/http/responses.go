package httptransport

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON body with the given status. Encoding failures are
// ignored; the status line is already on the wire.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// setCookies appends every cookie to the response.
func setCookies(w http.ResponseWriter, cks []*http.Cookie) {
	for _, ck := range cks {
		http.SetCookie(w, ck)
	}
}
