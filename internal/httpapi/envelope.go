package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies; state documents are small.
const maxBodyBytes = 1 << 20

// envelope wraps every response. Exactly one of Data and Error is non-null.
type envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("encode response failed")
	}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data any) {
	h.writeJSON(w, status, envelope{Success: true, Data: data})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, envelope{Success: false, Error: &msg})
}

// writeDecodeError answers a failed decodeJSON: 413 when the body hit the
// size cap, 400 otherwise.
func (h *Handler) writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	h.writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
}

// decodeJSON reads a single JSON value from the body. Unknown fields are
// tolerated; trailing data is not.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}
