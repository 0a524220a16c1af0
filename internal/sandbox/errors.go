package sandbox

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

var (
	errNotFound = errors.New("not found")
	errConflict = errors.New("conflict")
	errInvalid  = errors.New("invalid")
)

// ErrorResponse is the backend's error body.
type ErrorResponse struct {
	Error string `json:"erro"`
}

// MessageResponse is the backend's confirmation body.
type MessageResponse struct {
	Message string `json:"mensagem"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// mapError translates a state error into its HTTP status. The wrapped
// message is what the client shows to the user.
func mapError(w http.ResponseWriter, err error) {
	var se *stateError
	if !errors.As(err, &se) {
		writeError(w, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}
	switch {
	case errors.Is(se.kind, errNotFound):
		writeError(w, http.StatusNotFound, se.msg)
	case errors.Is(se.kind, errConflict):
		writeError(w, http.StatusConflict, se.msg)
	default:
		writeError(w, http.StatusBadRequest, se.msg)
	}
}

type stateError struct {
	kind error
	msg  string
}

func (e *stateError) Error() string { return e.msg }
func (e *stateError) Unwrap() error { return e.kind }

func notFound(msg string) error { return &stateError{kind: errNotFound, msg: msg} }
func conflict(msg string) error { return &stateError{kind: errConflict, msg: msg} }
func invalid(msg string) error  { return &stateError{kind: errInvalid, msg: msg} }

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return 0, false
	}
	return id, true
}
