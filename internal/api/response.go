package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erazemk/stockledger/internal/imaging"
	"github.com/erazemk/stockledger/internal/model"
)

type errorBody struct {
	Error     string          `json:"error"`
	Kind      model.ErrorKind `json:"kind,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("encoding response")
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidQuantity, model.KindInvalidInput, model.KindInvalidReference:
		return http.StatusBadRequest
	case model.KindInsufficientStock, model.KindInvalidTransition,
		model.KindDuplicateCode, model.KindHasDependents, model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Domain errors keep their message;
// anything else is logged and hidden behind a generic 500.
func (d *deps) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, imaging.ErrUnsupported):
		jsonError(w, http.StatusBadRequest, "image must be JPEG or PNG")
		return
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	var de *model.Error
	if !errors.As(err, &de) {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("route", r.Pattern).Msg("request failed")
		d.Metrics.Failure("internal")
		jsonResponse(w, http.StatusInternalServerError, errorBody{Error: "internal error", Retryable: true})
		return
	}

	d.Metrics.Failure(string(de.Kind))
	if de.Kind == model.KindConflict {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("route", r.Pattern).Msg("write conflict")
		w.Header().Set("Retry-After", "1")
	}
	jsonResponse(w, statusFor(de.Kind), errorBody{
		Error:     de.Error(),
		Kind:      de.Kind,
		Retryable: de.Retryable(),
	})
}

// pathID parses the {id} path parameter, writing a 400 if it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter. Absent means 0.
func queryID(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Errorf(model.KindInvalidInput, "invalid %s", name)
	}
	return id, nil
}

type message struct {
	Message string `json:"message"`
}
