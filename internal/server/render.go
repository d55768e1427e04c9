package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"bloodlink/pkg/types"

	"github.com/goccy/go-json"
)

var errBadPayload = errors.New("invalid request payload")

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Service) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), handlerTimeout)
}

// writeJSON encodes before writing the status line so an unencodable value
// becomes a 500 instead of a truncated 200.
func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}

	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	return errors.Join(errBadPayload, err)
}

// writeError maps domain errors onto status codes and messages a client can
// act on.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var transitionErr *types.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: transitionErr.UserMessage(), Code: "invalid_transition"})
		return
	}

	switch {
	case errors.Is(err, types.ErrStatusConflict), errors.Is(err, types.ErrDonorConflict):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "this record was just changed by someone else, reload and try again", Code: "conflict"})
	case errors.Is(err, types.ErrRecordNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, types.ErrInvalidCoordinate),
		errors.Is(err, types.ErrInvalidDonationVolume),
		errors.Is(err, types.ErrInvalidRequest),
		errors.Is(err, types.ErrInvalidDonor),
		errors.Is(err, errBadPayload):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid"})
	default:
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("unhandled error")
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
