package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dreschagin/order-service/internal/interfaces/http/middleware"
	"github.com/dreschagin/order-service/pkg/logger"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	maxBodyBytes = 1 << 20
)

var errInvalidID = errors.New("id must be a positive integer")

// envelope is the body of every API response.
type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	middleware.WriteJSON(w, status, envelope{Status: statusSuccess, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	middleware.WriteJSON(w, status, envelope{Status: statusError, Message: message})
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// requestLogger returns a logger carrying the request ID when one is set.
func requestLogger(base *logger.Logger, r *http.Request) *logger.Logger {
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return base.With("request_id", id)
	}
	return base
}
