package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"voting-service/internal/models"
	"voting-service/internal/service"
	"voting-service/internal/session"
	"voting-service/internal/util"
	"voting-service/internal/voting"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

var errInternal = errors.New("internal error")

func respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	util.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	// Only admission and auth errors travel verbatim; everything else is
	// generic to the caller and detailed in the event log.
	if statusCode >= http.StatusInternalServerError {
		err = errInternal
	}
	respondWithJSON(w, statusCode, errorResponse(err, message))
}

// getStatusCode determines the appropriate HTTP status code for an error
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, voting.ErrElectionNotFound),
		errors.Is(err, voting.ErrCandidateNotFound):
		return http.StatusNotFound
	case errors.Is(err, voting.ErrAlreadyVoted),
		errors.Is(err, voting.ErrElectionNotActive),
		errors.Is(err, voting.ErrElectionNotStarted),
		errors.Is(err, voting.ErrElectionEnded):
		return http.StatusConflict
	case errors.Is(err, voting.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, voting.ErrApartmentSizeRequired):
		return http.StatusPreconditionFailed
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, session.ErrInvalidSession),
		errors.Is(err, session.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidElection),
		errors.Is(err, models.ErrTotalAreaRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
