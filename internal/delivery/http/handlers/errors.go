package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/response"
	"github.com/LavaJover/shvark-payment-service/internal/domain"
)

// StatusCode maps an operation error to its HTTP status.
func StatusCode(err error) int {
	var (
		gwErr       *domain.GatewayError
		storeErr    *domain.StoreWriteError
		unmappedErr *domain.UnmappedStatusError
	)
	switch {
	case errors.Is(err, domain.ErrUnlinkedAccount):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadySettled), errors.Is(err, domain.ErrLockTimeout), errors.Is(err, domain.ErrChargeInFlight):
		return http.StatusConflict
	case errors.As(err, &unmappedErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &gwErr):
		return http.StatusBadGateway
	case errors.As(err, &storeErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, response.Envelope{Success: true, Data: data})
}

// writeError logs the failure with the endpoint and any gateway payload and
// answers with the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := StatusCode(err)

	attrs := []any{"endpoint", r.URL.Path, "status", status, "error", err}
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) && len(gwErr.Payload) > 0 {
		attrs = append(attrs, "payload", string(gwErr.Payload))
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", attrs...)
	} else {
		log.Warn("request rejected", attrs...)
	}

	writeJSON(w, status, response.Envelope{Success: false, Error: err.Error()})
}
