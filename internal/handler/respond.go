package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/escrowadmin-system/internal/middleware"
)

// apiError описывает тело ошибки в конверте ответа API.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope — единый конверт ответов API админ-панели.
type envelope struct {
	Data    any       `json:"data"`
	Error   *apiError `json:"error"`
	TraceID string    `json:"traceId,omitempty"`
}

func (h *Handler) writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	traceID, _ := middleware.GetTraceIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data, TraceID: traceID}); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	traceID, _ := middleware.GetTraceIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(envelope{
		Error:   &apiError{Code: code, Message: message},
		TraceID: traceID,
	})
	if err != nil {
		h.logger.Error("encode error response", zap.Error(err))
	}
}
