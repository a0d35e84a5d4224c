package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const traceIDKey contextKey = "traceID"

// TraceID присваивает каждому запросу идентификатор трассировки и
// возвращает его клиенту в заголовке X-Trace-Id.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-Id")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		w.Header().Set("X-Trace-Id", traceID)

		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTraceIDFromContext извлекает идентификатор трассировки из контекста запроса.
func GetTraceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceIDKey).(string)
	return id, ok
}
