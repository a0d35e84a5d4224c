package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTraceID_GeneratesWhenMissing(t *testing.T) {
	var fromContext string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext, _ = GetTraceIDFromContext(r.Context())
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	TraceID(next).ServeHTTP(w, r)

	if fromContext == "" {
		t.Fatalf("trace id not in context")
	}
	if got := w.Result().Header.Get("X-Trace-Id"); got != fromContext {
		t.Fatalf("header trace id = %q, context trace id = %q", got, fromContext)
	}
}

func TestTraceID_KeepsIncoming(t *testing.T) {
	var fromContext string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext, _ = GetTraceIDFromContext(r.Context())
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Trace-Id", "trace-123")

	TraceID(next).ServeHTTP(w, r)

	if fromContext != "trace-123" {
		t.Fatalf("trace id = %q, want trace-123", fromContext)
	}
}
