package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	enabled := Middleware(Config{Enabled: true, Token: "s3cret"})(ok)
	disabled := Middleware(Config{})(ok)

	tests := []struct {
		name    string
		handler http.Handler
		path    string
		header  string
		want    int
	}{
		{"disabled", disabled, "/api/v1/optimal-times", "", http.StatusNoContent},
		{"missing header", enabled, "/api/v1/optimal-times", "", http.StatusUnauthorized},
		{"wrong token", enabled, "/api/v1/optimal-times", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", enabled, "/api/v1/optimal-times", "Basic s3cret", http.StatusUnauthorized},
		{"bare token", enabled, "/api/v1/optimal-times", "s3cret", http.StatusUnauthorized},
		{"empty bearer", enabled, "/api/v1/optimal-times", "Bearer ", http.StatusUnauthorized},
		{"valid", enabled, "/api/v1/optimal-times", "Bearer s3cret", http.StatusNoContent},
		{"lowercase scheme", enabled, "/api/v1/target-sessions", "bearer s3cret", http.StatusNoContent},
		{"healthz exempt", enabled, "/healthz", "", http.StatusNoContent},
		{"metrics exempt", enabled, "/metrics", "", http.StatusNoContent},
		{"openapi exempt", enabled, "/openapi.yaml", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			tt.handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if w.Code == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}
