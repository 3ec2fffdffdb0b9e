package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ridezon-backend/internal/models"
	"ridezon-backend/internal/services"
)

func TestValidateWebSocketToken(t *testing.T) {
	svc := services.NewUserService(nil, "test-secret")
	token, err := svc.GenerateJWT(&models.User{ID: "u-1", Email: "amina@example.com"})
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	userID, err := ValidateWebSocketToken(token, svc)
	if err != nil {
		t.Fatalf("ValidateWebSocketToken: %v", err)
	}
	if userID != "u-1" {
		t.Errorf("userID = %s, want u-1", userID)
	}

	if _, err := ValidateWebSocketToken("", svc); err == nil {
		t.Error("empty token should be rejected")
	}
	if _, err := ValidateWebSocketToken("not.a.token", svc); err == nil {
		t.Error("garbage token should be rejected")
	}
}

func TestAuthMiddleware(t *testing.T) {
	svc := services.NewUserService(nil, "test-secret")
	token, err := svc.GenerateJWT(&models.User{ID: "u-1", Email: "amina@example.com"})
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	var seenUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = GetUserID(r.Context())
	})
	handler := AuthMiddleware(svc)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid bearer token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"invalid token", "Bearer not.a.token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUserID = ""
			req := httptest.NewRequest(http.MethodGet, "/api/rides", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && seenUserID != "u-1" {
				t.Errorf("context user = %q, want u-1", seenUserID)
			}
			if tt.wantStatus != http.StatusOK && seenUserID != "" {
				t.Error("rejected requests must not reach the handler")
			}
		})
	}
}
