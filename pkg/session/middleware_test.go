package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		role       string
		wantStatus int
		wantUser   string
	}{
		{
			name:       "valid headers reach the handler",
			userID:     "alice",
			role:       "qa.lead",
			wantStatus: http.StatusOK,
			wantUser:   "alice",
		},
		{
			name:       "missing identity rejected",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed identity rejected",
			userID:     "not a user",
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSession Session
			var handlerCalled bool
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				gotSession, _ = FromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			r := httptest.NewRequest(http.MethodGet, "/api/test", nil)
			if tt.userID != "" {
				r.Header.Set(UserIDHeader, tt.userID)
			}
			if tt.role != "" {
				r.Header.Set(UserRoleHeader, tt.role)
			}
			w := httptest.NewRecorder()

			Middleware(HeaderResolver{})(handler).ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				if handlerCalled {
					t.Error("handler was called despite rejected session")
				}
				var body map[string]string
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode error body: %v", err)
				}
				if body["error"] != "unauthorized" {
					t.Errorf("error = %q, want %q", body["error"], "unauthorized")
				}
				return
			}
			if !handlerCalled {
				t.Fatal("handler was not called")
			}
			if gotSession.UserID != tt.wantUser {
				t.Errorf("session UserID = %q, want %q", gotSession.UserID, tt.wantUser)
			}
			if gotSession.Role != tt.role {
				t.Errorf("session Role = %q, want %q", gotSession.Role, tt.role)
			}
		})
	}
}
