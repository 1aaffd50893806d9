package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeaderResolver(t *testing.T) {
	resolver := HeaderResolver{}

	tests := []struct {
		name      string
		userID    string
		userName  string
		role      string
		wantName  string
		wantError bool
	}{
		{
			name:     "all headers set",
			userID:   "alice",
			userName: "Alice Anders",
			role:     "qa.lead",
			wantName: "Alice Anders",
		},
		{
			name:     "name defaults to id",
			userID:   "bob",
			wantName: "bob",
		},
		{
			name:     "directory-style principal",
			userID:   "jane.doe@example.com",
			wantName: "jane.doe@example.com",
		},
		{
			name:      "missing user id",
			wantError: true,
		},
		{
			name:      "user id with spaces",
			userID:    "alice smith",
			wantError: true,
		},
		{
			name:      "user id starting with separator",
			userID:    ".alice",
			wantError: true,
		},
		{
			name:      "user id ending with separator",
			userID:    "alice-",
			wantError: true,
		},
		{
			name:   "single character id",
			userID: "a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/test", nil)
			if tt.userID != "" {
				r.Header.Set(UserIDHeader, tt.userID)
			}
			if tt.userName != "" {
				r.Header.Set(UserNameHeader, tt.userName)
			}
			if tt.role != "" {
				r.Header.Set(UserRoleHeader, tt.role)
			}

			s, err := resolver.Resolve(r)
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.UserID != tt.userID {
				t.Errorf("UserID = %q, want %q", s.UserID, tt.userID)
			}
			if tt.wantName != "" && s.UserName != tt.wantName {
				t.Errorf("UserName = %q, want %q", s.UserName, tt.wantName)
			}
			if s.Role != tt.role {
				t.Errorf("Role = %q, want %q", s.Role, tt.role)
			}
			if s.Service {
				t.Error("Service = true, want false for header-resolved sessions")
			}
		})
	}
}

func TestValidateUserID_TooLong(t *testing.T) {
	// 129 characters exceeds the 128-char max.
	long := "a" + strings.Repeat("b", 128)
	r := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	r.Header.Set(UserIDHeader, long)
	_, err := HeaderResolver{}.Resolve(r)
	if err == nil {
		t.Fatal("expected error for user id exceeding 128 chars")
	}
}

func TestValidateUserID_ExactlyMaxLength(t *testing.T) {
	id := "a" + strings.Repeat("b", 127)
	r := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	r.Header.Set(UserIDHeader, id)
	s, err := HeaderResolver{}.Resolve(r)
	if err != nil {
		t.Fatalf("unexpected error for 128-char user id: %v", err)
	}
	if s.UserID != id {
		t.Errorf("UserID = %q, want %q", s.UserID, id)
	}
}
