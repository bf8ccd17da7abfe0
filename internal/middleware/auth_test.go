package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hufs-wider/wider/internal/model"
)

// --- モック定義 ---

type mockTokenValidator struct {
	userID     string
	extractErr error
	valid      bool
	validErr   error
}

func (m *mockTokenValidator) ExtractUserID(_ string) (string, error) {
	if m.extractErr != nil {
		return "", m.extractErr
	}
	return m.userID, nil
}

func (m *mockTokenValidator) Validate(_ string, expected string) (bool, error) {
	if m.validErr != nil {
		return false, m.validErr
	}
	return m.valid && expected == m.userID, nil
}

var _ TokenValidator = (*mockTokenValidator)(nil)

// --- テスト ---

func TestAuthMiddleware_ValidToken_InjectsUserIDAndAuthorization(t *testing.T) {
	mw := NewAuthMiddleware(&mockTokenValidator{userID: "user-123", valid: true})

	var capturedUserID, capturedAuth string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUserID = userID
		capturedAuth = AuthorizationFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-123")
	}
	if capturedAuth != "Bearer abc" {
		t.Errorf("authorization = %q, want %q", capturedAuth, "Bearer abc")
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
		tokens *mockTokenValidator
	}{
		{name: "missing header", header: "", tokens: &mockTokenValidator{userID: "u", valid: true}},
		{name: "invalid token", header: "Bearer bad", tokens: &mockTokenValidator{extractErr: model.NewInvalidTokenError(errors.New("sig"))}},
		{name: "expired token", header: "Bearer old", tokens: &mockTokenValidator{userID: "u", valid: false}},
		{name: "validate error", header: "Bearer x", tokens: &mockTokenValidator{userID: "u", validErr: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthMiddleware(tt.tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != model.ErrCodeInvalidToken {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidToken)
			}
		})
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("expected error for context without user ID")
	}
	if got := AuthorizationFromContext(req.Context()); got != "" {
		t.Errorf("authorization = %q, want empty", got)
	}
}

func TestContextWithUserID_RoundTrip(t *testing.T) {
	ctx := ContextWithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "bob")
	got, err := UserIDFromContext(ctx)
	if err != nil || got != "bob" {
		t.Errorf("UserIDFromContext() = %q, %v; want bob, nil", got, err)
	}
}
