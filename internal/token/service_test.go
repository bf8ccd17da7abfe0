package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hufs-wider/wider/internal/model"
)

var testSecret = []byte("test-secret-0123456789abcdef0123456789")

func newTestService(now time.Time) *Service {
	svc := NewService(Config{Secret: testSecret})
	svc.now = func() time.Time { return now }
	return svc
}

func TestIssue_ExtractUserID_RoundTrip(t *testing.T) {
	svc := NewService(Config{Secret: testSecret})

	tok, err := svc.Issue("alice")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	got, err := svc.ExtractUserID(tok)
	if err != nil {
		t.Fatalf("ExtractUserID returned error: %v", err)
	}
	if got != "alice" {
		t.Errorf("ExtractUserID() = %q, want %q", got, "alice")
	}
}

func TestIssue_ExpiresTenHoursAfterIssue(t *testing.T) {
	issuedAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(issuedAt)

	tok, err := svc.Issue("alice")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	exp, err := svc.ExtractExpiration(tok)
	if err != nil {
		t.Fatalf("ExtractExpiration returned error: %v", err)
	}
	if want := issuedAt.Add(10 * time.Hour); !exp.Equal(want) {
		t.Errorf("ExtractExpiration() = %v, want %v", exp, want)
	}
}

func TestIssue_EmptyUserID_ReturnsValidationError(t *testing.T) {
	svc := NewService(Config{Secret: testSecret})

	_, err := svc.Issue("  ")
	if !model.IsCode(err, model.ErrCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExtractUserID_AcceptsBearerPrefix(t *testing.T) {
	svc := NewService(Config{Secret: testSecret})
	tok, _ := svc.Issue("bob")

	plain, err := svc.ExtractUserID(tok)
	if err != nil {
		t.Fatalf("ExtractUserID(plain) returned error: %v", err)
	}
	prefixed, err := svc.ExtractUserID("Bearer " + tok)
	if err != nil {
		t.Fatalf("ExtractUserID(prefixed) returned error: %v", err)
	}
	if plain != prefixed {
		t.Errorf("prefixed result %q differs from plain %q", prefixed, plain)
	}
}

func TestExtractUserID_ExpiredToken_StillReturnsSubject(t *testing.T) {
	past := time.Now().Add(-TTL - time.Hour)
	tok, err := newTestService(past).Issue("carol")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	got, err := NewService(Config{Secret: testSecret}).ExtractUserID(tok)
	if err != nil {
		t.Fatalf("ExtractUserID on expired token returned error: %v", err)
	}
	if got != "carol" {
		t.Errorf("ExtractUserID() = %q, want %q", got, "carol")
	}
}

func TestExtractUserID_InvalidTokens(t *testing.T) {
	svc := NewService(Config{Secret: testSecret})
	other := NewService(Config{Secret: []byte("another-secret-0123456789abcdef")})
	foreign, _ := other.Issue("mallory")

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "mallory",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"空文字", ""},
		{"Bearerのみ", "Bearer "},
		{"形式不正", "not-a-jwt"},
		{"署名鍵が異なる", foreign},
		{"署名なし", noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ExtractUserID(tt.token)
			if !model.IsCode(err, model.ErrCodeInvalidToken) {
				t.Errorf("expected INVALID_TOKEN, got %v", err)
			}
		})
	}
}

func TestExtractUserID_MissingSubject_ReturnsInvalidToken(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	_, err = NewService(Config{Secret: testSecret}).ExtractUserID(tok)
	if !model.IsCode(err, model.ErrCodeInvalidToken) {
		t.Errorf("expected INVALID_TOKEN, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	svc := NewService(Config{Secret: testSecret})
	fresh, _ := svc.Issue("alice")

	expired, err := newTestService(time.Now().Add(-TTL - time.Second)).Issue("alice")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	tests := []struct {
		name     string
		token    string
		expected string
		want     bool
	}{
		{"有効なトークン", fresh, "alice", true},
		{"Bearer付きの有効なトークン", "Bearer " + fresh, "alice", true},
		{"subject不一致", fresh, "bob", false},
		{"有効期限切れ", expired, "alice", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Validate(tt.token, tt.expected)
			if err != nil {
				t.Fatalf("Validate returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate_MalformedToken_ReturnsErrorNotFalse(t *testing.T) {
	svc := NewService(Config{Secret: testSecret})

	ok, err := svc.Validate("garbage.token.value", "alice")
	if err == nil {
		t.Fatal("expected error for malformed token")
	}
	if ok {
		t.Error("Validate should not report success on error")
	}
	if !model.IsCode(err, model.ErrCodeInvalidToken) {
		t.Errorf("expected INVALID_TOKEN, got %v", err)
	}
}

func TestValidate_ExactExpiry_IsInvalid(t *testing.T) {
	issuedAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(issuedAt)
	tok, _ := svc.Issue("alice")

	svc.now = func() time.Time { return issuedAt.Add(TTL) }
	ok, err := svc.Validate(tok, "alice")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if ok {
		t.Error("token must be invalid at exactly exp")
	}
}

func TestNewService_CopiesSecret(t *testing.T) {
	secret := []byte(string(testSecret))
	svc := NewService(Config{Secret: secret})
	tok, _ := svc.Issue("alice")

	secret[0] = 'X'

	if _, err := svc.ExtractUserID(tok); err != nil {
		t.Fatalf("mutating the caller's slice must not affect the service: %v", err)
	}
}

func TestIssue_UsesHS256(t *testing.T) {
	svc := NewService(Config{Secret: testSecret})
	tok, _ := svc.Issue("alice")

	header := strings.SplitN(tok, ".", 2)[0]
	parsed, _, err := jwt.NewParser().ParseUnverified(tok, &jwt.RegisteredClaims{})
	if err != nil {
		t.Fatalf("ParseUnverified returned error: %v (header %s)", err, header)
	}
	if parsed.Method.Alg() != "HS256" {
		t.Errorf("alg = %q, want HS256", parsed.Method.Alg())
	}
}
