package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Skufu/SymptomDx/internal/model"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func init() {
	gin.SetMode(gin.TestMode)
}

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	tok, err := Sign(claims, key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tok
}

func newRouter(cfg Config, roles ...string) *gin.Engine {
	r := gin.New()
	r.Use(Middleware(cfg))
	handlers := []gin.HandlerFunc{}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		id, ok := FromContext(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "identity": id})
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAnonymous(t *testing.T) {
	rec := do(newRouter(Config{SigningKey: testSigningKey}), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct{ OK bool }
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.OK {
		t.Fatal("anonymous request should carry no identity")
	}
}

func TestMiddlewareValidToken(t *testing.T) {
	tok := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Name:             "Ana",
		Email:            "ana@example.com",
		Role:             "Patient",
	}, testSigningKey)

	rec := do(newRouter(Config{SigningKey: testSigningKey}, model.RolePatient), "Bearer "+tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Identity Identity `json:"identity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Identity.Email != "ana@example.com" || body.Identity.Role != model.RolePatient {
		t.Fatalf("unexpected identity: %+v", body.Identity)
	}
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	expired := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
		Role:             model.RoleDoctor,
	}, testSigningKey)
	wrongKey := createTestToken(t, Claims{Role: model.RoleDoctor}, []byte("other-key"))

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(newRouter(Config{SigningKey: testSigningKey}), tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := newRouter(Config{SigningKey: testSigningKey}, model.RoleDoctor)

	if rec := do(r, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}

	patient := createTestToken(t, Claims{Role: model.RolePatient}, testSigningKey)
	if rec := do(r, "Bearer "+patient); rec.Code != http.StatusForbidden {
		t.Fatalf("patient: expected 403, got %d", rec.Code)
	}

	doctor := createTestToken(t, Claims{Role: model.RoleDoctor}, testSigningKey)
	if rec := do(r, "Bearer "+doctor); rec.Code != http.StatusOK {
		t.Fatalf("doctor: expected 200, got %d", rec.Code)
	}
}

func TestDevModeGrantsAdmin(t *testing.T) {
	r := newRouter(Config{Dev: true}, model.RoleAdmin)
	if rec := do(r, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected dev identity to pass admin check, got %d", rec.Code)
	}
}
