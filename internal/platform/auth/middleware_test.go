package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(testKey)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func newContext(authHeader string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	tok := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"processor"},
	})

	c, _ := newContext("Bearer " + tok)
	handler := func(c echo.Context) error {
		if got := UserIDFromContext(c); got != "user-1" {
			t.Errorf("expected subject user-1, got %q", got)
		}
		if roles := RolesFromContext(c); len(roles) != 1 || roles[0] != "processor" {
			t.Errorf("unexpected roles: %v", roles)
		}
		return okHandler(c)
	}

	if err := JWTMiddleware(testKey)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	expired := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.token"},
		{"expired token", "Bearer " + expired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newContext(tc.header)
			err := JWTMiddleware(testKey)(okHandler)(c)
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if httpErr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", httpErr.Code)
			}
		})
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := token.SignedString([]byte("other-key"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	c, _ := newContext("Bearer " + s)
	got := JWTMiddleware(testKey)(okHandler)(c)
	httpErr, ok := got.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", got)
	}
}

func TestRequireRole(t *testing.T) {
	c, _ := newContext("")
	c.Set(userRolesKey, []string{"reader"})

	if err := RequireRole("reader", "admin")(okHandler)(c); err != nil {
		t.Errorf("expected reader to pass, got %v", err)
	}

	c2, _ := newContext("")
	c2.Set(userRolesKey, []string{"reader"})
	err := RequireRole("admin")(okHandler)(c2)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	c, _ := newContext("")
	handler := func(c echo.Context) error {
		if UserIDFromContext(c) == "" {
			t.Error("expected dev identity to be set")
		}
		return okHandler(c)
	}
	if err := DevAuthMiddleware()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
