package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"codehosp/internal/common/http/middleware"
	appErr "codehosp/pkg/errors"
)

const (
	testSecret = "unit-test-secret"
	testIssuer = "codehosp"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return raw
}

func accessClaims(subject string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  subject,
		"iss":  testIssuer,
		"typ":  "access",
		"role": "researcher",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func newAuthRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	verifier := middleware.NewTokenVerifier(testSecret, testIssuer)
	router := gin.New()
	router.GET("/protected", middleware.AuthMiddleware(verifier, roles...), func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func doRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	t.Parallel()
	router := newAuthRouter()
	token := signToken(t, accessClaims("42"))

	w := doRequest(router, token)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", w.Code, w.Body.String())
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	t.Parallel()
	router := newAuthRouter()

	w := doRequest(router, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	t.Parallel()
	router := newAuthRouter()
	claims := accessClaims("42")
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	w := doRequest(router, signToken(t, claims))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsWrongIssuer(t *testing.T) {
	t.Parallel()
	router := newAuthRouter()
	claims := accessClaims("42")
	claims["iss"] = "someone-else"

	w := doRequest(router, signToken(t, claims))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	t.Parallel()
	router := newAuthRouter()
	claims := accessClaims("42")
	claims["typ"] = "refresh"

	w := doRequest(router, signToken(t, claims))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestAuthMiddlewareRoleCheck(t *testing.T) {
	t.Parallel()
	router := newAuthRouter("admin")

	w := doRequest(router, signToken(t, accessClaims("42")))
	if w.Code != http.StatusForbidden {
		t.Fatalf("researcher should be rejected on admin route, got %d", w.Code)
	}

	claims := accessClaims("42")
	claims["role"] = "admin"
	w = doRequest(router, signToken(t, claims))
	if w.Code != http.StatusOK {
		t.Fatalf("admin should pass, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestVerifyRejectsNonNumericSubject(t *testing.T) {
	t.Parallel()
	verifier := middleware.NewTokenVerifier(testSecret, testIssuer)
	token := signToken(t, accessClaims("not-a-number"))

	_, err := verifier.Verify(token)
	if appErr.GetCode(err) != appErr.TokenInvalid {
		t.Fatalf("unexpected error: %v", err)
	}
}
