package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"codehosp/pkg/utils/contextkey"
	"codehosp/pkg/utils/response"

	pkgerrors "codehosp/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserInfo is the authenticated identity attached to the request.
type UserInfo struct {
	ID   int64
	Role string
}

// TokenVerifier validates HS256 access tokens issued by the account service.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Verify parses and validates a raw token and returns the user identity.
func (v *TokenVerifier) Verify(raw string) (UserInfo, error) {
	if raw == "" || len(v.secret) == 0 {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return UserInfo{}, pkgerrors.New(pkgerrors.TokenExpired)
		}
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if !parsed.Valid {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.TokenType != "access" {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return UserInfo{ID: userID, Role: claims.Role}, nil
}

// AuthMiddleware enforces JWT validation and role checks for protected routes.
func AuthMiddleware(verifier *TokenVerifier, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			response.AbortWithErrorCode(c, pkgerrors.ServiceUnavailable, "auth unavailable")
			return
		}

		token := extractBearerToken(c.GetHeader("Authorization"))
		info, err := verifier.Verify(token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		if len(roles) > 0 && !hasRole(info.Role, roles) {
			response.AbortWithErrorCode(c, pkgerrors.Forbidden, "insufficient role")
			return
		}

		c.Set("user_id", info.ID)
		c.Set("user_role", info.Role)
		ctx := context.WithValue(c.Request.Context(), contextkey.UserID, strconv.FormatInt(info.ID, 10))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func hasRole(role string, allowed []string) bool {
	for _, item := range allowed {
		if strings.EqualFold(role, item) {
			return true
		}
	}
	return false
}
