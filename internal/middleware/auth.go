package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	authCookie  = "token"
	userContext = "auth_user"
)

// AuthUser is the authenticated caller.
type AuthUser struct {
	ID    string
	Email string
	Role  string
}

// Claims are the storefront's JWT claims. The subject is the user id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth issues and verifies HS256 tokens.
type JWTAuth struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTAuth(secret string, ttl time.Duration) *JWTAuth {
	return &JWTAuth{secret: []byte(secret), ttl: ttl}
}

// GenerateToken signs a token for the given user.
func (a *JWTAuth) GenerateToken(userID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken parses tokenString and returns the user it names.
func (a *JWTAuth) ValidateToken(tokenString string) (*AuthUser, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token")
	}

	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	return &AuthUser{ID: claims.Subject, Email: claims.Email, Role: role}, nil
}

// RequireAuth rejects requests without a valid bearer token or token cookie.
func (a *JWTAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString, _ = c.Cookie(authCookie)
		}
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "Login first to access this resource")
			return
		}

		user, err := a.ValidateToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Login first to access this resource")
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, fmt.Sprintf("Role (%s) is not allowed to access this resource", user.Role))
	}
}

// CurrentUser returns the caller set by RequireAuth.
func CurrentUser(c *gin.Context) (*AuthUser, bool) {
	v, ok := c.Get(userContext)
	if !ok {
		return nil, false
	}
	user, ok := v.(*AuthUser)
	return user, ok
}

// SetCurrentUser is used by tests and internal callers that authenticate
// by other means.
func SetCurrentUser(c *gin.Context, user *AuthUser) {
	c.Set(userContext, user)
	c.Set("user_id", user.ID)
	c.Set("user_email", user.Email)
	c.Set("user_role", user.Role)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
