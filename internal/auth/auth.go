package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	identityKey = "identity"
	RoleAdmin   = "admin"
)

// ErrInvalidToken covers every rejected bearer token.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the authenticated customer, as asserted by the session token.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Claims is the session token payload issued by the auth service.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 session tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse validates tokenStr and returns the identity it asserts.
func (v *Verifier) Parse(tokenStr string) (*Identity, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("jwt secret not configured")
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Phone:  claims.Phone,
		Role:   claims.Role,
	}, nil
}

// Sign issues a token for id. Used by tests and local tooling.
func (v *Verifier) Sign(id Identity, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = id.UserID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:            id.Email,
		Name:             id.Name,
		Phone:            id.Phone,
		Role:             id.Role,
		RegisteredClaims: claims,
	})
	return token.SignedString(v.secret)
}

// Middleware rejects requests without a valid bearer token and stores the
// identity on the context.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token format"})
			return
		}
		id, err := v.Parse(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRole must run after Middleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := FromContext(c)
		if id == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if id.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// FromContext returns the identity set by Middleware, or nil.
func FromContext(c *gin.Context) *Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*Identity)
	return id
}
