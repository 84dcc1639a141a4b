package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by game tokens. TeamID binds the session to one team;
// Role is "admin" for operational endpoints.
type Claims struct {
	TeamID uint   `json:"team_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

const (
	ContextTeamID = "team_id"
	ContextRole   = "role"
)

func parseToken(c *gin.Context, secret string) (*Claims, error) {
	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" || tokenString == authHeader {
		return nil, jwt.ErrTokenMalformed
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// AuthRequired validates the bearer token and sets the team identity.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseToken(c, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "valid bearer token required"})
			c.Abort()
			return
		}
		c.Set(ContextTeamID, claims.TeamID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// AdminRequired additionally requires the admin role.
func AdminRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseToken(c, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "valid bearer token required"})
			c.Abort()
			return
		}
		if claims.Role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			c.Abort()
			return
		}
		c.Set(ContextTeamID, claims.TeamID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// TeamID returns the authenticated team, or 0 when unauthenticated.
func TeamID(c *gin.Context) uint {
	v, ok := c.Get(ContextTeamID)
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}
