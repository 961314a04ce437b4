package session

import (
	"fmt"
	"strconv"
	"time"

	"laundrmate/internal/domain"
	"laundrmate/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// FromToken builds a session from a backend-issued JWT. The signature is not
// verified: the client only reads the role and id claims for UX decisions;
// the backend stays the authority on every request.
func FromToken(token string) (*models.Session, error) {
	if token == "" {
		return nil, domain.Authf("empty token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: parse token: %v", domain.ErrAuth, err)
	}

	roleClaim, _ := claims["role"].(string)
	role, ok := models.ParseRole(roleClaim)
	if !ok {
		return nil, domain.Authf("token has unknown role %q", roleClaim)
	}

	s := &models.Session{
		Token:     token,
		Role:      role,
		UserID:    userIDClaim(claims),
		CreatedAt: time.Now(),
	}
	if email, ok := claims["email"].(string); ok {
		s.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time.UTC()
	}
	return s, nil
}

func userIDClaim(claims jwt.MapClaims) int64 {
	for _, name := range []string{"id", "userId", "sub"} {
		switch v := claims[name].(type) {
		case float64:
			return int64(v)
		case string:
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				return id
			}
		}
	}
	return 0
}
