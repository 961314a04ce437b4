package gateway

import (
	"context"
	"net/http"
	"strings"

	"laundrmate/internal/domain"
	"laundrmate/internal/models"
	"laundrmate/internal/session"
)

// Login exchanges credentials for a token and decodes it into a session.
// The session is returned, not activated.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return nil, domain.Validationf("email and password are required")
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   creds,
	}, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, domain.Authf("login: no token in response")
	}

	s, err := session.FromToken(out.Token)
	if err != nil {
		return nil, err
	}
	if s.Email == "" {
		s.Email = creds.Email
	}
	return s, nil
}

func (c *Client) Register(ctx context.Context, reg models.Registration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		return domain.Validationf("name, email and password are required")
	}
	role, ok := models.ParseRole(string(reg.Role))
	if !ok {
		return domain.Validationf("role must be user or owner")
	}
	reg.Role = role

	return c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "/api/auth/register",
		body:   reg,
	}, nil)
}
