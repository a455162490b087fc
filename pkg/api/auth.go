package api

import (
	"context"

	"github.com/workforce/tracker/pkg/logger"
)

// Login authenticates user with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	logger.Debug("Attempting login", "email", email)

	req := LoginRequest{
		Email:    email,
		Password: password,
	}

	var loginResp LoginResponse
	if err := c.post(ctx, "/auth/login", req, &loginResp); err != nil {
		return nil, err
	}

	logger.Debug("Login successful", "role", loginResp.Role)
	return &loginResp, nil
}
