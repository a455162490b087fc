package service

import (
	"context"
	"fmt"

	"github.com/workforce/tracker/pkg/api"
	"github.com/workforce/tracker/pkg/auth"
	"github.com/workforce/tracker/pkg/client"
	"github.com/workforce/tracker/pkg/credentials"
	"github.com/workforce/tracker/pkg/hours"
	"github.com/workforce/tracker/pkg/logger"
	"github.com/workforce/tracker/pkg/output"
	"github.com/workforce/tracker/pkg/prompter"
)

type AuthService struct {
	prompt *prompter.Prompter
}

// NewAuthService creates a new auth service
func NewAuthService() *AuthService {
	return &AuthService{prompt: prompter.Default()}
}

// Login authenticates with email and password, prompting for whichever is
// empty, and stores the session
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	creds, err := credentials.Load()
	if err != nil {
		logger.Error("Failed to load credentials", "error", err)
		return err
	}

	if creds != nil && creds.IsValid() {
		output.PrintWarning("Already logged in as %s", creds.Email)
		confirm, err := s.prompt.Confirm("Continue with new login?")
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if email == "" {
		if email, err = s.prompt.String("Email: "); err != nil {
			return err
		}
	}
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if password == "" {
		if password, err = s.prompt.Password("Password: "); err != nil {
			return err
		}
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	client.ClearAuthToken()

	output.PrintInfo("Authenticating...")
	resp, err := api.Default().Login(ctx, email, password)
	if err != nil {
		return err
	}

	creds, err = auth.NewCredentials(email, resp)
	if err != nil {
		return err
	}
	if err := credentials.Save(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	client.SetAuthToken(creds.AccessToken)

	output.PrintSuccess("Login successful")
	output.PrintInfo("Logged in as %s (%s)", creds.Email, creds.Role)
	if creds.ForcePasswordChange {
		output.PrintWarning("Your password must be changed before you continue in the web portal")
	}
	return nil
}

// Logout removes the stored session. force skips the confirmation.
func (s *AuthService) Logout(force bool) error {
	creds, err := credentials.Load()
	if err != nil {
		logger.Error("Failed to load credentials", "error", err)
		return err
	}

	if creds == nil {
		output.PrintWarning("Not logged in")
		return nil
	}

	if !force {
		confirm, err := s.prompt.Confirm("Logout?")
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if err := credentials.Delete(); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	if err := snapshotCache().Clear(); err != nil {
		logger.Warn("Failed to clear snapshot cache", "error", err)
	}
	client.ClearAuthToken()

	output.PrintSuccess("Logged out successfully")
	return nil
}

// Me prints the stored session. It does not contact the server.
func (s *AuthService) Me() error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	creds := sess.creds

	expires := "never"
	if !creds.ExpiresAt.IsZero() {
		expires = creds.ExpiresAt.In(hours.IST).Format("2006-01-02 15:04:05 MST")
	}

	return output.PrintRecord("Current user", []output.Field{
		{Key: "User ID", Value: creds.UserID},
		{Key: "Email", Value: creds.Email},
		{Key: "Role", Value: creds.Role},
		{Key: "Session expires", Value: expires},
		{Key: "Password change required", Value: creds.ForcePasswordChange},
	}, meOutput{
		UserID:              creds.UserID,
		Email:               creds.Email,
		Role:                creds.Role,
		ExpiresAt:           creds.ExpiresAt,
		ForcePasswordChange: creds.ForcePasswordChange,
	})
}
