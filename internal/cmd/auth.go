package cmd

import (
	"github.com/spf13/cobra"
	"github.com/workforce/tracker/pkg/service"
)

var (
	loginEmail    string
	loginPassword string
	logoutYes     bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Log in to and out of the HR portal",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login with email and password",
	Long:  "Authenticate with the HR portal. Missing values are prompted for.",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.Login(cmd.Context(), loginEmail, loginPassword)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.Logout(logoutYes)
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Display current authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.Me()
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
	logoutCmd.Flags().BoolVarP(&logoutYes, "yes", "y", false, "Skip confirmation")

	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(meCmd)
}
