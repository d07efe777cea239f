package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in with email and password. The password may come from EVOCTL_PASSWORD.

Examples:
  evoctl login --email dono@empresa.com.br
  EVOCTL_PASSWORD=... evoctl login --email admin@evolutech.com.br`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("EVOCTL_PASSWORD")
		}
		email = strings.TrimSpace(email)
		if email == "" {
			return fmt.Errorf("--email is required")
		}
		if password == "" {
			return fmt.Errorf("--password or EVOCTL_PASSWORD is required")
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		resp, err := e.backend.Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		store := e.session()
		defer store.Close()
		if err := store.Login(ctx, resp.Token, resp.User, resp.Company); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		snap := store.Snapshot()
		fmt.Fprintf(e.out, "Logged in as %s (%s)\n", snap.User.Email, snap.User.Role)
		fmt.Fprintf(e.out, "Landing: %s\n", store.RedirectPath())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		store := e.session()
		defer store.Close()
		return store.Logout(cmd.Context())
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Validate the stored token and show the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		store := e.session()
		defer store.Close()
		if err := store.Mount(cmd.Context()); err != nil {
			return err
		}

		snap := store.Snapshot()
		if !snap.IsAuthenticated {
			fmt.Fprintln(e.out, "Not logged in. Use 'evoctl login' to sign in.")
			return nil
		}
		u := snap.User
		fmt.Fprintf(e.out, "User:    %s <%s>\n", u.Name, u.Email)
		fmt.Fprintf(e.out, "Role:    %s\n", u.Role)
		switch {
		case snap.Company != nil:
			fmt.Fprintf(e.out, "Company: %s (%s)\n", snap.Company.Name, snap.Company.Slug)
		case u.TenantID != "":
			fmt.Fprintf(e.out, "Company: %s\n", u.TenantID)
		default:
			fmt.Fprintln(e.out, "Company: none")
		}
		fmt.Fprintf(e.out, "Landing: %s\n", store.RedirectPath())
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prefer EVOCTL_PASSWORD)")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
