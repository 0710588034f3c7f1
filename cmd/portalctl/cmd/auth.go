package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.pilab.hu/portal/cmd/portalctl/config"
	"go.pilab.hu/portal/domain"
)

var stdin = bufio.NewReader(os.Stdin)

func prompt(label string) string {
	fmt.Fprint(os.Stderr, label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func confirm(label string) bool {
	answer := strings.ToLower(prompt(label + " (yes/no): "))
	return answer == "y" || answer == "yes"
}

// flagOrPrompt returns the flag value, asking for it when unset.
func flagOrPrompt(cmd *cobra.Command, flag, label string) string {
	v, _ := cmd.Flags().GetString(flag)
	if v == "" {
		v = prompt(label)
	}
	return v
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a portal account",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := domain.SignupRequest{
			FirstName: flagOrPrompt(cmd, "first-name", "First name: "),
			LastName:  flagOrPrompt(cmd, "last-name", "Last name: "),
			Email:     flagOrPrompt(cmd, "email", "Email: "),
		}
		req.Password, _ = cmd.Flags().GetString("password")
		req.ConfirmPassword = req.Password
		if req.Password == "" {
			var err error
			if req.Password, err = promptPassword("Password: "); err != nil {
				return err
			}
			if req.ConfirmPassword, err = promptPassword("Confirm password: "); err != nil {
				return err
			}
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.portal.Sessions.Signup(cmd.Context(), req); err != nil {
			return err
		}
		newPrinter().Success("Account created for %s. Run '%s login' to sign in.", req.Email, config.AppName)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and save the session for the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		if s.cur.LoggedIn() {
			fmt.Fprintf(os.Stderr, "Already logged in to context '%s' as %s.\n", s.cur.Name, s.cur.Email)
			if !confirm("Do you want to log in again?") {
				newPrinter().Info("Login cancelled.")
				return nil
			}
		}

		email := flagOrPrompt(cmd, "email", "Email: ")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			if password, err = promptPassword("Password: "); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		if _, err := s.portal.Sessions.Login(ctx, email, password); err != nil {
			return err
		}
		s.cur.Email = email
		s.cur.SetHTTPCookies(s.portal.Client.Cookies())
		if err := config.SaveConfig(); err != nil {
			return fmt.Errorf("failed to save session to config: %w", err)
		}

		name := email
		if err := s.portal.Sessions.LoadOwnProfile(ctx); err == nil {
			if p := s.portal.State.Snapshot().Profile; p != nil {
				name = p.FullName()
			}
		}
		newPrinter().Success("Logged in as %s (context '%s').", name, s.cur.Name)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session of the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		out := newPrinter()
		if !s.cur.LoggedIn() {
			out.Info("Not logged in.")
			return nil
		}

		logoutErr := s.portal.Sessions.Logout(cmd.Context())
		if logoutErr != nil {
			out.Warn("Server logout failed: %s. Clearing the local session anyway.", message(logoutErr))
		}
		s.cur.ClearSession()
		if err := config.SaveConfig(); err != nil {
			return fmt.Errorf("failed to clear session from config: %w", err)
		}
		out.Success("Logged out from context '%s'.", s.cur.Name)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user's profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			u := s.portal.State.Snapshot().Profile
			if u == nil {
				return fmt.Errorf("profile is not available")
			}
			roles := make([]string, 0, len(u.Roles))
			for _, r := range u.Roles {
				roles = append(roles, string(r))
			}
			return newPrinter().Result(u, []string{"Name", "Email", "Status", "Roles"}, [][]string{
				{u.FullName(), u.Email, string(u.Status), strings.Join(roles, ",")},
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)

	signupCmd.Flags().String("first-name", "", "first name")
	signupCmd.Flags().String("last-name", "", "last name")
	signupCmd.Flags().String("email", "", "email address")
	signupCmd.Flags().String("password", "", "password (prompted when omitted)")

	loginCmd.Flags().String("email", "", "email address")
	loginCmd.Flags().String("password", "", "password (prompted when omitted)")
}
