package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the back office",
		Long: `Sign in with an admin or instructor account. The token and profile are kept in
session.yaml next to the config file until "academyctl logout" or until the
server rejects the token.

Examples:
  academyctl login --email admin@combatwarrior.com --password admin123
  academyctl login   # prompts for both`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			var err error
			if email == "" {
				if email, err = a.prompt(cmd, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.prompt(cmd, "Password: "); err != nil {
					return err
				}
			}

			g := a.sessionGate()
			if err := g.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			u := g.Session().User
			if a.out.format != formatTable {
				return a.out.printValue(map[string]string{
					"status": "success",
					"user":   u.DisplayName,
					"email":  u.Email,
					"role":   string(u.Role),
				})
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "✓ Signed in as %s (%s)\n", displayName(u.DisplayName, u.Email), u.Role)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			g := a.sessionGate()
			g.Check()
			if err := g.Logout(); err != nil {
				return err
			}
			if a.out.format != formatTable {
				return a.out.printValue(map[string]string{"status": "success"})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

// prompt writes label to stderr and reads one line from the command input.
func (a *app) prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := a.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		return "", fmt.Errorf("no input for %q", strings.TrimSuffix(strings.TrimSpace(label), ":"))
	}
	return line, nil
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}
