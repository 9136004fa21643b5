package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/combatwarrior/academy/internal/academy"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify CODE",
		Short: "Check a certificate's verification code",
		Long: `Check a certificate's verification code. No sign-in is needed; this is the same
lookup the public site offers.

Examples:
  academyctl verify CWA-2025-K7F3A9`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := academy.VerifyCertificate(cmd.Context(), a.gateway(), args[0])
			if err != nil {
				return err
			}
			if a.out.format != formatTable {
				return a.out.printValue(map[string]any{"valid": v.Valid, "certificate": v.Certificate})
			}

			w := cmd.OutOrStdout()
			if v.Valid {
				okLabel.Fprintln(w, "✓ Certificate is valid")
			} else {
				errorLabel.Fprintln(w, "✗ Certificate has been revoked")
			}
			cert := v.Certificate
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Code:\t%s\n", cert.VerificationCode)
			fmt.Fprintf(tw, "Student:\t%s\n", cert.StudentName)
			fmt.Fprintf(tw, "Title:\t%s\n", cert.Title)
			if cert.BeltLevel != "" {
				fmt.Fprintf(tw, "Belt:\t%s\n", cert.BeltLevel)
			}
			if !cert.IssueDate.IsZero() {
				fmt.Fprintf(tw, "Issued:\t%s\n", cert.IssueDate.Format("2 January 2006"))
			}
			fmt.Fprintf(tw, "Status:\t%s\n", cert.Status)
			return tw.Flush()
		},
	}
}
