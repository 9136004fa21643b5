package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/combatwarrior/academy/internal/academy"
	"github.com/combatwarrior/academy/internal/common/httpclient"
)

func newCreateCmd(a *app) *cobra.Command {
	var (
		filename     string
		ignoreErrors bool
	)
	cmd := &cobra.Command{
		Use:   "create ENTITY -f FILENAME [flags]",
		Short: "Create records from a file",
		Long: `Create one or more records from a YAML or JSON file. Separate records with
"---". Each record is checked before it is sent, with the same rules as the
back-office forms, and only valid records reach the server.

Values may reference the environment with {{ .ENV.NAME }}; a .env file in the
current directory is read first.

Examples:
  # Create a course
  academyctl create courses -f course.yaml

  # Create several students, carrying on past invalid ones
  academyctl create students -f intake.yaml --ignore-errors`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := academy.Lookup(args[0])
			if err != nil {
				return err
			}
			records, err := loadRecords(filename)
			if err != nil {
				return err
			}

			c := a.controller(e)
			defer c.Close()

			var statusValues []map[string]any
			defer func() { a.printStatus(cmd, statusValues, ignoreErrors) }()

			for i, rec := range records {
				d, err := e.Draft("", rec)
				if err == nil {
					c.OpenForm(d)
					var created json.RawMessage
					if created, err = c.Submit(cmd.Context(), e.NewPayload()); err == nil {
						id := gjson.GetBytes(created, "_id").String()
						statusValues = append(statusValues, map[string]any{
							"record":   i + 1,
							"created":  true,
							"id":       id,
							"location": e.Descriptor.Path + "/" + id,
							"name":     recordLabel(e, created, id),
						})
						continue
					}
					c.CancelForm()
				}
				if errors.Is(err, httpclient.ErrUnauthenticated) {
					return err
				}
				statusValues = append(statusValues, map[string]any{
					"record":  i + 1,
					"created": false,
					"name":    recordLabel(e, rec, ""),
					"error":   err.Error(),
					"details": errorDetails(err),
				})
				if !ignoreErrors {
					return ErrAlreadyHandled
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filename, "filename", "f", "", "File holding the records to create")
	cmd.MarkFlagRequired("filename")
	cmd.Flags().BoolVarP(&ignoreErrors, "ignore-errors", "i", false, "Ignore errors and continue with the next record")
	return cmd
}

// printStatus reports the outcome of a batch of creates or updates.
func (a *app) printStatus(cmd *cobra.Command, statusValues []map[string]any, ignoreErrors bool) {
	if len(statusValues) == 0 {
		return
	}
	if a.out.format != formatTable {
		a.out.printValue(statusValues)
		return
	}
	w := cmd.OutOrStdout()
	for _, status := range statusValues {
		if created, _ := status["created"].(bool); created {
			okLabel.Fprintf(w, "[OK] ")
			fmt.Fprintf(w, "Created: %s", status["location"])
			if name, _ := status["name"].(string); name != "" && name != status["id"] {
				fmt.Fprintf(w, " (%s)", name)
			}
			fmt.Fprintln(w)
			continue
		}
		ew := cmd.ErrOrStderr()
		if ignoreErrors {
			ew = w
		}
		errorLabel.Fprintf(ew, "[ERROR] ")
		fmt.Fprintf(ew, "record %v", status["record"])
		if name, _ := status["name"].(string); name != "" {
			fmt.Fprintf(ew, " (%s)", name)
		}
		fmt.Fprintf(ew, ": %s\n", status["error"])
		if details, _ := status["details"].([]string); len(details) > 1 {
			for _, d := range details {
				fmt.Fprintf(ew, "  - %s\n", d)
			}
		}
	}
}
