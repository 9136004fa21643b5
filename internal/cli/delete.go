package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/combatwarrior/academy/internal/resource"
)

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ENTITY/ID [flags]",
		Short: "Delete a record",
		Long: `Delete a record after confirming. Only admins may delete.

Examples:
  academyctl delete students/0191b0c2-7d1e-7c4e-9a55-3f4c2a1b9e10
  academyctl delete fees/0191b0c2-... --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, id, err := parseRef(args[0])
			if err != nil {
				return err
			}
			record, err := a.fetchRecord(cmd.Context(), e, id)
			if err != nil {
				return err
			}
			label := recordLabel(e, record, id)

			c := a.controller(e, resource.WithConfirmer[json.RawMessage](a.confirmer(cmd, yes)))
			defer c.Close()
			if err := c.Remove(cmd.Context(), id, label); err != nil {
				if errors.Is(err, resource.ErrNotConfirmed) {
					warnLabel.Fprintln(cmd.ErrOrStderr(), "Delete cancelled.")
					return ErrAlreadyHandled
				}
				return err
			}

			if a.out.format != formatTable {
				return a.out.printValue(map[string]any{"deleted": true, "id": id, "name": label})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted %s/%s (%s)\n", e.Descriptor.Path, id, label)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}
