package cli

import (
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ENTITY/ID",
		Short: "Show one record",
		Long: `Show every field of one record. Nested fields are printed with dotted names.

Examples:
  academyctl get students/0191b0c2-7d1e-7c4e-9a55-3f4c2a1b9e10
  academyctl get certificates/0191b0c2-... -o yaml`,
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
			return a.out.printRecord(record)
		},
	}
}
