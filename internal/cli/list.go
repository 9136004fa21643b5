package cli

import (
	"github.com/spf13/cobra"

	"github.com/combatwarrior/academy/internal/academy"
	"github.com/combatwarrior/academy/internal/resource"
)

func newListCmd(a *app) *cobra.Command {
	var (
		page   int
		search string
		filter string
	)
	cmd := &cobra.Command{
		Use:     "list ENTITY [flags]",
		Aliases: []string{"ls"},
		Short:   "List one page of records",
		Long: `List one page of a back-office collection. Stats shown under the table cover
the whole collection, not just the page.

Entities: students, courses, achievements, badges, templates, certificates,
attendance, belts, fees, admissions, contacts.

The --filter value is matched against the collection's category field:
belt level for students, category for courses and achievements, rarity for
badges, type for templates, status for certificates, attendance, fees and
admissions, target belt for belts, and read (true or false) for contacts.

Examples:
  academyctl list students
  academyctl list students --filter green --search kim
  academyctl list fees --filter overdue -o json
  academyctl list courses --page 2`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := academy.Lookup(args[0])
			if err != nil {
				return err
			}
			c := a.controller(e)
			defer c.Close()

			v, err := c.List(cmd.Context(), page, resource.Filters{Search: search, Category: filter})
			if err != nil {
				return err
			}
			return a.out.printList(e, v)
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page to show")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Text to search for")
	cmd.Flags().StringVar(&filter, "filter", "", "Category filter, e.g. a belt level or status")
	return cmd
}
