package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func newUpdateCmd(a *app) *cobra.Command {
	var (
		filename string
		sets     []string
		appends  []string
		drops    []string
	)
	cmd := &cobra.Command{
		Use:   "update ENTITY/ID [flags]",
		Short: "Change an existing record",
		Long: `Change an existing record. The current record is loaded, the changes are applied
on top of it, and the result is checked and saved in full.

Changes come from a file (-f), holding the top-level fields to replace, and from
--set, --append and --drop, applied in that order. --set takes field=value and
accepts dotted names for nested fields. --append and --drop edit list fields
such as a course's features or a template's fields.

Examples:
  # Promote a student's belt
  academyctl update students/0191b0c2-7d1e-7c4e-9a55-3f4c2a1b9e10 --set beltLevel=green

  # Add a feature to a course and drop the first one
  academyctl update courses/0191b0c2-... --append features="Sparring" --drop features=0

  # Replace fields from a file
  academyctl update fees/0191b0c2-... -f paid.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, id, err := parseRef(args[0])
			if err != nil {
				return err
			}
			if filename == "" && len(sets) == 0 && len(appends) == 0 && len(drops) == 0 {
				return fmt.Errorf("nothing to change; use -f, --set, --append or --drop")
			}

			record, err := a.fetchRecord(cmd.Context(), e, id)
			if err != nil {
				return err
			}
			if filename != "" {
				changes, err := loadRecords(filename)
				if err != nil {
					return err
				}
				if len(changes) != 1 {
					return fmt.Errorf("%s must hold exactly one record, found %d", filename, len(changes))
				}
				if record, err = overlay(record, changes[0]); err != nil {
					return err
				}
			}

			d, err := e.Draft(id, record)
			if err != nil {
				return err
			}
			for _, kv := range sets {
				name, value, err := splitPair(kv)
				if err != nil {
					return err
				}
				d.SetField(name, value)
			}
			for _, kv := range appends {
				name, value, err := splitPair(kv)
				if err != nil {
					return err
				}
				if err := d.Append(name, value); err != nil {
					return err
				}
			}
			for _, kv := range drops {
				name, value, err := splitPair(kv)
				if err != nil {
					return err
				}
				index, err := strconv.Atoi(value)
				if err != nil {
					return fmt.Errorf("--drop %s: index must be a number", kv)
				}
				if err := d.Remove(name, index); err != nil {
					return err
				}
			}

			c := a.controller(e)
			defer c.Close()
			c.OpenForm(d)
			updated, err := c.Submit(cmd.Context(), e.NewPayload())
			if err != nil {
				return err
			}

			if a.out.format != formatTable {
				return a.out.printRecord(updated)
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "[OK] ")
			fmt.Fprintf(cmd.OutOrStdout(), "Updated: %s/%s (%s)\n", e.Descriptor.Path, id, recordLabel(e, updated, id))
			return nil
		},
	}
	cmd.Flags().StringVarP(&filename, "filename", "f", "", "File holding the fields to replace")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set a field, as field=value (repeatable)")
	cmd.Flags().StringArrayVar(&appends, "append", nil, "Append to a list field, as list=value (repeatable)")
	cmd.Flags().StringArrayVar(&drops, "drop", nil, "Remove a list entry by position, as list=index (repeatable)")
	return cmd
}

// overlay replaces the top-level fields of record with those of changes.
func overlay(record, changes []byte) ([]byte, error) {
	var err error
	out := record
	gjson.ParseBytes(changes).ForEach(func(k, v gjson.Result) bool {
		out, err = sjson.SetRawBytes(out, sjsonKey(k.String()), []byte(v.Raw))
		return err == nil
	})
	return out, err
}

func sjsonKey(k string) string {
	return strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`).Replace(k)
}

func splitPair(kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return "", "", fmt.Errorf("invalid value %q. Expected <field>=<value>", kv)
	}
	return strings.TrimSpace(name), value, nil
}
