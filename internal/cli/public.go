package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/combatwarrior/academy/internal/academy"
	"github.com/combatwarrior/academy/internal/demostore"
	"github.com/combatwarrior/academy/internal/resource"
)

// demo opens the local store used instead of the API in demo mode.
func (a *app) demo() (*demostore.Store, error) {
	return demostore.Open(a.cfg.DemoPath())
}

func (a *app) modeNote(cmd *cobra.Command) {
	if a.cfg.Demo && a.out.format == formatTable {
		warnLabel.Fprintf(cmd.ErrOrStderr(), "Demo mode: using %s\n", a.cfg.DemoPath())
	}
}

// loadPayload reads a single record from filename into payload, converting
// values the way the forms do.
func loadPayload(e academy.Entity, filename string, payload any) error {
	records, err := loadRecords(filename)
	if err != nil {
		return err
	}
	if len(records) != 1 {
		return fmt.Errorf("%s must hold exactly one record, found %d", filename, len(records))
	}
	d, err := e.Draft("", records[0])
	if err != nil {
		return err
	}
	return d.Decode(payload)
}

// localView pages nothing: every record is on one page, with stats worked out
// the way the server would.
func localView[T any](items []T, stats map[string]any, filters resource.Filters) (resource.View[json.RawMessage], error) {
	v := resource.View[json.RawMessage]{Stats: stats, Filters: filters, Items: []json.RawMessage{}}
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return v, err
		}
		v.Items = append(v.Items, raw)
	}
	v.Pagination = resource.Pagination{CurrentPage: 1, TotalPages: 1, TotalItems: len(items), ItemsPerPage: max(len(items), 1)}
	return v, nil
}

// setManagedField changes one server-managed field of a record.
func (a *app) setManagedField(ctx context.Context, e academy.Entity, id, field string, value any) (json.RawMessage, error) {
	record, err := a.fetchRecord(ctx, e, id)
	if err != nil {
		return nil, err
	}
	if record, err = sjson.SetBytes(record, field, value); err != nil {
		return nil, err
	}
	c := a.controller(e)
	defer c.Close()
	return c.Update(ctx, id, record)
}

func (a *app) removePublic(cmd *cobra.Command, e academy.Entity, id string, yes bool, local func(string) error) error {
	if a.cfg.Demo {
		ok, err := a.confirmer(cmd, yes).Confirm(cmd.Context(), fmt.Sprintf("Delete %s %q? This cannot be undone.", e.Descriptor.ItemKey, id))
		if err != nil || !ok {
			warnLabel.Fprintln(cmd.ErrOrStderr(), "Delete cancelled.")
			return ErrAlreadyHandled
		}
		return local(id)
	}
	record, err := a.fetchRecord(cmd.Context(), e, id)
	if err != nil {
		return err
	}
	c := a.controller(e, resource.WithConfirmer[json.RawMessage](a.confirmer(cmd, yes)))
	defer c.Close()
	if err := c.Remove(cmd.Context(), id, recordLabel(e, record, id)); err != nil {
		if errors.Is(err, resource.ErrNotConfirmed) {
			warnLabel.Fprintln(cmd.ErrOrStderr(), "Delete cancelled.")
			return ErrAlreadyHandled
		}
		return err
	}
	return nil
}

func (a *app) printDone(cmd *cobra.Command, v map[string]any, format string, args ...any) error {
	if a.out.format != formatTable {
		return a.out.printValue(v)
	}
	okLabel.Fprintf(cmd.OutOrStdout(), "[OK] ")
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	return nil
}

func newAdmissionsCmd(a *app) *cobra.Command {
	e, _ := academy.Lookup("admissions")
	cmd := &cobra.Command{
		Use:     "admissions",
		Aliases: []string{"admission"},
		Short:   "Handle admission applications",
		Long: `Submit and review admission applications. Submitting needs no sign-in. In demo
mode ("academyctl config --demo") applications are kept in demo.json next to the
config file and no server is contacted.`,
	}

	var filename string
	submit := &cobra.Command{
		Use:   "submit -f FILENAME",
		Short: "Submit an application",
		Long: `Submit an application from a YAML or JSON file with firstName, lastName, email,
phone, dateOfBirth (YYYY-MM-DD), course and optionally experience and message.
Applicants must be at least 5 years old.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p academy.AdmissionPayload
			if err := loadPayload(e, filename, &p); err != nil {
				return err
			}
			a.modeNote(cmd)
			var adm academy.Admission
			if a.cfg.Demo {
				s, err := a.demo()
				if err != nil {
					return err
				}
				if adm, err = s.AddAdmission(p); err != nil {
					return err
				}
			} else {
				var err error
				if adm, err = academy.SubmitAdmission(cmd.Context(), a.gateway(), p); err != nil {
					return err
				}
			}
			return a.printDone(cmd, map[string]any{"submitted": true, "admission": adm},
				"Application received for %s %s (%s)", adm.FirstName, adm.LastName, adm.ID)
		},
	}
	submit.Flags().StringVarP(&filename, "filename", "f", "", "File holding the application")
	submit.MarkFlagRequired("filename")

	var status string
	list := &cobra.Command{
		Use:   "list [--status pending|approved|rejected]",
		Short: "List applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.modeNote(cmd)
			if !a.cfg.Demo {
				c := a.controller(e)
				defer c.Close()
				v, err := c.List(cmd.Context(), 1, resource.Filters{Category: status})
				if err != nil {
					return err
				}
				return a.out.printList(e, v)
			}
			s, err := a.demo()
			if err != nil {
				return err
			}
			all := s.Admissions("")
			stats := map[string]any{"total": len(all)}
			for _, st := range []string{demostore.StatusPending, demostore.StatusApproved, demostore.StatusRejected} {
				stats[st] = len(s.Admissions(st))
			}
			v, err := localView(s.Admissions(status), stats, resource.Filters{Category: status})
			if err != nil {
				return err
			}
			return a.out.printList(e, v)
		},
	}
	list.Flags().StringVar(&status, "status", "", "Only applications with this status")

	setStatus := &cobra.Command{
		Use:       "status ID pending|approved|rejected",
		Short:     "Approve or reject an application",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{demostore.StatusPending, demostore.StatusApproved, demostore.StatusRejected},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, st := args[0], args[1]
			switch st {
			case demostore.StatusPending, demostore.StatusApproved, demostore.StatusRejected:
			default:
				return demostore.ErrInvalidStatus
			}
			a.modeNote(cmd)
			if a.cfg.Demo {
				s, err := a.demo()
				if err != nil {
					return err
				}
				if err := s.SetAdmissionStatus(id, st); err != nil {
					return err
				}
			} else if _, err := a.setManagedField(cmd.Context(), e, id, "status", st); err != nil {
				return err
			}
			return a.printDone(cmd, map[string]any{"id": id, "status": st}, "Application %s is now %s", id, st)
		},
	}

	var yes bool
	remove := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.modeNote(cmd)
			err := a.removePublic(cmd, e, args[0], yes, func(id string) error {
				s, err := a.demo()
				if err != nil {
					return err
				}
				return s.DeleteAdmission(id)
			})
			if err != nil {
				return err
			}
			return a.printDone(cmd, map[string]any{"deleted": true, "id": args[0]}, "Deleted application %s", args[0])
		},
	}
	remove.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")

	cmd.AddCommand(submit, list, setStatus, remove)
	return cmd
}

func newContactsCmd(a *app) *cobra.Command {
	e, _ := academy.Lookup("contacts")
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"contact", "messages"},
		Short:   "Handle contact messages",
		Long: `Send and read contact messages. Sending needs no sign-in. In demo mode messages
are kept in demo.json next to the config file.`,
	}

	var filename string
	submit := &cobra.Command{
		Use:   "submit -f FILENAME",
		Short: "Send a contact message",
		Long: `Send a message from a YAML or JSON file with name, email, subject, message (at
least 10 characters) and optionally phone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p academy.ContactPayload
			if err := loadPayload(e, filename, &p); err != nil {
				return err
			}
			a.modeNote(cmd)
			var msg academy.Contact
			if a.cfg.Demo {
				s, err := a.demo()
				if err != nil {
					return err
				}
				if msg, err = s.AddContact(p); err != nil {
					return err
				}
			} else {
				var err error
				if msg, err = academy.SubmitContact(cmd.Context(), a.gateway(), p); err != nil {
					return err
				}
			}
			return a.printDone(cmd, map[string]any{"submitted": true, "contact": msg},
				"Message from %s received (%s)", msg.Name, msg.ID)
		},
	}
	submit.Flags().StringVarP(&filename, "filename", "f", "", "File holding the message")
	submit.MarkFlagRequired("filename")

	var unread bool
	list := &cobra.Command{
		Use:   "list [--unread]",
		Short: "List contact messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.modeNote(cmd)
			filters := resource.Filters{}
			if unread {
				filters.Category = "false"
			}
			if !a.cfg.Demo {
				c := a.controller(e)
				defer c.Close()
				v, err := c.List(cmd.Context(), 1, filters)
				if err != nil {
					return err
				}
				return a.out.printList(e, v)
			}
			s, err := a.demo()
			if err != nil {
				return err
			}
			stats := map[string]any{"total": len(s.Contacts(false)), "unread": len(s.Contacts(true))}
			v, err := localView(s.Contacts(unread), stats, filters)
			if err != nil {
				return err
			}
			return a.out.printList(e, v)
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "Only unread messages")

	read := &cobra.Command{
		Use:   "read ID",
		Short: "Mark a message as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			a.modeNote(cmd)
			if a.cfg.Demo {
				s, err := a.demo()
				if err != nil {
					return err
				}
				if err := s.MarkContactRead(id); err != nil {
					return err
				}
			} else if _, err := a.setManagedField(cmd.Context(), e, id, "read", true); err != nil {
				return err
			}
			return a.printDone(cmd, map[string]any{"id": id, "read": true}, "Message %s marked as read", id)
		},
	}

	var yes bool
	remove := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.modeNote(cmd)
			err := a.removePublic(cmd, e, args[0], yes, func(id string) error {
				s, err := a.demo()
				if err != nil {
					return err
				}
				return s.DeleteContact(id)
			})
			if err != nil {
				return err
			}
			return a.printDone(cmd, map[string]any{"deleted": true, "id": args[0]}, "Deleted message %s", args[0])
		},
	}
	remove.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")

	cmd.AddCommand(submit, list, read, remove)
	return cmd
}
