package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/combatwarrior/academy/internal/academy"
	"github.com/combatwarrior/academy/internal/common/httpclient"
	"github.com/combatwarrior/academy/internal/resource"
	"github.com/combatwarrior/academy/internal/session/gate"
)

const searchHelp = `Type text to search. Commands: :page N, :next, :prev, :filter VALUE, :clear, :quit`

func newSearchCmd(a *app) *cobra.Command {
	var (
		filter string
		quiet  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "search ENTITY [flags]",
		Short: "Search a collection interactively",
		Long: `Search a collection as you type. Each line read replaces the search text and the
list is reloaded once input has been quiet for a moment, so pasted or piped
lines only query for the last one. When input ends, a pending search runs
before exiting.

If the session ends while searching, the last results stay on screen and you
are asked to sign in again.

` + searchHelp + `

Examples:
  academyctl search students
  academyctl search students --filter black
  printf 'kim\n' | academyctl search students -o json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := academy.Lookup(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			s := &searchSession{a: a, e: e, cmd: cmd}
			c := a.controller(e,
				resource.WithQuietPeriod[json.RawMessage](quiet),
				resource.OnChange(s.show),
			)
			defer c.Close()

			g := a.sessionGate()
			if err := g.Require(); err != nil {
				return err
			}
			stopWatch := g.Watch(ctx)
			defer stopWatch()
			g.OnChange(func(st gate.State) {
				if st == gate.StateUnauthenticated && !s.needLogin.Swap(true) {
					s.notice(fmt.Sprintf("Session ended: %s. Press Enter to sign in; the last results are kept.", g.Reason()))
				}
			})

			s.notice(searchHelp)
			if _, err := c.List(ctx, 1, resource.Filters{Category: filter}); err != nil {
				if errors.Is(err, httpclient.ErrUnauthenticated) {
					return err
				}
			}
			return s.run(ctx, c, g)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Initial category filter")
	cmd.Flags().DurationVar(&quiet, "quiet-period", resource.DefaultQuietPeriod, "How long input must be idle before searching")
	return cmd
}

type searchSession struct {
	a   *app
	e   academy.Entity
	cmd *cobra.Command

	mu        sync.Mutex // serialises output from timer goroutines
	needLogin atomic.Bool
}

func (s *searchSession) run(ctx context.Context, c *resource.Controller[json.RawMessage], g *gate.Gate) error {
	for {
		if s.needLogin.Swap(false) {
			if err := s.relogin(ctx, c, g); err != nil {
				return err
			}
			continue
		}
		line, readErr := s.a.in.ReadString('\n')
		if s.needLogin.Swap(false) {
			if readErr != nil {
				return httpclient.ErrUnauthenticated
			}
			if err := s.relogin(ctx, c, g); err != nil {
				return err
			}
			continue
		}
		line = strings.TrimSpace(line)
		if line != "" {
			quit, err := s.handle(ctx, c, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				return readErr
			}
			c.Flush()
			return nil
		}
	}
}

// handle applies one line of input. It reports whether the user asked to quit.
func (s *searchSession) handle(ctx context.Context, c *resource.Controller[json.RawMessage], line string) (bool, error) {
	cur := c.View()
	if !strings.HasPrefix(line, ":") {
		c.Search(ctx, resource.Filters{Search: line, Category: cur.Filters.Category})
		return false, nil
	}

	command, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "q", "quit", "exit":
		return true, nil
	case "clear":
		c.Search(ctx, resource.Filters{})
	case "filter":
		c.Search(ctx, resource.Filters{Search: cur.Filters.Search, Category: arg})
	case "page", "next", "prev":
		// page through what was last typed, not what was last loaded
		c.Flush()
		cur = c.View()
		page := cur.Pagination.CurrentPage
		switch command {
		case "next":
			page++
		case "prev":
			page--
		default:
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				s.notice("usage: :page N")
				return false, nil
			}
			page = n
		}
		if page < 1 || page > max(cur.Pagination.TotalPages, 1) {
			s.notice(fmt.Sprintf("no page %d; there are %d", page, max(cur.Pagination.TotalPages, 1)))
			return false, nil
		}
		if _, err := c.List(ctx, page, cur.Filters); errors.Is(err, httpclient.ErrUnauthenticated) && !s.needLogin.Swap(true) {
			s.notice("Session ended. Sign in to continue; the last results are kept.")
		}
	case "help":
		s.notice(searchHelp)
	default:
		s.notice(fmt.Sprintf("unknown command :%s", command))
	}
	return false, nil
}

// relogin asks for credentials while the last rows stay in the view, then
// shows them again and reloads.
func (s *searchSession) relogin(ctx context.Context, c *resource.Controller[json.RawMessage], g *gate.Gate) error {
	for {
		email, err := s.a.prompt(s.cmd, "Email: ")
		if err != nil {
			return httpclient.ErrUnauthenticated.Err(err)
		}
		password, err := s.a.prompt(s.cmd, "Password: ")
		if err != nil {
			return httpclient.ErrUnauthenticated.Err(err)
		}
		if err := g.Login(ctx, email, password); err != nil {
			s.notice(err.Error())
			continue
		}
		break
	}
	s.show(c.View())
	if err := c.Refresh(ctx); errors.Is(err, httpclient.ErrUnauthenticated) && !s.needLogin.Swap(true) {
		s.notice("Sign-in was not accepted for this list.")
	}
	return nil
}

// show prints the view once loading has settled.
func (s *searchSession) show(v resource.View[json.RawMessage]) {
	if v.IsLoading {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.Message != "" {
		warnLabel.Fprintf(s.cmd.ErrOrStderr(), "%s\n", v.Message)
		if len(v.Errors) > 1 {
			for _, d := range v.Errors {
				fmt.Fprintf(s.cmd.ErrOrStderr(), "  - %s\n", d)
			}
		}
		return
	}
	if err := s.a.out.printList(s.e, v); err != nil {
		fmt.Fprintf(s.cmd.ErrOrStderr(), "unable to print results: %v\n", err)
	}
}

func (s *searchSession) notice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.cmd.ErrOrStderr(), msg)
}
