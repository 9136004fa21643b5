// Package cli implements academyctl, the command line back office of the
// Combat Warrior Academy.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/combatwarrior/academy/internal/common/eventbus"
	"github.com/combatwarrior/academy/internal/common/httpclient"
	"github.com/combatwarrior/academy/internal/common/logtrace"
	"github.com/combatwarrior/academy/internal/session/gate"
	"github.com/combatwarrior/academy/internal/session/tokenstore"
)

// ErrAlreadyHandled means the command has already reported its failure.
var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)
var warnLabel = color.New(color.FgYellow)

// app holds what the commands of one invocation share. The session store,
// gate and gateway are built on first use.
type app struct {
	configFile string
	verbose    bool
	jsonOutput bool
	outputFlag string

	cfg *Config
	out *output
	in  *bufio.Reader

	store tokenstore.Store
	bus   *eventbus.EventBus
	gt    *gate.Gate
	gw    *httpclient.Gateway
}

func (a *app) tokens() tokenstore.Store {
	if a.store == nil {
		a.store = tokenstore.New(tokenstore.NewFileSlots(a.cfg.SessionPath()))
	}
	return a.store
}

func (a *app) events() *eventbus.EventBus {
	if a.bus == nil {
		a.bus = eventbus.New()
	}
	return a.bus
}

func (a *app) sessionGate() *gate.Gate {
	if a.gt == nil {
		a.gt = gate.New(a.cfg, a.tokens(), a.events())
	}
	return a.gt
}

func (a *app) gateway() *httpclient.Gateway {
	if a.gw == nil {
		a.gw = httpclient.NewGateway(a.cfg, a.tokens(), a.events())
	}
	return a.gw
}

func (a *app) shutdown() {
	if a.bus != nil {
		a.bus.Shutdown()
	}
}

// NewRootCmd builds the academyctl command tree reading from in and writing
// results to out.
func NewRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: bufio.NewReader(in)}
	rootCmd := &cobra.Command{
		Use:   "academyctl [command] [flags]",
		Short: "academyctl - the Combat Warrior Academy back office",
		Long: `academyctl manages the Combat Warrior Academy from the command line: students,
courses, achievements, badges, certificates, attendance, belt promotions, fees,
admissions and contact messages.

Examples:
  # Sign in
  academyctl login --email admin@combatwarrior.com

  # List green belts
  academyctl list students --filter green

  # Create courses from a YAML file
  academyctl create courses -f courses.yaml

  # Check a certificate, no sign-in needed
  academyctl verify CWA-2025-K7F3A9`,
		SilenceErrors: true, // Execute prints errors
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.preRun(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.shutdown()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Path to configuration file to override default")
	pf.BoolVarP(&a.jsonOutput, "json", "j", false, "Output in JSON format")
	pf.StringVarP(&a.outputFlag, "output", "o", formatTable, "Output format: table, json or yaml")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Log requests to stderr")

	rootCmd.AddCommand(
		newVersionCmd(a),
		newConfigCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newSearchCmd(a),
		newVerifyCmd(a),
		newAdmissionsCmd(a),
		newContactsCmd(a),
	)
	return rootCmd
}

func (a *app) preRun(cmd *cobra.Command) error {
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logtrace.InitLogger(level, true)

	format := a.outputFlag
	if a.jsonOutput {
		format = formatJSON
	}
	out, err := newOutput(cmd.OutOrStdout(), format)
	if err != nil {
		return err
	}
	a.out = out

	if a.configFile == "" {
		if a.configFile, err = GetDefaultConfigPath(); err != nil {
			return err
		}
	}
	a.cfg, err = LoadConfig(a.configFile)
	return err
}

// Execute runs academyctl and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCmd(os.Stdin, os.Stdout)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrAlreadyHandled) {
		return 1
	}
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("json")
	format, _ := rootCmd.PersistentFlags().GetString("output")
	if jsonOut || format == formatJSON {
		o := &output{w: os.Stdout, format: formatJSON}
		o.printJSON(map[string]any{"error": err.Error(), "details": errorDetails(err)})
	} else {
		errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		if details := errorDetails(err); len(details) > 1 {
			for _, d := range details {
				fmt.Fprintf(os.Stderr, "  - %s\n", d)
			}
		}
		if errors.Is(err, httpclient.ErrUnauthenticated) {
			fmt.Fprintln(os.Stderr, "Sign in with \"academyctl login\".")
		}
	}
	return 1
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of academyctl",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.out.format != formatTable {
				return a.out.printValue(map[string]string{
					"version":     cliVersion,
					"config_file": a.cfg.Path(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "academyctl %s\n", cliVersion)
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", a.cfg.Path())
			return nil
		},
	}
}

const cliVersion = "v0.3.0"
