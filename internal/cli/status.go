package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/avast/retry-go/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/combatwarrior/academy/internal/common/httpclient"
	"github.com/combatwarrior/academy/internal/session/gate"
)

// supportedAPI is the range of API contract versions this CLI speaks.
var supportedAPI *semver.Constraints

func init() {
	var err error
	supportedAPI, err = semver.NewConstraint("^1.0.0")
	if err != nil {
		panic(err)
	}
}

// IsAPIVersionCompatible reports whether the server's API version is one this
// CLI can talk to. Invalid versions are not compatible.
func IsAPIVersionCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return supportedAPI.Check(v)
}

// StatusResponse is what the status command reports.
type StatusResponse struct {
	Server        string     `json:"server"`
	ServerVersion string     `json:"serverVersion,omitempty"`
	ApiVersion    string     `json:"apiVersion,omitempty"`
	Compatible    bool       `json:"compatible"`
	Session       string     `json:"session"`
	User          string     `json:"user,omitempty"`
	Role          string     `json:"role,omitempty"`
	TokenExpiry   *time.Time `json:"tokenExpiry,omitempty"`
}

func newStatusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server version and session state",
		Long: `Show the server and API version, whether this CLI is compatible with it, and
who is signed in. With --wait the command keeps polling until the server answers,
which is useful right after starting the development API.

Examples:
  academyctl status
  academyctl status --wait --attempts 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			wait, _ := cmd.Flags().GetBool("wait")
			attempts, _ := cmd.Flags().GetUint("attempts")
			if !wait {
				attempts = 1
			}
			st, err := a.status(cmd.Context(), attempts)
			if err != nil {
				return err
			}
			if a.out.format != formatTable {
				return a.out.printValue(st)
			}
			printStatusPretty(cmd, st)
			if !st.Compatible {
				return ErrAlreadyHandled
			}
			return nil
		},
	}
	cmd.Flags().Bool("wait", false, "Retry until the server is reachable")
	cmd.Flags().Uint("attempts", 5, "Attempts when waiting")
	return cmd
}

func (a *app) status(ctx context.Context, attempts uint) (StatusResponse, error) {
	st := StatusResponse{Server: a.cfg.GetServerURL()}

	var body []byte
	err := retry.Do(func() error {
		var err error
		body, err = a.gateway().Send(ctx, httpclient.Request{Method: http.MethodGet, Path: "version"})
		return err
	}, retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, httpclient.ErrNetwork)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Msg("server not reachable yet")
		}))
	if err != nil {
		return st, fmt.Errorf("unable to reach %s: %w", st.Server, err)
	}
	parsed := gjson.ParseBytes(body)
	if d := parsed.Get("data"); d.IsObject() {
		parsed = d
	}
	st.ServerVersion = parsed.Get("serverVersion").String()
	st.ApiVersion = parsed.Get("apiVersion").String()
	st.Compatible = IsAPIVersionCompatible(st.ApiVersion)

	g := a.sessionGate()
	switch g.Check() {
	case gate.StateAuthenticated:
		s := g.Session()
		st.Session = "signed in"
		st.User = displayName(s.User.DisplayName, s.User.Email)
		st.Role = string(s.User.Role)
		st.TokenExpiry = tokenExpiry(s.Token)
	default:
		st.Session = "signed out"
	}
	return st, nil
}

// tokenExpiry reads the exp claim without verifying the signature. The server
// remains the judge of validity; this is only for display.
func tokenExpiry(token string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}

func printStatusPretty(cmd *cobra.Command, st StatusResponse) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "academyctl %s\n", cliVersion)
	fmt.Fprintf(w, "Server: %s\n", st.Server)
	fmt.Fprintf(w, "Server Version: %s\n", st.ServerVersion)
	fmt.Fprintf(w, "API Version: %s\n", st.ApiVersion)
	if !st.Compatible {
		warnLabel.Fprintf(w, "This CLI supports API %s; upgrade academyctl or the server.\n", supportedAPI)
	}
	fmt.Fprintf(w, "Session: %s\n", st.Session)
	if st.User != "" {
		fmt.Fprintf(w, "User: %s (%s)\n", st.User, st.Role)
	}
	if st.TokenExpiry != nil {
		exp := st.TokenExpiry.Local().Format("2006-01-02 15:04:05 MST")
		if time.Now().After(*st.TokenExpiry) {
			warnLabel.Fprintf(w, "Token Expired: %s\n", exp)
		} else {
			fmt.Fprintf(w, "Token Expires: %s\n", exp)
		}
	}
}
