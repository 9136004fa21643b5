package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/combatwarrior/academy/internal/academy"
	"github.com/combatwarrior/academy/internal/common/httpclient"
	"github.com/combatwarrior/academy/internal/resource"
)

// parseRef splits ENTITY/ID, e.g. "students/0191b0c2-...".
func parseRef(ref string) (academy.Entity, string, error) {
	name, id, ok := strings.Cut(ref, "/")
	if !ok || name == "" || id == "" {
		return academy.Entity{}, "", fmt.Errorf("invalid record %q. Expected <entity>/<id>", ref)
	}
	if _, err := httpclient.ItemPath(name, id); err != nil {
		return academy.Entity{}, "", fmt.Errorf("invalid record %q. Expected <entity>/<id> with a single-segment id", ref)
	}
	e, err := academy.Lookup(name)
	if err != nil {
		return academy.Entity{}, "", err
	}
	return e, id, nil
}

// entityArg completes and checks the ENTITY argument.
func entityArg(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return academy.Names(), cobra.ShellCompDirectiveNoFileComp
}

// controller builds a collection controller guarded by the stored session.
func (a *app) controller(e academy.Entity, opts ...resource.Option[json.RawMessage]) *resource.Controller[json.RawMessage] {
	g := a.sessionGate()
	g.Check()
	opts = append([]resource.Option[json.RawMessage]{resource.WithGuard[json.RawMessage](g)}, opts...)
	return resource.New[json.RawMessage](e.Descriptor, a.gateway(), opts...)
}

// confirmer asks on the command's input unless yes is set.
func (a *app) confirmer(cmd *cobra.Command, yes bool) resource.Confirmer {
	return resource.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		if yes {
			return true, nil
		}
		answer, err := a.prompt(cmd, prompt+" [y/N]: ")
		if err != nil {
			return false, err
		}
		answer = strings.ToLower(answer)
		return answer == "y" || answer == "yes", nil
	})
}

// fetchRecord loads one record of e. The gate is consulted first so that a
// missing session fails without a request.
func (a *app) fetchRecord(ctx context.Context, e academy.Entity, id string) ([]byte, error) {
	g := a.sessionGate()
	g.Check()
	if err := g.Require(); err != nil {
		return nil, err
	}
	p, err := httpclient.ItemPath(e.Descriptor.Path, id)
	if err != nil {
		return nil, err
	}
	body, err := a.gateway().Send(ctx, httpclient.Request{
		Method:       http.MethodGet,
		Path:         p,
		RequiresAuth: true,
	})
	if err != nil {
		return nil, err
	}
	data := gjson.GetBytes(body, "data")
	if item := data.Get(e.Descriptor.ItemKey); item.IsObject() {
		data = item
	}
	if !data.IsObject() {
		return nil, resource.ErrUnexpectedResponse
	}
	return []byte(data.Raw), nil
}

// recordLabel names a record for prompts and messages, using its first
// non-identifier columns.
func recordLabel(e academy.Entity, raw []byte, fallback string) string {
	doc := gjson.ParseBytes(raw)
	var parts []string
	for _, c := range e.Columns {
		if c.Path == "_id" || len(parts) == 2 {
			continue
		}
		if v := doc.Get(c.Path).String(); v != "" {
			parts = append(parts, v)
		}
		if !strings.Contains(strings.ToLower(c.Header), "name") {
			break
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, " ")
}
