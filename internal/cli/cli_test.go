package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/combatwarrior/academy/internal/academy"
	"github.com/combatwarrior/academy/internal/common/httpclient"
	"github.com/combatwarrior/academy/internal/devapi/config"
	"github.com/combatwarrior/academy/internal/devapi/server"
)

type cliEnv struct {
	t   *testing.T
	dir string
	cfg string
}

// newCLIEnv starts a seeded development API and points a fresh config file at it.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Users = []config.User{
		{ID: "1", Email: "admin@combatwarrior.com", FirstName: "Master", LastName: "Kim", Role: "admin", Password: "admin123"},
		{ID: "2", Email: "sensei@combatwarrior.com", FirstName: "Sensei", LastName: "Ito", Role: "instructor", Password: "kihap123"},
	}
	require.NoError(t, config.ValidateConfig(cfg))
	api, err := server.CreateNewServer(cfg)
	require.NoError(t, err)
	api.MountHandlers()
	srv := httptest.NewServer(api.Router)
	t.Cleanup(srv.Close)

	return newCLIEnvAt(t, "server_url: "+srv.URL+"/api\n")
}

func newCLIEnvAt(t *testing.T, configYAML string) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("version: 0.1.0\n"+configYAML), 0o600))
	return &cliEnv{t: t, dir: dir, cfg: path}
}

// run executes one academyctl invocation and returns what it wrote.
func (e *cliEnv) run(stdin string, args ...string) (string, string, error) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(strings.NewReader(stdin), &stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.cfg}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, stderr, err := e.run("", args...)
	require.NoError(e.t, err, stderr)
	return out
}

func (e *cliEnv) login() {
	e.t.Helper()
	out := e.mustRun("login", "--email", "admin@combatwarrior.com", "--password", "admin123")
	require.Contains(e.t, out, "Signed in as Master Kim (admin)")
}

func (e *cliEnv) file(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoginListAndLogout(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run("", "list", "students")
	assert.ErrorIs(t, err, httpclient.ErrUnauthenticated)

	env.login()
	_, err = os.Stat(filepath.Join(env.dir, SessionFile))
	require.NoError(t, err)

	out := env.mustRun("list", "students", "--filter", "green", "-o", "json")
	doc := gjson.Parse(out)
	require.Equal(t, int64(1), doc.Get("students.#").Int(), out)
	assert.Equal(t, "Min-jun", doc.Get("students.0.firstName").String())
	assert.Equal(t, int64(1), doc.Get("pagination.totalItems").Int())
	assert.Equal(t, int64(3), doc.Get("stats.total").Int(), "stats cover the whole collection")

	out = env.mustRun("list", "students")
	assert.Contains(t, out, "Students:")
	assert.Contains(t, out, "FIRST NAME")
	assert.Contains(t, out, "Sofia")
	assert.Contains(t, out, "Page 1 of 1 (3 total)")

	env.mustRun("logout")
	_, _, err = env.run("", "list", "students")
	assert.ErrorIs(t, err, httpclient.ErrUnauthenticated)
}

func TestLoginPromptsForMissingCredentials(t *testing.T) {
	env := newCLIEnv(t)
	out, stderr, err := env.run("sensei@combatwarrior.com\nkihap123\n", "login")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Email: ")
	assert.Contains(t, stderr, "Password: ")
	assert.Contains(t, out, "Signed in as Sensei Ito (instructor)")

	_, _, err = newCLIEnv(t).run("admin@combatwarrior.com\nwrong\n", "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")
}

func TestCreateUpdateDelete(t *testing.T) {
	env := newCLIEnv(t)
	env.login()

	path := env.file("courses.yaml", `title: Kata Camp
category: karate
price: 120
features:
  - Kata
  - Forms
isActive: true
---
title: Free Lunch
category: karate
price: -5
features: [Food]
`)
	out, _, err := env.run("", "create", "courses", "-f", path, "--ignore-errors")
	require.NoError(t, err)
	assert.Contains(t, out, "[OK] Created: courses/")
	assert.Contains(t, out, "(Kata Camp)")
	assert.Contains(t, out, "[ERROR] record 2 (Free Lunch): price must be 0 or greater")

	list := gjson.Parse(env.mustRun("list", "courses", "--search", "kata camp", "-o", "json"))
	require.Equal(t, int64(1), list.Get("courses.#").Int(), list.Raw)
	id := list.Get("courses.0._id").String()
	ref := "courses/" + id

	out = env.mustRun("update", ref, "--set", "price=150", "--append", "features=Sparring", "--drop", "features=1")
	assert.Contains(t, out, "[OK] Updated: "+ref+" (Kata Camp)")

	rec := gjson.Parse(env.mustRun("get", ref, "-o", "json"))
	assert.Equal(t, 150.0, rec.Get("price").Float())
	assert.JSONEq(t, `["Kata","Sparring"]`, rec.Get("features").Raw)
	assert.Equal(t, "karate", rec.Get("category").String())

	_, stderr, err := env.run("n\n", "delete", ref)
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Contains(t, stderr, `Delete course "Kata Camp"? This cannot be undone. [y/N]: `)
	assert.Contains(t, stderr, "Delete cancelled.")

	out, _, err = env.run("y\n", "delete", ref)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully deleted "+ref+" (Kata Camp)")

	_, _, err = env.run("", "get", ref)
	assert.Error(t, err)
}

func TestCreateStopsAtFirstInvalidRecord(t *testing.T) {
	env := newCLIEnv(t)
	env.login()

	path := env.file("students.yaml", `firstName: Young
lastName: Lee
email: young@example.com
dateOfBirth: "2024-01-01"
beltLevel: white
---
firstName: Hana
lastName: Cho
email: hana@example.com
dateOfBirth: "2010-05-05"
beltLevel: yellow
`)
	_, stderr, err := env.run("", "create", "students", "-f", path)
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Contains(t, stderr, "[ERROR] record 1 (Young Lee)")
	assert.Contains(t, stderr, "student must be at least 5 years old")

	list := gjson.Parse(env.mustRun("list", "students", "-o", "json"))
	assert.Equal(t, int64(3), list.Get("pagination.totalItems").Int(), "nothing after the failure is sent")
}

func TestUpdateFromFile(t *testing.T) {
	env := newCLIEnv(t)
	env.login()

	list := gjson.Parse(env.mustRun("list", "fees", "--filter", "overdue", "-o", "json"))
	require.Equal(t, int64(1), list.Get("fees.#").Int(), list.Raw)
	ref := "fees/" + list.Get("fees.0._id").String()

	path := env.file("paid.yaml", "status: paid\npaidDate: \"2025-03-04\"\nmethod: cash\n")
	env.mustRun("update", ref, "-f", path)

	rec := gjson.Parse(env.mustRun("get", ref, "-o", "json"))
	assert.Equal(t, "paid", rec.Get("status").String())
	assert.Equal(t, "cash", rec.Get("method").String())
	assert.Equal(t, 79.0, rec.Get("amount").Float())

	_, _, err := env.run("", "update", ref)
	assert.ErrorContains(t, err, "nothing to change")
}

func TestVerifyNeedsNoSession(t *testing.T) {
	env := newCLIEnv(t)
	env.login()
	list := gjson.Parse(env.mustRun("list", "certificates", "-o", "json"))
	code := list.Get("certificates.0.verificationCode").String()
	require.NotEmpty(t, code, list.Raw)
	env.mustRun("logout")

	out := env.mustRun("verify", code)
	assert.Contains(t, out, "Certificate is valid")
	assert.Contains(t, out, "Sofia Garcia")
	assert.Contains(t, out, "Blue Belt")

	_, _, err := env.run("", "verify", "CWA-1999-000000")
	assert.ErrorIs(t, err, academy.ErrCertificateNotFound)
}

func TestAdmissionsAndContactsThroughAPI(t *testing.T) {
	env := newCLIEnv(t)

	admission := env.file("admission.yaml", `firstName: Ji-woo
lastName: Kim
email: jiwoo@example.com
phone: 5550199
dateOfBirth: "2012-04-01"
course: Little Dragons
`)
	out := env.mustRun("admissions", "submit", "-f", admission)
	assert.Contains(t, out, "Application received for Ji-woo Kim")

	env.login()
	pending := gjson.Parse(env.mustRun("admissions", "list", "--status", "pending", "-o", "json"))
	require.Equal(t, int64(2), pending.Get("admissions.#").Int(), pending.Raw)
	id := pending.Get(`admissions.#(firstName=="Ji-woo")._id`).String()
	require.NotEmpty(t, id)
	assert.Equal(t, "5550199", pending.Get(`admissions.#(firstName=="Ji-woo").phone`).String())

	env.mustRun("admissions", "status", id, "approved")
	approved := gjson.Parse(env.mustRun("admissions", "list", "--status", "approved", "-o", "json"))
	assert.Equal(t, int64(1), approved.Get("admissions.#").Int())

	_, _, err := env.run("", "admissions", "status", id, "waitlisted")
	assert.Error(t, err)

	short := env.file("short.yaml", "name: Dan\nemail: dan@example.com\nsubject: Hi\nmessage: too short\n")
	_, _, err = env.run("", "contacts", "submit", "-f", short)
	require.Error(t, err)
	assert.Contains(t, errorDetails(err), "message must be at least 10 characters long")

	msg := env.file("contact.yaml", "name: Dan\nemail: dan@example.com\nsubject: Hi\nmessage: Do you run summer camps?\n")
	env.mustRun("contacts", "submit", "-f", msg)

	unread := gjson.Parse(env.mustRun("contacts", "list", "--unread", "-o", "json"))
	require.Equal(t, int64(2), unread.Get("contacts.#").Int(), unread.Raw)
	contactID := unread.Get(`contacts.#(name=="Dan")._id`).String()

	env.mustRun("contacts", "read", contactID)
	unread = gjson.Parse(env.mustRun("contacts", "list", "--unread", "-o", "json"))
	assert.Equal(t, int64(1), unread.Get("contacts.#").Int())

	env.mustRun("contacts", "delete", contactID, "--yes")
	all := gjson.Parse(env.mustRun("contacts", "list", "-o", "json"))
	assert.Equal(t, int64(1), all.Get("contacts.#").Int())
}

func TestDemoModeKeepsSubmissionsLocally(t *testing.T) {
	env := newCLIEnvAt(t, "server_url: http://127.0.0.1:1/api\ndemo: true\n")

	admission := env.file("admission.yaml", `firstName: Ji-woo
lastName: Kim
email: jiwoo@example.com
phone: "555-0199"
dateOfBirth: "2012-04-01"
course: Little Dragons
`)
	out, stderr, err := env.run("", "admissions", "submit", "-f", admission)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Demo mode")
	assert.Contains(t, out, "Application received for Ji-woo Kim")
	_, err = os.Stat(filepath.Join(env.dir, DemoFile))
	require.NoError(t, err)

	list := gjson.Parse(env.mustRun("admissions", "list", "-o", "json"))
	require.Equal(t, int64(1), list.Get("admissions.#").Int())
	assert.Equal(t, int64(1), list.Get("stats.pending").Int())
	id := list.Get("admissions.0._id").String()

	env.mustRun("admissions", "status", id, "rejected")
	list = gjson.Parse(env.mustRun("admissions", "list", "--status", "rejected", "-o", "json"))
	assert.Equal(t, int64(1), list.Get("admissions.#").Int())

	msg := env.file("contact.yaml", "name: Dan\nemail: dan@example.com\nsubject: Hi\nmessage: Do you run summer camps?\n")
	env.mustRun("contacts", "submit", "-f", msg)
	contacts := gjson.Parse(env.mustRun("contacts", "list", "--unread", "-o", "json"))
	require.Equal(t, int64(1), contacts.Get("contacts.#").Int())
	cid := contacts.Get("contacts.0._id").String()
	env.mustRun("contacts", "read", cid)
	contacts = gjson.Parse(env.mustRun("contacts", "list", "--unread", "-o", "json"))
	assert.Equal(t, int64(0), contacts.Get("contacts.#").Int())

	_, stderr, err = env.run("n\n", "contacts", "delete", cid)
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Contains(t, stderr, "Delete cancelled.")
	env.mustRun("admissions", "delete", id, "-y")
	list = gjson.Parse(env.mustRun("admissions", "list", "-o", "json"))
	assert.Equal(t, int64(0), list.Get("admissions.#").Int())
}

func TestSearchRunsOnlyTheLastPendingQuery(t *testing.T) {
	env := newCLIEnv(t)
	env.login()

	out, stderr, err := env.run("so\nsofia\n:filter blue\n", "search", "students", "--quiet-period", "1h", "-o", "json")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "Commands: :page N")

	var views []map[string]any
	dec := json.NewDecoder(strings.NewReader(out))
	for {
		var v map[string]any
		if err := dec.Decode(&v); errors.Is(err, io.EOF) {
			break
		} else {
			require.NoError(t, err)
		}
		views = append(views, v)
	}
	require.Len(t, views, 2, "initial page plus the flushed search")

	first, _ := json.Marshal(views[0])
	last, _ := json.Marshal(views[1])
	assert.Equal(t, int64(3), gjson.GetBytes(first, "students.#").Int())
	assert.Equal(t, int64(1), gjson.GetBytes(last, "students.#").Int())
	assert.Equal(t, "Sofia", gjson.GetBytes(last, "students.0.firstName").String())
}

func TestSearchPaging(t *testing.T) {
	env := newCLIEnv(t)
	env.login()

	_, stderr, err := env.run(":page 2\n:bogus\n:quit\n", "search", "students")
	require.NoError(t, err)
	assert.Contains(t, stderr, "no page 2; there are 1")
	assert.Contains(t, stderr, "unknown command :bogus")
}

func TestStatusAndConfig(t *testing.T) {
	env := newCLIEnv(t)

	st := gjson.Parse(env.mustRun("status", "-o", "json"))
	assert.Equal(t, "1.2.0", st.Get("apiVersion").String())
	assert.True(t, st.Get("compatible").Bool())
	assert.Equal(t, "signed out", st.Get("session").String())

	env.login()
	st = gjson.Parse(env.mustRun("status", "--json"))
	assert.Equal(t, "signed in", st.Get("session").String())
	assert.Equal(t, "Master Kim", st.Get("user").String())
	assert.True(t, st.Get("tokenExpiry").Exists())

	shown := gjson.Parse(env.mustRun("config", "show", "-o", "json"))
	assert.Equal(t, "admin@combatwarrior.com", shown.Get("signed_in").String())

	env.mustRun("config", "--server", "academy.example.com:8080/api")
	shown = gjson.Parse(env.mustRun("config", "show", "-o", "json"))
	assert.Equal(t, "http://academy.example.com:8080/api", shown.Get("server").String())
	assert.Empty(t, shown.Get("signed_in").String(), "changing server signs out")

	_, _, err := env.run("", "config", "--server", "http://exa mple.com")
	assert.Error(t, err)
	_, _, err = env.run("", "config", "--timeout", "soon")
	assert.Error(t, err)
}

func TestIsAPIVersionCompatible(t *testing.T) {
	assert.True(t, IsAPIVersionCompatible("1.0.0"))
	assert.True(t, IsAPIVersionCompatible("1.9.3"))
	assert.False(t, IsAPIVersionCompatible("2.0.0"))
	assert.False(t, IsAPIVersionCompatible("0.9.0"))
	assert.False(t, IsAPIVersionCompatible("latest"))
}

func TestFormatStats(t *testing.T) {
	assert.Equal(t, "", formatStats(nil))
	assert.Equal(t,
		"Belt Level: blue 1, green 2 | Pending Amount: 79 | Total: 3",
		formatStats(map[string]any{"total": 3, "pendingAmount": 79, "beltLevel": map[string]any{"green": 2, "blue": 1}}))
}
