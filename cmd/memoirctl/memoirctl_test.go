package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maruel/memoir/internal/convert"
	"github.com/maruel/memoir/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

// run executes memoirctl with args against dataDir and returns stdout.
func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), err
}

func mustRun(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	out, err := run(t, dataDir, args...)
	require.NoError(t, err, "memoirctl %s", strings.Join(args, " "))
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestUsers(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "users", "add", "alice", "--password", "secret")
	assert.Contains(t, out, "Created user alice with id 1")
	mustRun(t, dir, "users", "add", "bob", "--password", "hunter2")

	_, err := run(t, dir, "users", "add", "alice", "--password", "other")
	require.ErrorIs(t, err, storage.ErrUserExists)

	_, err = run(t, dir, "users", "add", "carol")
	require.EqualError(t, err, "--password is required")

	out = mustRun(t, dir, "users", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "USERNAME", "NOTES"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "alice", "0"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "bob", "0"}, strings.Fields(lines[2]))

	out = mustRun(t, dir, "users", "list", "-o", "json")
	var users []userView
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	assert.Equal(t, []userView{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}}, users)

	_, err = run(t, dir, "users", "list", "-o", "xml")
	require.EqualError(t, err, `unknown output format "xml"`)
}

func TestUsersDelete(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "users", "add", "alice", "--password", "secret")
	mustRun(t, dir, "users", "add", "bob", "--password", "secret")

	st, err := storage.Open(t.Context(), dir, storage.Options{})
	require.NoError(t, err)
	alice, ok := st.Users.Find("alice")
	require.True(t, ok)
	bob, ok := st.Users.Find("bob")
	require.True(t, ok)
	_, err = st.Notes.Create(alice.ID, "one", "", nil)
	require.NoError(t, err)
	_, err = st.Notes.Create(alice.ID, "two", "", nil)
	require.NoError(t, err)
	_, err = st.Notes.Create(bob.ID, "three", "", nil)
	require.NoError(t, err)
	_, err = st.Sessions.Create(alice.ID, time.Hour)
	require.NoError(t, err)

	out := mustRun(t, dir, "users", "delete", "alice")
	assert.Equal(t, "Deleted user alice, 2 notes and 1 sessions\n", out)

	_, err = run(t, dir, "users", "delete", "alice")
	require.ErrorIs(t, err, storage.ErrNotFound)

	st, err = storage.Open(t.Context(), dir, storage.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Users.Count())
	assert.Equal(t, 1, st.Notes.Count())
	assert.Equal(t, 0, st.Sessions.CountActive())
}

func TestMissingDataDir(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "absent"), "users", "list")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestImportAndNotes(t *testing.T) {
	dir := t.TempDir()
	files := t.TempDir()
	mustRun(t, dir, "users", "add", "alice", "--password", "secret")

	p := writeFile(t, files, "Shopping List.txt", "eggs\nmilk\n")
	out := mustRun(t, dir, "import", "--user", "alice", "--tags", "home, errands,", p)
	assert.Equal(t, "Created note 1 \"Shopping List\"\n", out)

	p = writeFile(t, files, "draft.md", "# plan\n")
	mustRun(t, dir, "import", "--user", "alice", "--title", "Plan", p)

	_, err := run(t, dir, "import", "--user", "alice", writeFile(t, files, "scan.pdf", "%PDF"))
	var ce *convert.ConversionError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Unsupported())

	_, err = run(t, dir, "import", "--user", "nobody", p)
	require.ErrorIs(t, err, storage.ErrNotFound)

	out = mustRun(t, dir, "notes", "list", "--user", "alice")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"1", "Shopping", "List", "home,errands"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "Plan"}, strings.Fields(lines[2]))

	out = mustRun(t, dir, "notes", "list", "--user", "alice", "--tag", "errands", "--text", "-o", "json")
	var notes []noteView
	require.NoError(t, json.Unmarshal([]byte(out), &notes))
	want := []noteView{{ID: 1, Title: "Shopping List", Tags: []string{"home", "errands"}, Text: "eggs\nmilk\n"}}
	assert.Equal(t, want, notes)

	out = mustRun(t, dir, "notes", "list", "--user", "alice", "-o", "yaml")
	var docs []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "Plan", docs[1]["title"])
	assert.Equal(t, []any{}, docs[1]["tags"])

	out = mustRun(t, dir, "notes", "show", "--user", "alice", "2")
	assert.Equal(t, "# Plan\n\n# plan\n\n", out)

	_, err = run(t, dir, "notes", "show", "--user", "alice", "x")
	require.EqualError(t, err, `invalid note id "x"`)

	_, err = run(t, dir, "notes", "list")
	require.EqualError(t, err, "--user is required")
}

func TestNotesShowForbidden(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "users", "add", "alice", "--password", "secret")
	mustRun(t, dir, "users", "add", "bob", "--password", "secret")
	mustRun(t, dir, "import", "--user", "alice", writeFile(t, t.TempDir(), "a.txt", "private"))

	_, err := run(t, dir, "notes", "show", "--user", "bob", "1")
	require.ErrorIs(t, err, storage.ErrForbidden)
	_, err = run(t, dir, "notes", "show", "--user", "alice", "9")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConvert(t *testing.T) {
	files := t.TempDir()
	p := writeFile(t, files, "hello.TXT", "hello world\n")
	out, err := run(t, t.TempDir(), "convert", p)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)

	russian := "Широкая электрификация южных губерний даст мощный толчок подъёму сельского хозяйства. " +
		"Это обычная заметка о том, что нужно купить в магазине и кому позвонить вечером.\n"
	cp1251, err := charmap.Windows1251.NewEncoder().String(russian)
	require.NoError(t, err)
	p = writeFile(t, files, "ru.txt", cp1251)
	out, err = run(t, t.TempDir(), "convert", p)
	require.NoError(t, err)
	assert.Equal(t, russian, out)

	out, err = run(t, t.TempDir(), "convert", "--charset", p)
	require.NoError(t, err)
	assert.NotEqual(t, "unknown\n", out)

	_, err = run(t, t.TempDir(), "convert", filepath.Join(files, "absent.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSessions(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "users", "add", "alice", "--password", "secret")
	st, err := storage.Open(t.Context(), dir, storage.Options{})
	require.NoError(t, err)
	_, err = st.Sessions.Create(1, time.Hour)
	require.NoError(t, err)
	_, err = st.Sessions.Create(1, -48*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "1 active sessions\n", mustRun(t, dir, "sessions"))
	assert.Equal(t, "Removed 1 expired sessions\n1 active sessions\n", mustRun(t, dir, "sessions", "--prune", "24h"))
	assert.Equal(t, "Removed 0 expired sessions\n1 active sessions\n", mustRun(t, dir, "sessions", "--prune", "0s"))
}

func TestSchema(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "users", "add", "alice", "--password", "secret")

	out := mustRun(t, dir, "schema")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"KIND", "RECORDS", "FILE"}, strings.Fields(lines[0]))
	assert.Equal(t, "User", strings.Fields(lines[1])[0])
	assert.Equal(t, "1", strings.Fields(lines[1])[1])
	assert.Equal(t, "Note", strings.Fields(lines[2])[0])
	assert.Equal(t, "Session", strings.Fields(lines[3])[0])

	out = mustRun(t, dir, "schema", "Note")
	var s map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Contains(t, out, `"title"`)

	out = mustRun(t, dir, "schema", "Note", "-o", "yaml")
	require.NoError(t, yaml.Unmarshal([]byte(out), &s))
	assert.NotEmpty(t, s)

	_, err := run(t, dir, "schema", "Widget")
	require.Error(t, err)
}
