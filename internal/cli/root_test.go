package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, dbPath string, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&app{in: strings.NewReader(stdin), out: &out})
	cmd.SetArgs(append([]string{"--storage", "sqlite", "--sqlite-path", dbPath}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands_LearnDeduceInspect(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ad.db")
	emlPath := filepath.Join(dir, "sent.eml")
	require.NoError(t, os.WriteFile(emlPath, []byte(strings.Join([]string{
		`To: Foo <foo@bar.dom>`,
		`Subject: Salut`,
		`Content-Language: fr`,
		``,
		`Bonjour`,
	}, "\r\n")), 0o600))

	out, err := execute(t, dbPath, "", "learn", "--file", emlPath)
	require.NoError(t, err)
	assert.Equal(t, "foo@bar.dom\tFrench\tSalut\n", out)

	out, err = execute(t, dbPath, "", "deduce", "--to", "foo@bar.dom")
	require.NoError(t, err)
	assert.Contains(t, out, "savedForRecipients\t")
	assert.Contains(t, out, "languages\tfr\n")

	out, err = execute(t, dbPath, "", "deduce", "--to", "someone@bar.dom")
	require.NoError(t, err)
	assert.Contains(t, out, "deducedLang.guess\t")

	out, err = execute(t, dbPath, "", "deduce", "--to", "x@elsewhere.org")
	require.NoError(t, err)
	assert.Equal(t, "noLangForRecipients\tNo language known for these recipients\n", out)

	out, err = execute(t, dbPath, "", "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "# recipients (1/1200, oldest first)")
	assert.Contains(t, out, "foo@bar.dom")
	assert.Contains(t, out, "# domains (1)")
	assert.Contains(t, out, "bar.dom")

	out, err = execute(t, dbPath, "", "inspect", "--keys")
	require.NoError(t, err)
	assert.Equal(t, "addressesInfo\nfreqTableData\n", out)
}

func TestCommands_LearnFromStdinWithoutLanguage(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "ad.db"), "To: foo@bar.dom\r\n\r\nbody", "learn")
	assert.EqualError(t, err, "message has no Content-Language header")
}

func TestCommands_Prefs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ad.db")

	out, err := execute(t, dbPath, "", "prefs", "get", "max_size")
	require.NoError(t, err)
	assert.Equal(t, "1200\n", out)

	_, err = execute(t, dbPath, "", "prefs", "set", "max_size", "5")
	require.NoError(t, err)
	out, err = execute(t, dbPath, "", "prefs", "get", "max_size")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	_, err = execute(t, dbPath, "", "prefs", "reset", "max_size")
	require.NoError(t, err)
	out, err = execute(t, dbPath, "", "prefs", "get", "max_size")
	require.NoError(t, err)
	assert.Equal(t, "1200\n", out)

	_, err = execute(t, dbPath, "", "prefs", "set", "notification_level", "loud")
	assert.Error(t, err)
	_, err = execute(t, dbPath, "", "prefs", "reset", "colour")
	assert.Error(t, err)

	_, err = execute(t, dbPath, "", "prefs", "get", "colour")
	assert.Error(t, err)
}

func TestCommands_Session(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ad.db")
	script := `{"op":"open","window":"w1","to":["a@b.es"]}` + "\n"

	out, err := execute(t, dbPath, script, "session")
	require.NoError(t, err)
	assert.Contains(t, out, `"event":"label"`)
	assert.Contains(t, out, `"label":"noLangForRecipients"`)
	assert.Contains(t, out, `"event":"shutdown"`)
}
