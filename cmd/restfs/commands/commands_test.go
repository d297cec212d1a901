package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `containers:
  - fullPath: /Common
  - fullPath: /Common/app
objects:
  - fullPath: /Common/test
    apiAnonymous: "when HTTP_REQUEST {}"
  - fullPath: /Common/app/redirect
    apiAnonymous: "when HTTP_RESPONSE {}"
`

// setupConfig writes a snapshot fixture and a config pointing at it
func setupConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	fixture := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(fixtureYAML), 0o600))

	cfg := "remote_type: snapshot\n" +
		"snapshot_path: " + fixture + "\n" +
		"host: bigip.example\n" +
		"username: admin\n" +
		"password: secret\n" +
		"verbose: 1\n"
	cfgPath := filepath.Join(dir, "restfs.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLs(t *testing.T) {
	cfg := setupConfig(t)

	out, err := run(t, "", "--config", cfg, "ls")
	require.NoError(t, err)
	assert.Equal(t, "Common/\n", out)

	out, err = run(t, "", "--config", cfg, "ls", "/Common")
	require.NoError(t, err)
	assert.Equal(t, "app/\ntest.tcl\n", out)

	out, err = run(t, "", "--config", cfg, "ls", "-l", "/Common")
	require.NoError(t, err)
	assert.Contains(t, out, "object")
	assert.Contains(t, out, "test.tcl")
}

func TestLsMissing(t *testing.T) {
	cfg := setupConfig(t)

	_, err := run(t, "", "--config", cfg, "ls", "/Nope")
	require.Error(t, err)
}

func TestCat(t *testing.T) {
	cfg := setupConfig(t)

	out, err := run(t, "", "--config", cfg, "cat", "/Common/app/redirect.tcl")
	require.NoError(t, err)
	assert.Equal(t, "when HTTP_RESPONSE {}", out)
}

func TestTree(t *testing.T) {
	cfg := setupConfig(t)

	out, err := run(t, "", "--config", cfg, "tree")
	require.NoError(t, err)
	assert.Equal(t, "/\nCommon/\n  app/\n    redirect.tcl\n  test.tcl\n", out)
}

func TestPush(t *testing.T) {
	cfg := setupConfig(t)

	_, err := run(t, "when CLIENT_ACCEPTED {}", "--config", cfg, "push", "/Common/test.tcl", "-")
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "rule.tcl")
	require.NoError(t, os.WriteFile(src, []byte("when LB_FAILED {}"), 0o600))
	_, err = run(t, "", "--config", cfg, "push", "/Common/test.tcl", src)
	require.NoError(t, err)

	// objects only exist once the remote lists them
	_, err = run(t, "x", "--config", cfg, "push", "/Common/new.tcl", "-")
	require.Error(t, err)
}

func TestMissingCredentials(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "restfs.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("remote_type: snapshot\nverbose: 1\n"), 0o600))

	_, err := run(t, "", "--config", cfgPath, "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host")
}

func TestUnknownClientType(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "restfs.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("remote_type: ftp\n"), 0o600))

	_, err := run(t, "", "--config", cfgPath, "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}

func TestBadConfigFile(t *testing.T) {
	_, err := run(t, "", "--config", filepath.Join(t.TempDir(), "restfs.toml"), "ls")
	require.Error(t, err)
}
