package main

import (
	"bytes"
	"context"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/Tyrowin/relaychat/internal/filter"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/Tyrowin/relaychat/internal/testhelpers"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func parse(t *testing.T, args ...string) (*cobra.Command, []string, options) {
	t.Helper()

	var captured []string
	var opts options
	cmd := newRootCmd()
	cmd.RunE = func(c *cobra.Command, a []string) error {
		captured = a
		opts.host, _ = c.Flags().GetString("host")
		opts.logLevel, _ = c.Flags().GetString("log-level")
		return nil
	}
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())
	return cmd, captured, opts
}

func TestResolveConfig_Defaults(t *testing.T) {
	cmd, args, opts := parse(t)

	cfg, err := resolveConfig(cmd, args, opts)
	require.NoError(t, err)
	assert.Equal(t, server.DefaultPort, cfg.Port)
	assert.Equal(t, server.DefaultBannedWordsPath, cfg.BannedWordsPath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestResolveConfig_ArgsOverrideEnvironment(t *testing.T) {
	t.Setenv("RELAYCHAT_PORT", "2000")
	t.Setenv("RELAYCHAT_BANNED_WORDS", "env-words.txt")
	t.Setenv("RELAYCHAT_LOG_LEVEL", "warn")

	cmd, args, opts := parse(t, "3000", "words.txt", "--host", "127.0.0.1", "--log-level", "debug")

	cfg, err := resolveConfig(cmd, args, opts)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3000", cfg.Address())
	assert.Equal(t, "words.txt", cfg.BannedWordsPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestResolveConfig_EnvironmentWithoutArgs(t *testing.T) {
	t.Setenv("RELAYCHAT_PORT", "2000")

	cmd, args, opts := parse(t)

	cfg, err := resolveConfig(cmd, args, opts)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Port)
}

func TestResolveConfig_InvalidPort(t *testing.T) {
	for _, port := range []string{"abc", "0", "70000"} {
		cmd, args, opts := parse(t, port)
		_, err := resolveConfig(cmd, args, opts)
		assert.Error(t, err, port)
	}
}

func TestRootCmd_TooManyArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"1500", "words.txt", "extra"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestRun_MissingBannedWordsIsFatal(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.BannedWordsPath = filepath.Join(t.TempDir(), "missing.txt")
	cfg.LogLevel = "error"

	err := run(context.Background(), cfg)
	assert.ErrorIs(t, err, filter.ErrNoWordsFile)
}

func TestRun_InvalidLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("darn\n"), 0o600))

	cfg := server.DefaultConfig()
	cfg.BannedWordsPath = path
	cfg.LogLevel = "loud"

	assert.Error(t, run(context.Background(), cfg))
}

func TestResolveConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RELAYCHAT_PORT=4100\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("RELAYCHAT_PORT", "")
	require.NoError(t, os.Unsetenv("RELAYCHAT_PORT"))

	cmd, args, opts := parse(t)

	cfg, err := resolveConfig(cmd, args, opts)
	require.NoError(t, err)
	assert.Equal(t, 4100, cfg.Port)
}

func TestWhoCmd(t *testing.T) {
	srv := server.New(server.DefaultConfig(), nil, zaptest.NewLogger(t))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close(5 * time.Second)
	})

	url := testhelpers.WebSocketURL(ts)
	alice := testhelpers.Join(t, url, "alice")
	testhelpers.Join(t, url, "bob")
	testhelpers.ExpectLine(t, alice, chat.JoinedLine("bob"))

	addr := ts.Listener.Addr().(*net.TCPAddr)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"who", strconv.Itoa(addr.Port), addr.IP.String()})
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "alice")
	assert.Contains(t, out.String(), "bob")
}

func TestWhoCmd_InvalidPort(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"who", "not-a-port"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
