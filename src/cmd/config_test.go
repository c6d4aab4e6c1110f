package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points config discovery at empty directories.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("airfilter", pflag.ContinueOnError)
	fs.BoolP("verbose", "v", true, "")
	fs.String("shell", "bash", "")
	fs.String("workdir", ".", "")
	fs.String("log-file", "", "")
	fs.String("log-level", "info", "")
	fs.BoolP("interactive", "i", false, "")
	fs.Int("prompt-timeout", 10, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := loadConfig(nil, "")
	require.NoError(t, err)
	assert.Equal(t, Config{
		Verbose:       true,
		Shell:         "bash",
		Workdir:       ".",
		LogLevel:      "info",
		PromptTimeout: 10,
	}, cfg)
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"namespace: airflow\nverbose: false\nlog_level: debug\nprompt_timeout: 3\n"), 0o644))

	cfg, err := loadConfig(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "airflow", cfg.Namespace)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.PromptTimeout)
	assert.Equal(t, "bash", cfg.Shell)
}

func TestLoadConfigDiscoversWorkingDirectory(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("airfilter.yaml", []byte("namespace: from-cwd\n"), 0o644))

	cfg, err := loadConfig(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "from-cwd", cfg.Namespace)
}

func TestLoadConfigDiscoversUserDirectory(t *testing.T) {
	isolate(t)
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "airfilter")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "airfilter.yaml"), []byte("shell: zsh\n"), 0o644))

	cfg, err := loadConfig(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "zsh", cfg.Shell)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := loadConfig(nil, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("airfilter.yaml", []byte("namespace: [unclosed\n"), 0o644))

	_, err := loadConfig(nil, "")
	assert.Error(t, err)
}

func TestLoadConfigEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AIRFILTER_NAMESPACE", "airflow-prod")
	t.Setenv("AIRFILTER_PROMPT_TIMEOUT", "30")
	t.Setenv("AIRFILTER_LOG_FILE", "/var/log/airfilter.log")

	cfg, err := loadConfig(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "airflow-prod", cfg.Namespace)
	assert.Equal(t, 30, cfg.PromptTimeout)
	assert.Equal(t, "/var/log/airfilter.log", cfg.LogFile)
}

func TestLoadConfigPrecedence(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("airfilter.yaml", []byte("shell: sh\nlog_level: warn\nworkdir: /srv\n"), 0o644))
	t.Setenv("AIRFILTER_SHELL", "zsh")
	t.Setenv("AIRFILTER_LOG_LEVEL", "error")

	cfg, err := loadConfig(testFlags(t, "--shell", "dash"), "")
	require.NoError(t, err)
	assert.Equal(t, "dash", cfg.Shell, "changed flag beats env")
	assert.Equal(t, "error", cfg.LogLevel, "env beats config file and unchanged flag")
	assert.Equal(t, "/srv", cfg.Workdir, "config file beats unchanged flag")
}

func TestLoadConfigInteractiveFlag(t *testing.T) {
	isolate(t)

	cfg, err := loadConfig(testFlags(t, "-i", "--prompt-timeout", "0"), "")
	require.NoError(t, err)
	assert.True(t, cfg.Interactive)
	assert.Equal(t, 0, cfg.PromptTimeout)
}

func TestLoadConfigNegativeTimeout(t *testing.T) {
	isolate(t)

	_, err := loadConfig(testFlags(t, "--prompt-timeout=-1"), "")
	assert.ErrorContains(t, err, "prompt_timeout")
}

func TestUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "airfilter"), userConfigDir())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/someone")
	assert.Equal(t, filepath.Join("/home/someone", ".config", "airfilter"), userConfigDir())
}
