package tanuki

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	oldTmp, oldDebug, oldPats := tmpDir, Debug, PatternsFile
	t.Cleanup(func() {
		tmpDir, Debug, PatternsFile = oldTmp, oldDebug, oldPats
	})
}

func TestLoadConfigFile(t *testing.T) {
	restoreGlobals(t)
	path := filepath.Join(t.TempDir(), "tanuki.conf")
	require.NoError(t, os.WriteFile(path, []byte(`
# comment line
TMPDIR=/var/tmp
TANUKI_CONVERTER="debtap-ng"
TANUKI_CONVERT_TIMEOUT=120

malformed line without equals
`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	initConfig(cfg)

	assert.Equal(t, "/var/tmp", tmpDir)
	assert.Equal(t, "debtap-ng", cfg.ConverterTool)
	assert.Equal(t, 2*time.Minute, cfg.ConvertTimeout)
	assert.Equal(t, 10*time.Minute, cfg.InstallIdle)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	restoreGlobals(t)
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.conf"))
	require.NoError(t, err)
	initConfig(cfg)

	assert.Equal(t, "debtap", cfg.ConverterTool)
	assert.Equal(t, 5*time.Minute, cfg.ConvertTimeout)
	assert.Equal(t, 10*time.Minute, cfg.InstallIdle)
	assert.NotEmpty(t, tmpDir)
}

func TestEnvOverridesBeatConfigFile(t *testing.T) {
	restoreGlobals(t)
	path := filepath.Join(t.TempDir(), "tanuki.conf")
	require.NoError(t, os.WriteFile(path, []byte("TANUKI_CONVERTER=from-file\n"), 0o644))

	t.Setenv("TANUKI_CONVERTER", "from-env")
	t.Setenv("TANUKI_INSTALL_IDLE", "30s")
	t.Setenv("TANUKI_PATTERNS", "/custom/patterns.toml")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	initConfig(cfg)

	assert.Equal(t, "from-env", cfg.ConverterTool)
	assert.Equal(t, 30*time.Second, cfg.InstallIdle)
	assert.Equal(t, "/custom/patterns.toml", PatternsFile)
}

func TestDurationValue(t *testing.T) {
	mk := func(v string) *Config {
		return &Config{Values: map[string]string{"K": v}}
	}
	assert.Equal(t, time.Minute, durationValue(mk(""), "K", time.Minute))
	assert.Equal(t, 90*time.Second, durationValue(mk("90"), "K", time.Minute))
	assert.Equal(t, 150*time.Second, durationValue(mk("2m30s"), "K", time.Minute))
	assert.Equal(t, time.Minute, durationValue(mk("banana"), "K", time.Minute))
	assert.Equal(t, time.Minute, durationValue(mk("-5"), "K", time.Minute))
}
