package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/buckshot/internal/driver"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "BUCKSHOT_GAME", "BUCKSHOT_GAME_DIR", "BUCKSHOT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	want := DefaultConfig()
	want.GeminiAPIKey = "key"
	assert.Equal(t, want, cfg)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "buckshot.yaml")
	data := `
game:
  command: ./roulette
  args: [--fast]
  menu_inputs: ["2", "BOT"]
timings:
  boot: 3s
  phone: 1500ms
model:
  temperature: 0.2
logging:
  level: debug
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./roulette", cfg.Game.Command)
	assert.Equal(t, []string{"--fast"}, cfg.Game.Args)
	assert.Equal(t, []string{"2", "BOT"}, cfg.Game.MenuInputs)
	assert.Equal(t, "/tmp/game_output.log", cfg.Game.LogFile)
	assert.Equal(t, 3*time.Second, cfg.Timings.Boot)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timings.Phone)
	assert.Equal(t, driver.DefaultTimings().Magnifier, cfg.Timings.Magnifier)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model.Name)
	assert.InDelta(t, 0.2, cfg.Model.Temperature, 1e-6)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.ErrorIs(t, cfg.RequireAPIKey(), ErrMissingAPIKey)
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timings:\n  boot: soon\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BUCKSHOT_GAME", "/opt/game/run")
	t.Setenv("BUCKSHOT_GAME_DIR", "/opt/game")
	t.Setenv("BUCKSHOT_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/opt/game/run", cfg.Game.Command)
	assert.Nil(t, cfg.Game.Args)
	assert.Equal(t, "/opt/game", cfg.Game.Dir)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "buckshot.yaml")
	cfg := DefaultConfig()
	cfg.Timings.Settle = 4 * time.Second
	cfg.GeminiAPIKey = "secret"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "settle: 4s")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, loaded.Timings.Settle)
}
