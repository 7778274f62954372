package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "formfill", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Browser.IdleWindow)
	assert.Equal(t, 2*time.Second, cfg.Analyzer.SettleDelay)
	assert.Equal(t, 500, cfg.Filler.Speed)
	assert.Equal(t, 500*time.Millisecond, cfg.Filler.SpeedDuration())
	assert.Equal(t, 3*time.Second, cfg.Filler.SubmitHold)
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "local", cfg.AI.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Filler.Speed)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formfill.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
filler:
  speed: 120
analyzer:
  settle_delay: 750ms
database:
  dsn: postgres://file@localhost/formfill
`), 0o600))

	t.Setenv("FORMFILL_DATABASE_DSN", "postgres://env@localhost/formfill")
	t.Setenv("FORMFILL_AI_PROVIDER", "openai")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Filler.Speed)
	assert.Equal(t, 750*time.Millisecond, cfg.Analyzer.SettleDelay)
	assert.Equal(t, "postgres://env@localhost/formfill", cfg.Database.DSN)
	assert.Equal(t, "openai", cfg.AI.Provider)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Filler.Speed = -1
	assert.ErrorContains(t, cfg.Validate(), "filler.speed")

	cfg = NewDefaultConfig()
	cfg.AI.Provider = "gemini"
	assert.ErrorContains(t, cfg.Validate(), "ai.provider")

	cfg = NewDefaultConfig()
	cfg.Browser.Width = 0
	assert.Error(t, cfg.Validate())
}
