package process

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opdss/tabexport/cfgstruct"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

type testConfig struct {
	Name  string        `default:"tabexport"`
	Rows  int           `default:"100"`
	Delay time.Duration `default:"1s"`
	Db    struct {
		Dsn string `default:"$ROOT/a.db"`
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	var conf testConfig
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config-dir", dir, "")
	Bind(cmd, &conf, cfgstruct.ConfDir(dir))

	out := filepath.Join(dir, DefaultCfgFilename)
	require.NoError(t, SaveConfig(cmd, out, map[string]any{"rows": 500}))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, yaml.Unmarshal(b, &saved))
	assert.Equal(t, "tabexport", saved["name"])
	assert.Equal(t, 500, saved["rows"])
	assert.Equal(t, map[any]any{"dsn": filepath.Join(dir, "a.db")}, saved["db"])
	assert.NotContains(t, saved, "config-dir")

	vip := viper.New()
	require.NoError(t, vip.BindPFlags(cmd.Flags()))
	require.NoError(t, LoadConfig(cmd, vip))
	_, _ = applyConfig(cmd, vip)
	assert.Equal(t, 500, conf.Rows)
	assert.Equal(t, time.Second, conf.Delay)
}

func TestNewLogger(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "export.log")
	logger, err := NewLogger(LogConfig{Level: "info", Encoding: "json", File: file, MaxSize: 1})
	require.NoError(t, err)
	logger.Info("export done")
	logger.Debug("hidden")
	_ = logger.Sync()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), "export done")
	assert.NotContains(t, string(b), "hidden")

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}
