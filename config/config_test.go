package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"CATALOG_FILEINFO_URL", "CATALOG_DETAILS_URL", "CATALOG_USER", "CATALOG_PASSWORD", "CATALOG_TIMEOUT",
	"SOURCE_ROOT", "SEED_IDENTIFIER", "STOP_IDENTIFIER", "CHECKPOINT_CADENCE", "ERROR_THRESHOLD", "TOLERANCE",
	"DPI", "DIMENSION", "STATE_DIR", "IMAGE_DIR", "RESIZED_DIR", "MASK_DIR", "WORKERS",
	"LEDGER_PATH", "CRON_EXPR", "STATUS_ADDR", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID",
	"LOG_LEVEL", "LOG_FORMAT", "CONFIG_FILE",
}

// setEnv очищает все ключи конфигурации и задаёт обязательные
func setEnv(t *testing.T, extra map[string]string) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
	t.Setenv("CATALOG_FILEINFO_URL", "http://catalog/fileinfo")
	t.Setenv("CATALOG_DETAILS_URL", "http://catalog/details")
	t.Setenv("SOURCE_ROOT", "/mnt/share")
	for k, v := range extra {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, nil)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, int64(1218610), cfg.Scan.Seed)
	require.Equal(t, 100, cfg.Scan.Cadence)
	require.Equal(t, 100, cfg.Scan.ErrorThreshold)
	require.Equal(t, 0.02, cfg.Scan.Tolerance)
	require.Equal(t, 300.0, cfg.Dataset.DPI)
	require.Equal(t, 2048, cfg.Dataset.Dimension)
	require.Equal(t, "/roi/latest_roi_repro_2048", cfg.Dataset.ResizedDir)
	require.Equal(t, "/roi/latest_roi_repro_gaussian_2048", cfg.Dataset.MaskDir)
	require.Equal(t, 30*time.Second, cfg.Catalog.Timeout)
	require.Equal(t, ".", cfg.StateDir)
	require.Equal(t, 1, cfg.Dataset.Workers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"DIMENSION":          "512",
		"IMAGE_DIR":          "/data/roi",
		"CHECKPOINT_CADENCE": "10",
		"CATALOG_TIMEOUT":    "5s",
		"STOP_IDENTIFIER":    "1300000",
		"CRON_EXPR":          "0 3 * * *",
	})

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/data/roi_512", cfg.Dataset.ResizedDir)
	require.Equal(t, "/data/roi_gaussian_512", cfg.Dataset.MaskDir)
	require.Equal(t, 10, cfg.Scan.Cadence)
	require.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
	require.Equal(t, int64(1300000), cfg.Scan.Stop)
	require.Equal(t, "0 3 * * *", cfg.CronExpr)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvester.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  timeout: 45s
scan:
  seed: 42
dataset:
  dimension: 256
  workers: 4
telegram:
  token: abc
  chat_id: 99
`), 0o644))
	setEnv(t, map[string]string{"CONFIG_FILE": path, "WORKERS": "2"})

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, int64(42), cfg.Scan.Seed)
	require.Equal(t, 256, cfg.Dataset.Dimension)
	require.Equal(t, 4, cfg.Dataset.Workers)
	require.Equal(t, 45*time.Second, cfg.Catalog.Timeout)
	require.Equal(t, "/roi/latest_roi_repro_256", cfg.Dataset.ResizedDir)
	require.Equal(t, int64(99), cfg.Telegram.ChatID)
	// Поля, которых нет в файле, остаются из окружения
	require.Equal(t, "http://catalog/fileinfo", cfg.Catalog.FileInfoURL)
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing source":     {"SOURCE_ROOT": ""},
		"zero cadence":       {"CHECKPOINT_CADENCE": "0"},
		"tolerance too big":  {"TOLERANCE": "1.5"},
		"small dimension":    {"DIMENSION": "2"},
		"stop below seed":    {"STOP_IDENTIFIER": "10"},
		"telegram w/o chat":  {"TELEGRAM_TOKEN": "abc"},
		"bad cron":           {"CRON_EXPR": "every day"},
		"bad log level":      {"LOG_LEVEL": "loud"},
		"missing yaml file":  {"CONFIG_FILE": "/nonexistent/harvester.yaml"},
		"missing detail url": {"CATALOG_DETAILS_URL": ""},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setEnv(t, env)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Log: LogConfig{Level: "warn", Format: "json"}}
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
}
