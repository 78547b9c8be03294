package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	defaultSeed           = 1218610
	defaultCadence        = 100
	defaultThreshold      = 100
	defaultTolerance      = 0.02
	defaultDPI            = 300
	defaultDimension      = 2048
	defaultImageDir       = "/roi/latest_roi_repro"
	defaultCatalogTimeout = 30 * time.Second
)

// Config конфигурация сборщика
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Scan     ScanConfig     `yaml:"scan"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Telegram TelegramConfig `yaml:"telegram"`
	Log      LogConfig      `yaml:"log"`

	StateDir   string `yaml:"state_dir"`
	LedgerPath string `yaml:"ledger_path"`
	CronExpr   string `yaml:"cron"`
	StatusAddr string `yaml:"status_addr"`
}

// CatalogConfig доступ к каталогу и реестру размеров
type CatalogConfig struct {
	FileInfoURL string        `yaml:"fileinfo_url"`
	DetailsURL  string        `yaml:"details_url"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ScanConfig параметры сканера
type ScanConfig struct {
	SourceRoot     string  `yaml:"source_root"`
	Seed           int64   `yaml:"seed"`
	Stop           int64   `yaml:"stop"`
	Cadence        int     `yaml:"cadence"`
	ErrorThreshold int     `yaml:"error_threshold"`
	Tolerance      float64 `yaml:"tolerance"`
}

// DatasetConfig параметры выборки
type DatasetConfig struct {
	DPI        float64 `yaml:"dpi"`
	Dimension  int     `yaml:"dimension"`
	ImageDir   string  `yaml:"image_dir"`
	ResizedDir string  `yaml:"resized_dir"`
	MaskDir    string  `yaml:"mask_dir"`
	Workers    int     `yaml:"workers"`
}

// TelegramConfig уведомления об итогах прогонов
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// LogConfig параметры логгера
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load читает .env, переменные окружения и, если задан CONFIG_FILE, YAML поверх них.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		Catalog: CatalogConfig{
			FileInfoURL: os.Getenv("CATALOG_FILEINFO_URL"),
			DetailsURL:  os.Getenv("CATALOG_DETAILS_URL"),
			User:        os.Getenv("CATALOG_USER"),
			Password:    os.Getenv("CATALOG_PASSWORD"),
			Timeout:     getEnvDuration("CATALOG_TIMEOUT", defaultCatalogTimeout),
		},
		Scan: ScanConfig{
			SourceRoot:     os.Getenv("SOURCE_ROOT"),
			Seed:           getEnvInt64("SEED_IDENTIFIER", defaultSeed),
			Stop:           getEnvInt64("STOP_IDENTIFIER", 0),
			Cadence:        int(getEnvInt64("CHECKPOINT_CADENCE", defaultCadence)),
			ErrorThreshold: int(getEnvInt64("ERROR_THRESHOLD", defaultThreshold)),
			Tolerance:      getEnvFloat("TOLERANCE", defaultTolerance),
		},
		Dataset: DatasetConfig{
			DPI:        getEnvFloat("DPI", defaultDPI),
			Dimension:  int(getEnvInt64("DIMENSION", defaultDimension)),
			ImageDir:   getEnvString("IMAGE_DIR", defaultImageDir),
			ResizedDir: os.Getenv("RESIZED_DIR"),
			MaskDir:    os.Getenv("MASK_DIR"),
			Workers:    int(getEnvInt64("WORKERS", 1)),
		},
		Telegram: TelegramConfig{
			Token:  os.Getenv("TELEGRAM_TOKEN"),
			ChatID: getEnvInt64("TELEGRAM_CHAT_ID", 0),
		},
		Log: LogConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "text"),
		},
		StateDir:   getEnvString("STATE_DIR", "."),
		LedgerPath: os.Getenv("LEDGER_PATH"),
		CronExpr:   os.Getenv("CRON_EXPR"),
		StatusAddr: os.Getenv("STATUS_ADDR"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayFile перекрывает значения полями, заданными в YAML-файле.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyDefaults выводит каталоги растров и масок из IMAGE_DIR и размера.
func (c *Config) applyDefaults() {
	if c.Dataset.ResizedDir == "" {
		c.Dataset.ResizedDir = fmt.Sprintf("%s_%d", c.Dataset.ImageDir, c.Dataset.Dimension)
	}
	if c.Dataset.MaskDir == "" {
		c.Dataset.MaskDir = fmt.Sprintf("%s_gaussian_%d", c.Dataset.ImageDir, c.Dataset.Dimension)
	}
	if c.StateDir == "" {
		c.StateDir = "."
	}
}

// validate проверяет обязательные параметры и диапазоны
func (c *Config) validate() error {
	var errs []error
	if c.Catalog.FileInfoURL == "" {
		errs = append(errs, errors.New("CATALOG_FILEINFO_URL is required"))
	}
	if c.Catalog.DetailsURL == "" {
		errs = append(errs, errors.New("CATALOG_DETAILS_URL is required"))
	}
	if c.Scan.SourceRoot == "" {
		errs = append(errs, errors.New("SOURCE_ROOT is required"))
	}
	if c.Scan.Cadence <= 0 {
		errs = append(errs, fmt.Errorf("CHECKPOINT_CADENCE must be positive, got %d", c.Scan.Cadence))
	}
	if c.Scan.ErrorThreshold <= 0 {
		errs = append(errs, fmt.Errorf("ERROR_THRESHOLD must be positive, got %d", c.Scan.ErrorThreshold))
	}
	if c.Scan.Tolerance <= 0 || c.Scan.Tolerance >= 1 {
		errs = append(errs, fmt.Errorf("TOLERANCE must be in (0, 1), got %g", c.Scan.Tolerance))
	}
	if c.Scan.Stop != 0 && c.Scan.Stop < c.Scan.Seed {
		errs = append(errs, fmt.Errorf("STOP_IDENTIFIER %d is below SEED_IDENTIFIER %d", c.Scan.Stop, c.Scan.Seed))
	}
	if c.Dataset.DPI <= 0 {
		errs = append(errs, fmt.Errorf("DPI must be positive, got %g", c.Dataset.DPI))
	}
	if c.Dataset.Dimension < 3 {
		errs = append(errs, fmt.Errorf("DIMENSION must be at least 3, got %d", c.Dataset.Dimension))
	}
	if c.Dataset.Workers <= 0 {
		errs = append(errs, fmt.Errorf("WORKERS must be positive, got %d", c.Dataset.Workers))
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required with TELEGRAM_TOKEN"))
	}
	if c.CronExpr != "" {
		if _, err := cron.ParseStandard(c.CronExpr); err != nil {
			errs = append(errs, fmt.Errorf("CRON_EXPR: %w", err))
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NewLogger строит логгер по настройкам LOG_LEVEL и LOG_FORMAT.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// getEnvString возвращает значение переменной или значение по умолчанию
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return defaultValue
}
