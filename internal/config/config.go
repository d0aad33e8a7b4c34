package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TEXT2MIND_PORT.
const EnvPrefix = "TEXT2MIND"

// Keys understood by Load.
const (
	KeyPort           = "port"
	KeyAPIKey         = "api_key"
	KeyMaxUploadBytes = "max_upload_bytes"
	KeyWorkerCount    = "worker_count"
	KeyMaxQueueSize   = "max_queue_size"
	KeyJobTTL         = "job_ttl"
	KeyOutputDir      = "output_dir"
	KeyWorkDir        = "work_dir"
	KeyPadding        = "padding"
	KeyThumbnail      = "thumbnail"
	KeyPDFFallback    = "pdf_fallback_pdftotext"
	KeyLogLevel       = "log_level"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL    time.Duration
	OutputDir string

	// Conversion
	WorkDir   string
	Padding   bool
	Thumbnail bool

	// PDF
	PDFFallbackPdftotext bool

	LogLevel string
}

// NewViper returns a viper instance reading TEXT2MIND_* variables with the
// defaults applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyPort, "8088")
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyMaxUploadBytes, int64(50<<20))
	v.SetDefault(KeyWorkerCount, 2)
	v.SetDefault(KeyMaxQueueSize, 100)
	v.SetDefault(KeyJobTTL, time.Hour)
	v.SetDefault(KeyOutputDir, filepath.Join(os.TempDir(), "text2mind"))
	v.SetDefault(KeyWorkDir, "")
	v.SetDefault(KeyPadding, true)
	v.SetDefault(KeyThumbnail, true)
	v.SetDefault(KeyPDFFallback, true)
	v.SetDefault(KeyLogLevel, "info")
	return v
}

// Load reads the configuration from the environment.
func Load() Config {
	return FromViper(NewViper())
}

// FromViper builds a Config from v, which may also carry flags or a config
// file bound by the caller.
func FromViper(v *viper.Viper) Config {
	return Config{
		Port:                 v.GetString(KeyPort),
		APIKey:               v.GetString(KeyAPIKey),
		WorkerCount:          v.GetInt(KeyWorkerCount),
		MaxQueueSize:         v.GetInt(KeyMaxQueueSize),
		MaxUploadBytes:       v.GetInt64(KeyMaxUploadBytes),
		JobTTL:               v.GetDuration(KeyJobTTL),
		OutputDir:            v.GetString(KeyOutputDir),
		WorkDir:              v.GetString(KeyWorkDir),
		Padding:              v.GetBool(KeyPadding),
		Thumbnail:            v.GetBool(KeyThumbnail),
		PDFFallbackPdftotext: v.GetBool(KeyPDFFallback),
		LogLevel:             v.GetString(KeyLogLevel),
	}
}

func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("%s_PORT must be a port number, got %q", EnvPrefix, c.Port)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%s_WORKER_COUNT must be at least 1", EnvPrefix)
	}
	if c.MaxQueueSize < 1 {
		return fmt.Errorf("%s_MAX_QUEUE_SIZE must be at least 1", EnvPrefix)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%s_MAX_UPLOAD_BYTES must be positive", EnvPrefix)
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("%s_JOB_TTL must be positive", EnvPrefix)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%s_OUTPUT_DIR is required", EnvPrefix)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured slog level, or info when it is invalid.
func (c Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
