package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port                int    `yaml:"port"`
	DetectorURL         string `yaml:"detector_url"`
	DetectTimeoutMs     int    `yaml:"detect_timeout_ms"`
	ResetDelayMs        int    `yaml:"reset_delay_ms"`
	SampleIntervalMs    int    `yaml:"sample_interval_ms"` // ~one display refresh
	JPEGQuality         int    `yaml:"jpeg_quality"`
	WebcamCanvasWidth   int    `yaml:"webcam_canvas_width"`
	WebcamCanvasHeight  int    `yaml:"webcam_canvas_height"`
	UploadDirectory     string `yaml:"upload_dir"`
	MaxUploadSizeMB     int64  `yaml:"max_upload_mb"`
	UploadMaxAgeMinutes int    `yaml:"upload_max_age_min"`
	UploadSweepInterval int    `yaml:"upload_sweep_interval"` // seconds
	StaticDirectory     string `yaml:"static_dir"`
	LogDirectory        string `yaml:"log_dir"`
	AllowedOrigin       string `yaml:"cors_origin"`
}

// Load builds a Config from environment variables, falling back to defaults.
func Load() *Config {
	return &Config{
		Port:                getEnvAsInt("PORT", 8080),
		DetectorURL:         getEnv("DETECTOR_URL", "http://localhost:8000"),
		DetectTimeoutMs:     getEnvAsInt("DETECT_TIMEOUT_MS", 30000),
		ResetDelayMs:        getEnvAsInt("RESET_DELAY_MS", 1000),
		SampleIntervalMs:    getEnvAsInt("SAMPLE_INTERVAL_MS", 16),
		JPEGQuality:         getEnvAsInt("JPEG_QUALITY", 92),
		WebcamCanvasWidth:   getEnvAsInt("WEBCAM_CANVAS_WIDTH", 640),
		WebcamCanvasHeight:  getEnvAsInt("WEBCAM_CANVAS_HEIGHT", 480),
		UploadDirectory:     getEnv("UPLOAD_DIR", filepath.Join(".", "uploads")),
		MaxUploadSizeMB:     getEnvAsInt64("MAX_UPLOAD_MB", 200),
		UploadMaxAgeMinutes: getEnvAsInt("UPLOAD_MAX_AGE_MIN", 60),
		UploadSweepInterval: getEnvAsInt("UPLOAD_SWEEP_INTERVAL", 300),
		StaticDirectory:     getEnv("STATIC_DIR", filepath.Join(".", "static")),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		AllowedOrigin:       getEnv("CORS_ORIGIN", "*"),
	}
}

// FileFromEnv returns the YAML config path named by CONFIG_FILE, if any.
func FileFromEnv() string {
	return os.Getenv("CONFIG_FILE")
}

// LoadFile applies a YAML file on top of the environment configuration.
// Keys missing from the file keep their environment or default values.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and the detector address.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	u, err := url.Parse(c.DetectorURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("detector_url must be an absolute URL, got %q", c.DetectorURL)
	}
	if c.SampleIntervalMs <= 0 {
		return fmt.Errorf("sample_interval_ms must be positive")
	}
	if c.ResetDelayMs < 0 {
		return fmt.Errorf("reset_delay_ms must not be negative")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be within 1..100, got %d", c.JPEGQuality)
	}
	if c.WebcamCanvasWidth <= 0 || c.WebcamCanvasHeight <= 0 {
		return fmt.Errorf("webcam canvas size must be positive")
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) DetectTimeout() time.Duration {
	return time.Duration(c.DetectTimeoutMs) * time.Millisecond
}

func (c *Config) ResetDelay() time.Duration {
	return time.Duration(c.ResetDelayMs) * time.Millisecond
}

func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

func (c *Config) UploadMaxAge() time.Duration {
	return time.Duration(c.UploadMaxAgeMinutes) * time.Minute
}

// MaxUploadBytes is the per-file upload limit.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
