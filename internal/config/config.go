package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Analysis struct {
		UploadDir          string `yaml:"uploadDir"`
		ToolTimeoutSeconds int    `yaml:"toolTimeoutSeconds"`
		SamplePath         string `yaml:"samplePath"`
		MaxUploadMB        int64  `yaml:"maxUploadMB"`
		SandboxImage       string `yaml:"sandboxImage"` // kosong = jalan di host
	} `yaml:"analysis"`

	Tools struct {
		Extra map[string][]string `yaml:"extra"`
	} `yaml:"tools"`

	Log LogConfig `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"` // "" | mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`

		// batas laporan untuk index in-memory (driver kosong)
		MemoryMaxReports int `yaml:"memoryMaxReports"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseURL"`
		Model   string `yaml:"model"`
	} `yaml:"openai"`

	Auth struct {
		APIKeys map[string]string `yaml:"apiKeys"` // client -> key
	} `yaml:"auth"`

	RateLimit struct {
		Capacity        int `yaml:"capacity"`
		RefillPerSecond int `yaml:"refillPerSecond"`
	} `yaml:"rateLimit"`
}

// LogConfig pengaturan logrus + lumberjack
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text | json
	Output     string `yaml:"output"` // stdout | stderr | file
	FilePath   string `yaml:"filePath"`
	MaxSize    int    `yaml:"maxSize"` // MB
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"` // hari
	Compress   bool   `yaml:"compress"`
}

// Default config tanpa file
func Default() *Config {
	var c Config
	c.Server.Port = 5000
	c.Analysis.UploadDir = "uploads"
	c.Analysis.ToolTimeoutSeconds = 25
	c.Analysis.SamplePath = "/mnt/data/A_digital_photograph_displays_a_daytime_landscape_.png"
	c.Analysis.MaxUploadMB = 64
	c.Log = LogConfig{Level: "info", Format: "text", Output: "stdout", MaxSize: 100, MaxBackups: 5, MaxAge: 30}
	c.Database.SSLMode = "disable"
	c.Database.MemoryMaxReports = 1000
	c.Minio.BucketName = "forensic-reports"
	c.RateLimit.Capacity = 30
	c.RateLimit.RefillPerSecond = 1
	return &c
}

// Load baca .env (kalau ada) lalu config.yaml di atas default. A missing
// yaml file is not an error; an empty path means defaults plus env.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("FORENSICS_UPLOAD_DIR", &c.Analysis.UploadDir)
	setString("FORENSICS_SAMPLE_PATH", &c.Analysis.SamplePath)
	setString("FORENSICS_SANDBOX_IMAGE", &c.Analysis.SandboxImage)
	setString("FORENSICS_LOG_LEVEL", &c.Log.Level)
	setString("DATABASE_PASSWORD", &c.Database.Password)
	setString("MINIO_SECRET_KEY", &c.Minio.SecretKey)
	setString("OPENAI_API_KEY", &c.OpenAI.APIKey)
	setString("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	if err := setInt("FORENSICS_TOOL_TIMEOUT", &c.Analysis.ToolTimeoutSeconds); err != nil {
		return err
	}
	return setInt("FORENSICS_PORT", &c.Server.Port)
}

// Validate cek nilai yang tidak masuk akal
func (c *Config) Validate() error {
	if c.Analysis.ToolTimeoutSeconds <= 0 {
		return fmt.Errorf("analysis.toolTimeoutSeconds must be positive, got %d", c.Analysis.ToolTimeoutSeconds)
	}
	if c.Analysis.UploadDir == "" {
		return fmt.Errorf("analysis.uploadDir is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.RateLimit.Capacity <= 0 || c.RateLimit.RefillPerSecond <= 0 {
		return fmt.Errorf("rateLimit.capacity and rateLimit.refillPerSecond must be positive, got %d/%d",
			c.RateLimit.Capacity, c.RateLimit.RefillPerSecond)
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver %q not supported (mysql, postgres)", c.Database.Driver)
	}
	if _, err := forensics.DefaultRegistry(c.ExtraTools()); err != nil {
		return fmt.Errorf("tools.extra: %w", err)
	}
	return nil
}

// ToolTimeout per-tool timeout as a duration.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Analysis.ToolTimeoutSeconds) * time.Second
}

// ExtraTools converts tools.extra into registry templates.
func (c *Config) ExtraTools() map[forensics.ToolName][]string {
	out := make(map[forensics.ToolName][]string, len(c.Tools.Extra))
	for name, argv := range c.Tools.Extra {
		out[forensics.ToolName(name)] = argv
	}
	return out
}

// MinioEnabled true kalau endpoint di-set
func (c *Config) MinioEnabled() bool { return c.Minio.Endpoint != "" }

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
