package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers for the document store.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Storage struct {
		Driver string `yaml:"driver"`
		Dir    string `yaml:"dir"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Title           string `yaml:"title"`
		TimePerQuestion int    `yaml:"time_per_question"`
		Difficulty      string `yaml:"difficulty"`
		TTL             string `yaml:"ttl"`
	} `yaml:"quiz"`
	Admin struct {
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
		PasswordHash string `yaml:"password_hash"`
		LoginRate    string `yaml:"login_rate"`
	} `yaml:"admin"`
	Client struct {
		ServerURL string `yaml:"server_url"`
		StateDir  string `yaml:"state_dir"`
	} `yaml:"client"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = "5s"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Log.Level = "info"
	cfg.Storage.Driver = DriverFile
	cfg.Storage.Dir = "data"
	cfg.Redis.TTL = "10m"
	cfg.Quiz.Title = "Java MCQ Quiz"
	cfg.Quiz.TimePerQuestion = 30
	cfg.Quiz.TTL = "10m"
	cfg.Admin.Username = "admin"
	cfg.Admin.LoginRate = "5/m"
	cfg.Client.ServerURL = "http://localhost:8080"
	cfg.Client.StateDir = ".quiz"
	return cfg
}

// Load reads YAML config from path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverFile
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("QUIZ_ADMIN_USERNAME"); v != "" {
		cfg.Admin.Username = v
	}
	if v := os.Getenv("QUIZ_ADMIN_PASSWORD"); v != "" {
		cfg.Admin.Password = v
	}
	if v := os.Getenv("QUIZ_ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Admin.PasswordHash = v
	}
	if v := os.Getenv("QUIZ_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("QUIZ_SERVER_URL"); v != "" {
		cfg.Client.ServerURL = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Rate parses "N/s", "N/m" or "N/h" into events per second and burst N.
// Malformed input yields the fallback.
func Rate(raw string, fallbackPerSecond float64, fallbackBurst int) (float64, int) {
	parts := strings.SplitN(strings.TrimSpace(raw), "/", 2)
	if len(parts) != 2 {
		return fallbackPerSecond, fallbackBurst
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n <= 0 {
		return fallbackPerSecond, fallbackBurst
	}
	var per time.Duration
	switch parts[1] {
	case "s":
		per = time.Second
	case "m":
		per = time.Minute
	case "h":
		per = time.Hour
	default:
		return fallbackPerSecond, fallbackBurst
	}
	return float64(n) / per.Seconds(), n
}
