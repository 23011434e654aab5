package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	SourceFile      = "file"
	SourceConfigMap = "configmap"
)

type Config struct {
	Server     ServerConfig
	Model      ModelConfig
	Kubernetes KubernetesConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Metrics    MetricsConfig
	Predict    PredictConfig
	Logger     LoggerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type ModelConfig struct {
	Source             string
	Path               string
	Watch              bool
	WatchDebounce      time.Duration
	ConfigMapNamespace string
	ConfigMapName      string
	ConfigMapKey       string
}

type KubernetesConfig struct {
	InCluster      bool
	KubeConfigPath string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

// DSN builds a postgres URL with the credentials escaped.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type CacheConfig struct {
	Enabled bool
	Size    int
}

type MetricsConfig struct {
	Enabled bool
}

type PredictConfig struct {
	BatchMax int
}

type LoggerConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// flagKeys maps command line flags onto the env keys they override.
var flagKeys = map[string]string{
	"port":      "SERVER_PORT",
	"model":     "MODEL_PATH",
	"log-level": "LOGGER_LEVEL",
}

func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags reads the environment and lets any flag set on the command line win.
func LoadWithFlags(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("MODEL_SOURCE", SourceFile)
	v.SetDefault("MODEL_PATH", "models/promotion_model.json")
	v.SetDefault("MODEL_WATCH", false)
	v.SetDefault("MODEL_WATCH_DEBOUNCE", "500ms")
	v.SetDefault("MODEL_CONFIGMAP_NAMESPACE", "default")
	v.SetDefault("MODEL_CONFIGMAP_NAME", "promotion-model")
	v.SetDefault("MODEL_CONFIGMAP_KEY", "promotion_model.json")
	v.SetDefault("KUBERNETES_IN_CLUSTER", false)
	v.SetDefault("KUBERNETES_KUBECONFIG", "")
	v.SetDefault("DATABASE_ENABLED", false)
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_NAME", "promotion")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_CONNS", 10)
	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_SIZE", 1024)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("PREDICT_BATCH_MAX", 100)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")
	v.SetDefault("LOGGER_FILE", "")
	v.SetDefault("LOGGER_MAX_SIZE_MB", 100)
	v.SetDefault("LOGGER_MAX_BACKUPS", 3)
	v.SetDefault("LOGGER_MAX_AGE_DAYS", 28)

	// Env
	v.AutomaticEnv()

	// Flags
	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	debounce, err := time.ParseDuration(v.GetString("MODEL_WATCH_DEBOUNCE"))
	if err != nil {
		debounce = 500 * time.Millisecond
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Model: ModelConfig{
			Source:             v.GetString("MODEL_SOURCE"),
			Path:               v.GetString("MODEL_PATH"),
			Watch:              v.GetBool("MODEL_WATCH"),
			WatchDebounce:      debounce,
			ConfigMapNamespace: v.GetString("MODEL_CONFIGMAP_NAMESPACE"),
			ConfigMapName:      v.GetString("MODEL_CONFIGMAP_NAME"),
			ConfigMapKey:       v.GetString("MODEL_CONFIGMAP_KEY"),
		},
		Kubernetes: KubernetesConfig{
			InCluster:      v.GetBool("KUBERNETES_IN_CLUSTER"),
			KubeConfigPath: v.GetString("KUBERNETES_KUBECONFIG"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DATABASE_ENABLED"),
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
			MaxConns: v.GetInt("DATABASE_MAX_CONNS"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("CACHE_ENABLED"),
			Size:    v.GetInt("CACHE_SIZE"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Predict: PredictConfig{
			BatchMax: v.GetInt("PREDICT_BATCH_MAX"),
		},
		Logger: LoggerConfig{
			Level:      v.GetString("LOGGER_LEVEL"),
			Format:     v.GetString("LOGGER_FORMAT"),
			File:       v.GetString("LOGGER_FILE"),
			MaxSizeMB:  v.GetInt("LOGGER_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOGGER_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOGGER_MAX_AGE_DAYS"),
		},
	}

	if cfg.Model.Source != SourceFile && cfg.Model.Source != SourceConfigMap {
		return nil, fmt.Errorf("invalid MODEL_SOURCE %q: want %q or %q", cfg.Model.Source, SourceFile, SourceConfigMap)
	}
	if cfg.Cache.Enabled && cfg.Cache.Size <= 0 {
		return nil, fmt.Errorf("CACHE_SIZE must be positive, got %d", cfg.Cache.Size)
	}

	return cfg, nil
}
