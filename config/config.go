package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type JWTConfig struct {
	SecretKey string `mapstructure:"secretKey"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// ProviderConfig describes one named model backend.
type ProviderConfig struct {
	// Kind is "openai" for any chat-completion compatible gateway or "gemini".
	Kind        string  `mapstructure:"kind"`
	BaseURL     string  `mapstructure:"baseURL"`
	Model       string  `mapstructure:"model"`
	APIKeyEnv   string  `mapstructure:"apiKeyEnv"`
	Temperature float32 `mapstructure:"temperature"`
	WebSearch   bool    `mapstructure:"webSearch"`
	// JSONMode asks the backend for a JSON object when the caller expects one.
	JSONMode bool `mapstructure:"jsonMode"`
	// RPS throttles outbound calls; zero disables throttling.
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type AIConfig struct {
	Providers      map[string]ProviderConfig `mapstructure:"providers"`
	RequestTimeout time.Duration             `mapstructure:"requestTimeout"`
}

type RetryConfig struct {
	MaxRetries int           `mapstructure:"maxRetries"`
	BaseDelay  time.Duration `mapstructure:"baseDelay"`
	MaxDelay   time.Duration `mapstructure:"maxDelay"`
}

type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanupInterval"`
	Redis           struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`

		// DiscoverRequestsPerMinute throttles the public discovery endpoint per IP.
		DiscoverRequestsPerMinute int `mapstructure:"discoverRequestsPerMinute"`
	} `mapstructure:"server"`
	JWT   JWTConfig   `mapstructure:"jwt"`
	AI    AIConfig    `mapstructure:"ai"`
	Retry RetryConfig `mapstructure:"retry"`
	Cache CacheConfig `mapstructure:"cache"`
	CORS  struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Env vars win over files, e.g. JWT_SECRETKEY or REPOSITORIES_POSTGRES_PASSWORD.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
