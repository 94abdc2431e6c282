package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Network endpoints are compiled in; neither env nor the config file can move them.
const (
	RPCEndpoint      = "https://nyc83.nodes.rpcpool.com"
	LimitOrderAPIURL = "https://jup.ag/api/limit/v1"
)

type Server struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Network struct {
	RPCEndpoint   string `yaml:"-"`
	LimitOrderAPI string `yaml:"-"`
	Commitment    string `yaml:"commitment"`
	// ConfirmPoll is the getSignatureStatuses polling interval
	ConfirmPoll time.Duration `yaml:"confirm_poll"`
	// ConfirmTimeout bounds waiting for confirmation. A blockhash expires
	// after ~150 slots, so waiting much longer than that cannot succeed.
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	APITimeout     time.Duration `yaml:"api_timeout"`
}

type Keystore struct {
	Path       string `yaml:"path"`
	Passphrase string `yaml:"-"` // env only
}

type Log struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	TxLogFile string `yaml:"tx_log_file"`
}

type Config struct {
	Server   Server   `yaml:"server"`
	Network  Network  `yaml:"network"`
	Keystore Keystore `yaml:"keystore"`
	Log      Log      `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Network: Network{
			RPCEndpoint:    RPCEndpoint,
			LimitOrderAPI:  LimitOrderAPIURL,
			Commitment:     "confirmed",
			ConfirmPoll:    500 * time.Millisecond,
			ConfirmTimeout: 90 * time.Second,
			APITimeout:     30 * time.Second,
		},
		Keystore: Keystore{
			Path: "data/keystore",
		},
		Log: Log{
			Level:     "info",
			File:      "data/airship.log",
			TxLogFile: "data/transactions.log",
		},
	}
}

// Addr is the listen address for the HTTP server
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// LoadFromEnv loads configuration from an optional YAML file, the .env file
// (if exists) and environment variables.
// Priority: ENV > .env file > YAML file (AIRSHIP_CONFIG) > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if path := os.Getenv("AIRSHIP_CONFIG"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return cfg, fmt.Errorf("invalid PORT %q", port)
		}
		cfg.Server.Port = p
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}

	if ms := os.Getenv("CONFIRM_POLL_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			cfg.Network.ConfirmPoll = time.Duration(v) * time.Millisecond
		}
	}
	if ms := os.Getenv("CONFIRM_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v >= 0 {
			cfg.Network.ConfirmTimeout = time.Duration(v) * time.Millisecond
		}
	}

	switch cfg.Network.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return cfg, fmt.Errorf("invalid network.commitment %q", cfg.Network.Commitment)
	}

	cfg.Keystore.Path = getEnv("KEYSTORE_PATH", cfg.Keystore.Path)
	cfg.Keystore.Passphrase = getEnv("KEYSTORE_PASSPHRASE", cfg.Keystore.Passphrase)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.TxLogFile = getEnv("TX_LOG_FILE", cfg.Log.TxLogFile)

	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
