package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config хранит настройки приложения
type Config struct {
	APIID          int32
	APIHash        string
	BotToken       string
	ServerAddr     string        `yaml:"server" env:"SERVER_ADDR" env-default:":8080"`
	Env            string        `yaml:"env" env:"ENV" env-default:"dev"`
	DBDSN          string        `yaml:"db_dsn" env:"DB_DSN" env-required:"true"`
	SessionBackend string        `yaml:"session_backend" env:"SESSION_BACKEND" env-default:"memory"`
	SessionTTL     time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"10m"`
	RedisAddr      string        `yaml:"redis_addr" env:"REDIS_ADDR" env-default:""`
	RedisPassword  string        `yaml:"redis_password" env:"REDIS_PASSWORD" env-default:""`
	RedisDB        int           `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
}

// Load читает настройки из файла и переменных окружения.
// Секреты телеграма принимаются только из окружения.
func Load() (*Config, error) {
	cfg, err := loadPath(fetchConfigPath())
	if err != nil {
		return nil, err
	}

	apiIDStr := os.Getenv("TELEGRAM_API_ID")
	apiHash := os.Getenv("TELEGRAM_API_HASH")
	botToken := os.Getenv("TELEGRAM_TOKEN")

	if apiIDStr == "" || apiHash == "" || botToken == "" {
		return nil, fmt.Errorf("TELEGRAM_API_ID, TELEGRAM_API_HASH и TELEGRAM_TOKEN должны быть заданы")
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_API_ID: %w", err)
	}

	cfg.APIID = int32(apiID)
	cfg.APIHash = apiHash
	cfg.BotToken = botToken

	if cfg.SessionBackend == "redis" && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR должен быть задан при SESSION_BACKEND=redis")
	}
	return cfg, nil
}

func loadPath(configPath string) (*Config, error) {
	var cfg Config
	if configPath == "" {
		// файла нет — все настройки берутся из окружения
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from env: %w", err)
		}
		return &cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
