package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/cloud-ru/sky-financial-go/internal/calculations"
)

// Bounds задает допустимые диапазоны входных данных одного калькулятора
type Bounds struct {
	MinAmount     float64 `mapstructure:"min_amount" yaml:"min_amount"`
	MaxAmount     float64 `mapstructure:"max_amount" yaml:"max_amount"`
	MinRate       float64 `mapstructure:"min_rate" yaml:"min_rate"`
	MaxRate       float64 `mapstructure:"max_rate" yaml:"max_rate"`
	MinYears      int     `mapstructure:"min_years" yaml:"min_years"`
	MaxYears      int     `mapstructure:"max_years" yaml:"max_years"`
	MaxDeductions float64 `mapstructure:"max_deductions" yaml:"max_deductions"`
}

// Config содержит конфигурацию сервера
type Config struct {
	Port            int               `mapstructure:"port"`
	LogLevel        string            `mapstructure:"log_level"`
	LogFormat       string            `mapstructure:"log_format"`
	OTELEndpoint    string            `mapstructure:"otel_endpoint"`
	OTELServiceName string            `mapstructure:"otel_service_name"`
	Limits          map[string]Bounds `mapstructure:"limits"`
	Cache           CacheConfig       `mapstructure:"cache"`
	Chat            ChatConfig        `mapstructure:"chat"`
}

// CacheConfig настраивает кеш результатов
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// ChatConfig настраивает клиента языковой модели
type ChatConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// SessionTTL - время жизни неактивной сессии чата на сервере
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// Значения по умолчанию повторяют диапазоны ползунков калькулятора
var defaultLimits = map[calculations.Kind]Bounds{
	calculations.KindSIP:     {MinAmount: 500, MaxAmount: 500000, MinRate: 1, MaxRate: 30, MinYears: 1, MaxYears: 40},
	calculations.KindLumpsum: {MinAmount: 500, MaxAmount: 500000, MinRate: 1, MaxRate: 30, MinYears: 1, MaxYears: 40},
	calculations.KindEMI:     {MinAmount: 500, MaxAmount: 10000000, MinRate: 1, MaxRate: 30, MinYears: 1, MaxYears: 40},
	calculations.KindPPF:     {MinAmount: 500, MaxAmount: 500000, MinRate: 1, MaxRate: 30, MinYears: 1, MaxYears: 50},
	calculations.KindTax:     {MinAmount: 500000, MaxAmount: 5000000, MaxDeductions: 500000},
}

// LoadConfig загружает конфигурацию из .env, файла CONFIG_FILE и переменных окружения
func LoadConfig() (*Config, error) {
	// Загружаем .env файл, если он существует (игнорируем ошибку)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Ключ API остается совместимым с исходным приложением
	_ = v.BindEnv("chat.api_key", "CHAT_API_KEY", "API_KEY")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("otel_service_name", "sky-financial")

	for kind, b := range defaultLimits {
		prefix := "limits." + strings.ToLower(string(kind)) + "."
		v.SetDefault(prefix+"min_amount", b.MinAmount)
		v.SetDefault(prefix+"max_amount", b.MaxAmount)
		v.SetDefault(prefix+"min_rate", b.MinRate)
		v.SetDefault(prefix+"max_rate", b.MaxRate)
		v.SetDefault(prefix+"min_years", b.MinYears)
		v.SetDefault(prefix+"max_years", b.MaxYears)
		v.SetDefault(prefix+"max_deductions", b.MaxDeductions)
	}

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("chat.api_key", "")
	v.SetDefault("chat.model", "gemini-2.5-flash")
	v.SetDefault("chat.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("chat.timeout", 60*time.Second)
	v.SetDefault("chat.session_ttl", 30*time.Minute)
}

// BoundsFor возвращает диапазоны для калькулятора kind
func (c *Config) BoundsFor(kind calculations.Kind) Bounds {
	if b, ok := c.Limits[strings.ToLower(string(kind))]; ok {
		return b
	}
	return defaultLimits[kind]
}

// Default возвращает конфигурацию со значениями по умолчанию без чтения окружения
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}
