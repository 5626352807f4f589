package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloud-ru/sky-financial-go/internal/calculations"
	"github.com/cloud-ru/sky-financial-go/internal/config"
)

// Cache хранит сериализованные результаты расчетов
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// New создает кеш по настройкам: memory или redis
func New(cfg config.CacheConfig) (Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryCache(cfg.TTL), nil
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.TTL), nil
	}
	return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
}

// Key строит ключ кеша из типа калькулятора и значимых для него полей
func Key(kind calculations.Kind, in calculations.Input) string {
	parts := []string{"calc", string(kind), formatFloat(in.Amount)}
	if kind == calculations.KindTax {
		parts = append(parts, formatFloat(in.Deductions))
	} else {
		parts = append(parts, formatFloat(in.Rate), strconv.Itoa(in.Duration))
	}
	return strings.Join(parts, ":")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
