package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config armazena todas as configurações do serviço de estoque.
type Config struct {
	// Geral
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Armazenamento: "memory" (processo único) ou "postgres".
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`

	// Banco de Dados (PostgreSQL)
	DatabaseURL     string        `env:"DATABASE_URL"`
	DBTimeout       time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns  int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnLifetime  time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnIdleLimit time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`

	// Cache (Redis)
	RedisAddr    string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	CacheTimeout time.Duration `env:"CACHE_TIMEOUT" envDefault:"10s"`
	WarehouseTTL time.Duration `env:"WAREHOUSE_CACHE_TTL" envDefault:"5m"`

	// Segurança (JWT)
	JWTSecretKey string        `env:"JWT_SECRET_KEY,required,notEmpty"`
	TokenExpiry  time.Duration `env:"JWT_EXPIRY" envDefault:"60m"`

	// API_CLIENTS=checkout=service:<bcrypt>,ana=operator:<bcrypt>
	APIClients map[string]string `env:"API_CLIENTS" envKeyValSeparator:"="`

	// Rate Limiting
	RateLimitMaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100"`
	RateLimitPeriod      time.Duration `env:"RATE_LIMIT_PERIOD" envDefault:"1m"`

	// Reservas e jobs
	ReservationTTL     time.Duration `env:"RESERVATION_TTL" envDefault:"15m"`
	SweepInterval      time.Duration `env:"RESERVATION_SWEEP_INTERVAL" envDefault:"1m"`
	AlertCheckInterval time.Duration `env:"LOW_STOCK_CHECK_INTERVAL" envDefault:"30m"`
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
// O .env (se existir) deve ter sido carregado antes pelo godotenv.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifica combinações que as tags não expressam.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL deve ser definida quando STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER inválido: %q", c.StorageDriver)
	}
	if c.ReservationTTL <= 0 {
		return fmt.Errorf("RESERVATION_TTL deve ser positivo")
	}
	return nil
}
