package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type ProductCacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"PRODUCT_CACHE_ENABLED" env-default:"true"`
	TTL     time.Duration `yaml:"ttl" env:"PRODUCT_CACHE_TTL" env-default:"5m"`
}

type CartConfig struct {
	StorageKey  string        `yaml:"storage_key" env:"CART_STORAGE_KEY" env-default:"cart"`
	Storage     string        `yaml:"storage" env:"CART_STORAGE_BACKEND" env-default:"redis"`
	TTL         time.Duration `yaml:"ttl" env:"CART_TTL" env-default:"720h"`
	SaveTimeout time.Duration `yaml:"save_timeout" env:"CART_SAVE_TIMEOUT" env-default:"2s"`
	LoadTimeout time.Duration `yaml:"load_timeout" env:"CART_LOAD_TIMEOUT" env-default:"2s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"CART_IDLE_TIMEOUT" env-default:"30m"`
	SweepEvery  time.Duration `yaml:"sweep_every" env:"CART_SWEEP_INTERVAL" env-default:"5m"`
}

type CatalogConfig struct {
	BaseURL string        `yaml:"base_url" env:"CATALOG_API_URL" env-default:"http://localhost:5000/api"`
	Timeout time.Duration `yaml:"timeout" env:"CATALOG_API_TIMEOUT" env-default:"5s"`
}

type Config struct {
	Env          string             `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer   HTTPServerConfig   `yaml:"http_server"`
	GRPCServer   GRPCServerConfig   `yaml:"grpc_server"`
	MongoDB      MongoDBConfig      `yaml:"mongo"`
	Redis        RedisConfig        `yaml:"redis"`
	NATS         NATSConfig         `yaml:"nats"`
	Logger       LoggerConfig       `yaml:"logger"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Cart         CartConfig         `yaml:"cart"`
	ProductCache ProductCacheConfig `yaml:"product_cache"`
}

type HTTPServerConfig struct {
	Port            string        `yaml:"port" env:"HTTP_PORT_CART_SERVICE" env-default:"8085"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	TimeoutGraceful time.Duration `yaml:"timeout_graceful_shutdown" env-default:"15s"`
}

type GRPCServerConfig struct {
	Port              string        `yaml:"port" env:"GRPC_PORT_CART_SERVICE" env-default:"50058"`
	MaxConnectionIdle time.Duration `yaml:"max_connection_idle" env-default:"15m"`
	TimeoutGraceful   time.Duration `yaml:"timeout_graceful_shutdown" env-default:"15s"`
}

type MongoDBConfig struct {
	URI        string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	User       string `yaml:"user" env:"MONGO_USER"`
	Password   string `yaml:"password" env:"MONGO_PASSWORD"`
	Database   string `yaml:"database" env:"MONGO_DATABASE" env-default:"cart_service_db"`
	Collection string `yaml:"collection" env:"MONGO_CART_COLLECTION" env-default:"cart_snapshots"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled" env:"NATS_ENABLED" env-default:"false"`
	URL     string `yaml:"url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	Subject string `yaml:"cart_subject" env:"NATS_CART_SUBJECT" env-default:"cart.events"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT" env-default:"2006-01-02T15:04:05.000Z07:00"`
}

func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	err := cleanenv.ReadConfig(path, &cfg)
	if err != nil {
		if _, ok := err.(*os.PathError); ok {
			log.Printf("Warning: config file not found at %s, loading from environment variables only.", path)
			if errEnv := cleanenv.ReadEnv(&cfg); errEnv != nil {
				return nil, errEnv
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH_CART_SERVICE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	return cfg
}
