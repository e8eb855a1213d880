package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type PaymentConfig struct {
	Env          string `yaml:"env" env:"PAYMENT_ENV" env-default:"local"`
	HTTPServer   `yaml:"http_server"`
	GRPCServer   `yaml:"grpc_server"`
	LedgerDB     `yaml:"ledger_db"`
	Ledger       `yaml:"ledger"`
	Gateway      `yaml:"gateway"`
	KafkaService `yaml:"kafka"`
	Redis        `yaml:"redis"`
	LogConfig    `yaml:"log_config"`
	Timeouts     `yaml:"timeouts"`
	Reconcile    `yaml:"reconcile"`
	Notification `yaml:"notification"`
}

type HTTPServer struct {
	Host string `yaml:"host" env-default:"0.0.0.0"`
	Port string `yaml:"port" env-default:"8080"`
	// HookSecret is compared with the x-hasura-admin-secret header of inbound
	// event triggers. Empty disables the check.
	HookSecret string `yaml:"hook_secret" env:"PAYMENT_HOOK_SECRET"`
	// WebhookSecret verifies gateway webhook signatures.
	WebhookSecret string `yaml:"webhook_secret" env:"PAYMENT_WEBHOOK_SECRET"`
}

type GRPCServer struct {
	Host string `yaml:"host" env-default:"0.0.0.0"`
	Port string `yaml:"port" env-default:"9090"`
}

type LedgerDB struct {
	Dsn            string `yaml:"dsn" env:"PAYMENT_LEDGER_DSN"`
	MigrationsPath string `yaml:"migrations_path" env-default:"migrations"`
	AutoMigrate    bool   `yaml:"auto_migrate"`
}

// Ledger is the platform GraphQL endpoint used for customer contacts and
// SMS delivery.
type Ledger struct {
	URL         string `yaml:"url" env:"PAYMENT_LEDGER_URL"`
	AdminSecret string `yaml:"admin_secret" env:"PAYMENT_LEDGER_SECRET"`
}

type Gateway struct {
	BaseURL   string `yaml:"base_url" env-default:"https://api.stripe.com"`
	SecretKey string `yaml:"secret_key" env:"PAYMENT_GATEWAY_SECRET_KEY"`
}

type KafkaService struct {
	Brokers         []string `yaml:"brokers" env:"PAYMENT_KAFKA_BROKERS" env-separator:","`
	Username        string   `yaml:"username" env:"PAYMENT_KAFKA_USERNAME"`
	Password        string   `yaml:"password" env:"PAYMENT_KAFKA_PASSWORD"`
	Mechanism       string   `yaml:"mechanism"`
	TLSEnabled      bool     `yaml:"tls_enabled"`
	EventsTopic     string   `yaml:"events_topic" env-default:"payment-events"`
	RequestsTopic   string   `yaml:"requests_topic" env-default:"payment-requests"`
	ConsumerGroup   string   `yaml:"consumer_group" env-default:"payment-service"`
	ConsumerWorkers int      `yaml:"consumer_workers" env-default:"8"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"PAYMENT_REDIS_ADDR"`
	Password string        `yaml:"password" env:"PAYMENT_REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	DedupTTL time.Duration `yaml:"dedup_ttl" env-default:"72h"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env-default:"info"`
	LogFormat string `yaml:"log_format" env-default:"text"`
	LogOutput string `yaml:"log_output" env-default:"stdout"`
	// LogFile is used when LogOutput is "file".
	LogFile       string `yaml:"log_file" env-default:"logs/payment-service.log"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb" env-default:"100"`
	LogMaxBackups int    `yaml:"log_max_backups" env-default:"5"`
	LogMaxAgeDays int    `yaml:"log_max_age_days" env-default:"30"`
}

type Timeouts struct {
	Gateway      time.Duration `yaml:"gateway" env-default:"20s"`
	Store        time.Duration `yaml:"store" env-default:"10s"`
	Notification time.Duration `yaml:"notification" env-default:"10s"`
	Lock         time.Duration `yaml:"lock" env-default:"30s"`
	Shutdown     time.Duration `yaml:"shutdown" env-default:"15s"`
}

type Reconcile struct {
	// OrderSyncPolicy is "operator" or "automatic".
	OrderSyncPolicy string        `yaml:"order_sync_policy" env-default:"operator"`
	SweepInterval   time.Duration `yaml:"sweep_interval" env-default:"1m"`
	SweepBatch      int           `yaml:"sweep_batch" env-default:"100"`
}

type Notification struct {
	Enabled     bool   `yaml:"enabled" env-default:"true"`
	PhonePrefix string `yaml:"phone_prefix" env-default:"+91"`
}

var errConfigPath = errors.New("PAYMENT_CONFIG_PATH was not found")

func MustLoad() *PaymentConfig {
	cfg, err := Load(os.Getenv("PAYMENT_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("%v\n", err)
	}
	return cfg
}

// Load reads the YAML file at path, with environment overrides.
func Load(configPath string) (*PaymentConfig, error) {
	if configPath == "" {
		return nil, errConfigPath
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, err
	}

	// YAML to struct object
	var cfg PaymentConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
