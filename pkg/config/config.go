package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"

	PolicyReject = "reject"
	PolicyQueue  = "queue"
)

type Config struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	OrderServiceURL string        `envconfig:"ORDER_SERVICE_URL" default:"http://localhost:8000"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	MutationPolicy  string        `envconfig:"MUTATION_POLICY" default:"reject"`
	RestoreOnStart  bool          `envconfig:"RESTORE_ON_START" default:"true"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`

	PersistenceBackend string `envconfig:"PERSISTENCE_BACKEND" default:"sqlite"`
	SQLitePath         string `envconfig:"SQLITE_PATH" default:"storefront.db"`
	SessionScope       string `envconfig:"SESSION_SCOPE" default:"default"`

	AWSRegion        string `envconfig:"AWS_REGION" default:"ap-northeast-2"`
	StateTableName   string `envconfig:"STATE_TABLE_NAME" default:"storefront-state"`
	DynamoDBEndpoint string `envconfig:"DYNAMODB_ENDPOINT" default:""` // DynamoDB Local

	KafkaBrokers    string `envconfig:"KAFKA_BROKERS" default:""` // empty disables publishing
	SnapshotTopic   string `envconfig:"SNAPSHOT_TOPIC" default:"order-snapshots"`
	CompletionTopic string `envconfig:"COMPLETION_TOPIC" default:"order-completions"`
}

// StubConfig configures the local order service emulator.
type StubConfig struct {
	Port     string `envconfig:"STUB_PORT" default:"8000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadStub() (*StubConfig, error) {
	var cfg StubConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.PersistenceBackend {
	case BackendSQLite, BackendDynamoDB, BackendMemory:
	default:
		return fmt.Errorf("unknown PERSISTENCE_BACKEND %q", c.PersistenceBackend)
	}
	switch c.MutationPolicy {
	case PolicyReject, PolicyQueue:
	default:
		return fmt.Errorf("unknown MUTATION_POLICY %q", c.MutationPolicy)
	}
	if c.OrderServiceURL == "" {
		return fmt.Errorf("ORDER_SERVICE_URL is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// KafkaEnabled reports whether event publishing is configured.
func (c *Config) KafkaEnabled() bool {
	return c.KafkaBrokers != ""
}
