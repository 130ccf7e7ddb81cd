package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const (
	StorageProviderAWS   = "aws"
	StorageProviderAzure = "azure"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"sqlite"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"fold-planner.db"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address          string        `envconfig:"FOLD_PLANNER_ADDRESS" default:":3000"`
	MetricsAddress   string        `envconfig:"FOLD_PLANNER_METRICS_ADDRESS" default:":8080"`
	LogLevel         string        `envconfig:"FOLD_PLANNER_LOG_LEVEL" default:"info"`
	LogFormat        string        `envconfig:"FOLD_PLANNER_LOG_FORMAT" default:"console"`
	AllowedOrigins   []string      `envconfig:"FOLD_PLANNER_ALLOWED_ORIGINS" default:"*"`
	StorageURLExpiry time.Duration `envconfig:"FOLD_PLANNER_STORAGE_URL_EXPIRY" default:"24h"`
	MigrationFolder  string        `envconfig:"FOLD_PLANNER_MIGRATIONS_FOLDER" default:""`
	EventBufferSize  int           `envconfig:"FOLD_PLANNER_EVENT_BUFFER_SIZE" default:"1024"`
	Predictor        Predictor
	Storage          Storage
	Auth             Auth
}

type Predictor struct {
	Endpoint        string        `envconfig:"ALPHAFOLD_VM_ENDPOINT" default:""`
	Timeout         time.Duration `envconfig:"FOLD_PLANNER_PREDICTOR_TIMEOUT" default:"30s"`
	ProgressTimeout time.Duration `envconfig:"FOLD_PLANNER_PREDICTOR_PROGRESS_TIMEOUT" default:"2s"`
}

type Storage struct {
	Provider string        `envconfig:"FOLD_PLANNER_STORAGE_PROVIDER" default:"aws"`
	Timeout  time.Duration `envconfig:"FOLD_PLANNER_STORAGE_TIMEOUT" default:"10s"`
	S3       S3
	Azure    Azure
}

type S3 struct {
	Endpoint  string `envconfig:"S3_ENDPOINT" default:"s3.amazonaws.com"`
	Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	Bucket    string `envconfig:"S3_BUCKET_NAME" default:""`
	AccessKey string `envconfig:"AWS_ACCESS_KEY_ID" default:""`
	SecretKey string `envconfig:"AWS_SECRET_ACCESS_KEY" default:""`
	UseSSL    bool   `envconfig:"S3_USE_SSL" default:"true"`
}

type Azure struct {
	AccountName      string `envconfig:"AZURE_STORAGE_ACCOUNT_NAME" default:""`
	AccountKey       string `envconfig:"AZURE_STORAGE_ACCOUNT_KEY" default:""`
	ConnectionString string `envconfig:"AZURE_STORAGE_CONNECTION_STRING" default:""`
	Container        string `envconfig:"AZURE_STORAGE_CONTAINER_NAME" default:""`
	ServiceURL       string `envconfig:"AZURE_STORAGE_SERVICE_URL" default:""`
}

type Auth struct {
	AuthenticationType string `envconfig:"FOLD_PLANNER_AUTH" default:"none"`
	JwkCertURL         string `envconfig:"FOLD_PLANNER_JWK_URL" default:""`
	Secret             string `envconfig:"FOLD_PLANNER_AUTH_SECRET" default:""`
}

// New reads the configuration from the environment once per process.
func New() (*Config, error) {
	if singleConfig == nil {
		cfg, err := Load()
		if err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// Load always reads a fresh configuration from the environment.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed value the service cannot start without.
func (c *Config) Validate() error {
	errs := make([]error, 0)

	if c.Service.Predictor.Endpoint == "" {
		errs = append(errs, fmt.Errorf("ALPHAFOLD_VM_ENDPOINT is required"))
	} else if u, err := url.Parse(c.Service.Predictor.Endpoint); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid predictor endpoint %q", c.Service.Predictor.Endpoint))
	}

	if c.Service.StorageURLExpiry <= 0 {
		errs = append(errs, fmt.Errorf("storage url expiry must be positive"))
	}

	switch c.Service.Storage.Provider {
	case StorageProviderAWS:
		s3 := c.Service.Storage.S3
		if s3.Bucket == "" {
			errs = append(errs, fmt.Errorf("S3_BUCKET_NAME is required"))
		}
		if s3.AccessKey == "" || s3.SecretKey == "" {
			errs = append(errs, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required"))
		}
	case StorageProviderAzure:
		az := c.Service.Storage.Azure
		if az.Container == "" {
			errs = append(errs, fmt.Errorf("AZURE_STORAGE_CONTAINER_NAME is required"))
		}
		if az.ConnectionString == "" && (az.AccountName == "" || az.AccountKey == "") {
			errs = append(errs, fmt.Errorf("AZURE_STORAGE_CONNECTION_STRING or AZURE_STORAGE_ACCOUNT_NAME and AZURE_STORAGE_ACCOUNT_KEY are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage provider %q", c.Service.Storage.Provider))
	}

	if c.Service.Auth.AuthenticationType == "local" && c.Service.Auth.Secret == "" {
		errs = append(errs, fmt.Errorf("FOLD_PLANNER_AUTH_SECRET is required with local authentication"))
	}
	if c.Service.Auth.AuthenticationType == "jwk" && c.Service.Auth.JwkCertURL == "" {
		errs = append(errs, fmt.Errorf("FOLD_PLANNER_JWK_URL is required with jwk authentication"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", utilerrors.NewAggregate(errs))
	}
	return nil
}

// String hides credentials so the configuration can be logged at startup.
func (c *Config) String() string {
	return fmt.Sprintf("db=%s/%s address=%s metrics=%s predictor=%s storage=%s auth=%s",
		c.Database.Type, c.Database.Name,
		c.Service.Address, c.Service.MetricsAddress,
		c.Service.Predictor.Endpoint,
		c.Service.Storage.Provider,
		c.Service.Auth.AuthenticationType,
	)
}
