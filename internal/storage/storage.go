package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/kubev2v/fold-planner/internal/config"
)

// DefaultURLExpiry is how long a generated read URL stays valid.
const DefaultURLExpiry = 24 * time.Hour

const objectExtension = ".pdb"

// Adapter gives time-limited read access to prediction results and reports whether a
// result has been uploaded. Implementations sign a new URL on every call.
type Adapter interface {
	// ReadURL returns a signed URL granting read access to name.
	ReadURL(ctx context.Context, name string) (string, error)
	// Exists reports whether name has been uploaded. A missing object is not an error.
	Exists(ctx context.Context, name string) (bool, error)
	Provider() string
	Location() Location
}

// Location identifies where the predictor must upload results.
type Location struct {
	Provider  string
	Bucket    string
	Account   string
	Container string
}

// ObjectName returns the name under which the structure of a job is stored.
func ObjectName(jobID string) string {
	return jobID + objectExtension
}

// New creates the adapter selected by the configuration.
func New(cfg *config.Config) (Adapter, error) {
	expiry := cfg.Service.StorageURLExpiry
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}

	var (
		adapter Adapter
		err     error
	)
	switch cfg.Service.Storage.Provider {
	case config.StorageProviderAWS:
		s3 := cfg.Service.Storage.S3
		adapter, err = NewS3Adapter(
			WithEndpoint(s3.Endpoint),
			WithRegion(s3.Region),
			WithBucket(s3.Bucket),
			WithAccessKey(s3.AccessKey),
			WithSecretKey(s3.SecretKey),
			WithSSL(s3.UseSSL),
			WithExpiry(expiry),
		)
	case config.StorageProviderAzure:
		az := cfg.Service.Storage.Azure
		adapter, err = NewAzureAdapter(AzureOptions{
			AccountName:      az.AccountName,
			AccountKey:       az.AccountKey,
			ConnectionString: az.ConnectionString,
			Container:        az.Container,
			ServiceURL:       az.ServiceURL,
			Expiry:           expiry,
		})
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Service.Storage.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewTimeoutAdapter(adapter, cfg.Service.Storage.Timeout), nil
}

type timeoutAdapter struct {
	Adapter
	timeout time.Duration
}

// NewTimeoutAdapter bounds every call of a by timeout. A zero timeout disables the bound.
func NewTimeoutAdapter(a Adapter, timeout time.Duration) Adapter {
	if timeout <= 0 {
		return a
	}
	return &timeoutAdapter{Adapter: a, timeout: timeout}
}

func (t *timeoutAdapter) ReadURL(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Adapter.ReadURL(ctx, name)
}

func (t *timeoutAdapter) Exists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Adapter.Exists(ctx, name)
}
