package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/kubev2v/fold-planner/internal/config"
)

// sasClockSkew backdates the SAS start time to tolerate clock drift with Azure.
const sasClockSkew = 5 * time.Minute

type AzureOptions struct {
	AccountName      string
	AccountKey       string
	ConnectionString string
	Container        string
	// ServiceURL overrides https://<account>.blob.core.windows.net, e.g. for Azurite.
	ServiceURL string
	Expiry     time.Duration
}

type azureAdapter struct {
	client    *azblob.Client
	account   string
	container string
	expiry    time.Duration
}

// NewAzureAdapter creates an adapter signing SAS tokens with the account shared key.
// A connection string takes precedence over the account name and key.
func NewAzureAdapter(opts AzureOptions) (Adapter, error) {
	if opts.Container == "" {
		return nil, fmt.Errorf("azure container is required")
	}
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultURLExpiry
	}

	var (
		client  *azblob.Client
		account = opts.AccountName
		err     error
	)

	if opts.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
		if account == "" {
			account = connectionStringValue(opts.ConnectionString, "AccountName")
		}
	} else {
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("invalid azure shared key: %w", err)
		}

		serviceURL := opts.ServiceURL
		if serviceURL == "" {
			serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", opts.AccountName)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}

	return &azureAdapter{
		client:    client,
		account:   account,
		container: opts.Container,
		expiry:    opts.Expiry,
	}, nil
}

func (a *azureAdapter) blobClient(name string) *blob.Client {
	return a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(name)
}

func (a *azureAdapter) ReadURL(_ context.Context, name string) (string, error) {
	start := time.Now().UTC().Add(-sasClockSkew)
	u, err := a.blobClient(name).GetSASURL(
		sas.BlobPermissions{Read: true},
		time.Now().UTC().Add(a.expiry),
		&blob.GetSASURLOptions{StartTime: &start},
	)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s/%s: %w", a.container, name, err)
	}
	return u, nil
}

func (a *azureAdapter) Exists(ctx context.Context, name string) (bool, error) {
	_, err := a.blobClient(name).GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to read properties of %s/%s: %w", a.container, name, err)
}

func (a *azureAdapter) Provider() string {
	return config.StorageProviderAzure
}

func (a *azureAdapter) Location() Location {
	return Location{
		Provider:  config.StorageProviderAzure,
		Account:   a.account,
		Container: a.container,
	}
}

// connectionStringValue returns the value of key in an Azure connection string.
func connectionStringValue(connectionString, key string) string {
	for _, part := range strings.Split(connectionString, ";") {
		k, v, found := strings.Cut(part, "=")
		if found && strings.EqualFold(strings.TrimSpace(k), key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
