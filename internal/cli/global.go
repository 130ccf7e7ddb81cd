package cli

import (
	"fmt"
	"io"

	"github.com/kubev2v/fold-planner/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type GlobalOptions struct {
	ConfigFilePath string
	CacheFilePath  string
	ServerUrl      string

	out io.Writer
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: client.DefaultClientConfigPath(),
		CacheFilePath:  client.DefaultJobCachePath(),
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path to the client configuration file")
	fs.StringVar(&o.CacheFilePath, "cache", o.CacheFilePath, "Path to the local job cache")
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of the server, overrides the configuration file")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	o.out = cmd.OutOrStdout()
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	return nil
}

func (o *GlobalOptions) Client() (*client.Client, error) {
	cfg, err := client.LoadConfig(o.ConfigFilePath)
	if err != nil {
		return nil, fmt.Errorf("reading client configuration: %w", err)
	}
	if o.ServerUrl != "" {
		cfg.Service.Server = o.ServerUrl
	}
	c, err := client.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return c, nil
}

func (o *GlobalOptions) Cache() (*client.JobCache, error) {
	return client.OpenJobCache(o.CacheFilePath)
}

// resolveJobID returns the job id argument or, when none is given, the most recent cached job.
func (o *GlobalOptions) resolveJobID(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	cache, err := o.Cache()
	if err != nil {
		return "", err
	}
	latest, ok := cache.Latest()
	if !ok {
		return "", fmt.Errorf("no job id given and no job in the local cache")
	}
	return latest.JobID, nil
}
