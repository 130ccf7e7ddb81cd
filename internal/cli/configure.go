package cli

import (
	"context"
	"fmt"

	"github.com/kubev2v/fold-planner/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ConfigureOptions struct {
	GlobalOptions

	Token string
}

func DefaultConfigureOptions() *ConfigureOptions {
	return &ConfigureOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdConfigure() *cobra.Command {
	o := DefaultConfigureOptions()
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Write the server address and admin token to the client configuration.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ConfigureOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Token, "token", "t", o.Token, "Bearer token for the admin routes")
}

func (o *ConfigureOptions) Run(ctx context.Context, args []string) error {
	cfg, err := client.LoadConfig(o.ConfigFilePath)
	if err != nil {
		return err
	}
	server := cfg.Service.Server
	if o.ServerUrl != "" {
		server = o.ServerUrl
	}
	token := cfg.Service.Token
	if o.Token != "" {
		token = o.Token
	}

	if err := client.WriteConfig(o.ConfigFilePath, server, token); err != nil {
		return err
	}
	fmt.Fprintf(o.out, "Configuration written to %s\n", o.ConfigFilePath)
	return nil
}
