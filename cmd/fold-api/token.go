package main

import (
	"fmt"
	"time"

	"github.com/kubev2v/fold-planner/internal/auth"
	"github.com/kubev2v/fold-planner/internal/config"
	"github.com/spf13/cobra"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an admin token signed with FOLD_PLANNER_AUTH_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		if cfg.Service.Auth.AuthenticationType != auth.LocalAuthentication {
			return fmt.Errorf("tokens can only be generated with %q authentication", auth.LocalAuthentication)
		}

		token, err := auth.GenerateLocalToken(cfg.Service.Auth.Secret, tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "admin", "Subject of the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Validity of the token")
}
