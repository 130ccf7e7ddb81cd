package main

import (
	"os"

	"github.com/kubev2v/fold-planner/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	command := NewFoldCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewFoldCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fold [flags] [options]",
		Short: "fold submits protein sequences to the fold planner and follows their predictions.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdSubmit())
	cmd.AddCommand(cli.NewCmdStatus())
	cmd.AddCommand(cli.NewCmdResult())
	cmd.AddCommand(cli.NewCmdJobs())
	cmd.AddCommand(cli.NewCmdWatch())
	cmd.AddCommand(cli.NewCmdResume())
	cmd.AddCommand(cli.NewCmdConfigure())

	return cmd
}
