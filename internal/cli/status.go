package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/kubev2v/fold-planner/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type StatusOptions struct {
	GlobalOptions

	Output string
}

func DefaultStatusOptions() *StatusOptions {
	return &StatusOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdStatus() *cobra.Command {
	o := DefaultStatusOptions()
	cmd := &cobra.Command{
		Use:   "status [JOB_ID]",
		Short: "Display the status of a job, the most recent one by default.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *StatusOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Output, "output", "o", o.Output, outputHelp())
}

func (o *StatusOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return validateOutput(o.Output)
}

func (o *StatusOptions) Run(ctx context.Context, args []string) error {
	jobID, err := o.resolveJobID(args)
	if err != nil {
		return err
	}
	c, err := o.Client()
	if err != nil {
		return err
	}

	status, err := c.JobStatus(ctx, jobID)
	if err != nil {
		return fmt.Errorf("reading job %s: %w", jobID, err)
	}

	if cache, err := o.Cache(); err == nil {
		_ = cache.Put(client.CachedJob{JobID: jobID, Status: string(status.Status), SubmittedAt: status.SubmittedAt})
	}

	if printed, err := printStructured(o.out, status, o.Output); printed || err != nil {
		return err
	}

	progress := "-"
	if status.Progress != nil {
		progress = fmt.Sprintf("%d%%", *status.Progress)
	}
	w := tabwriter.NewWriter(o.out, 0, 8, 1, '\t', 0)
	fmt.Fprintln(w, "JOB ID\tNAME\tSTATUS\tPROGRESS\tSUBMITTED\tMESSAGE")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", status.JobId, status.Name, status.Status, progress, status.SubmittedAt.Format("2006-01-02 15:04:05"), status.Message)
	return w.Flush()
}
