package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	api "github.com/kubev2v/fold-planner/api/v1alpha1"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type JobsOptions struct {
	GlobalOptions

	All    bool
	Output string
}

func DefaultJobsOptions() *JobsOptions {
	return &JobsOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdJobs() *cobra.Command {
	o := DefaultJobsOptions()
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List the jobs submitted from this machine, or every job with --all.",
		Args:  cobra.NoArgs,
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

func (o *JobsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.BoolVarP(&o.All, "all", "A", o.All, "List every job known to the server (admin)")
	fs.StringVarP(&o.Output, "output", "o", o.Output, outputHelp())
}

func (o *JobsOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return validateOutput(o.Output)
}

func (o *JobsOptions) Run(ctx context.Context, args []string) error {
	if o.All {
		return o.listRemote(ctx)
	}

	cache, err := o.Cache()
	if err != nil {
		return err
	}
	jobs := cache.List()
	if printed, err := printStructured(o.out, jobs, o.Output); printed || err != nil {
		return err
	}

	w := tabwriter.NewWriter(o.out, 0, 8, 1, '\t', 0)
	fmt.Fprintln(w, "JOB ID\tNAME\tSTATUS\tSUBMITTED")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", j.JobID, j.Name, j.Status, j.SubmittedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func (o *JobsOptions) listRemote(ctx context.Context) error {
	c, err := o.Client()
	if err != nil {
		return err
	}
	resp, err := c.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}
	if printed, err := printStructured(o.out, resp, o.Output); printed || err != nil {
		return err
	}

	w := tabwriter.NewWriter(o.out, 0, 8, 1, '\t', 0)
	fmt.Fprintln(w, "JOB ID\tNAME\tCOLLECTION\tSTATUS\tSUBMITTED")
	printJobs := func(collection string, jobs []api.JobData) {
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", j.JobId, j.Name, collection, j.Status, j.SubmittedAt.Format("2006-01-02 15:04:05"))
		}
	}
	printJobs("queue", resp.Queued)
	printJobs("log", resp.Processed)
	return w.Flush()
}
