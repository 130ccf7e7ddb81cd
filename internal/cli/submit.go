package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kubev2v/fold-planner/internal/client"
	"github.com/kubev2v/fold-planner/internal/poller"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type SubmitOptions struct {
	GlobalOptions

	File     string
	Name     string
	Watch    bool
	Interval time.Duration
	Output   string
}

func DefaultSubmitOptions() *SubmitOptions {
	return &SubmitOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Interval:      poller.DefaultInterval,
	}
}

func NewCmdSubmit() *cobra.Command {
	o := DefaultSubmitOptions()
	cmd := &cobra.Command{
		Use:   "submit [SEQUENCE]",
		Short: "Submit a protein sequence for structure prediction.",
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

func (o *SubmitOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.File, "file", "f", o.File, "Read the sequence from a FASTA file")
	fs.StringVarP(&o.Name, "name", "n", o.Name, "Name of the protein")
	fs.BoolVarP(&o.Watch, "watch", "w", o.Watch, "Poll the job until it completes")
	fs.DurationVar(&o.Interval, "interval", o.Interval, "Polling interval used with --watch")
	fs.StringVarP(&o.Output, "output", "o", o.Output, outputHelp())
}

func (o *SubmitOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if (len(args) == 0) == (o.File == "") {
		return fmt.Errorf("exactly one of a sequence argument or --file is required")
	}
	if o.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return validateOutput(o.Output)
}

func (o *SubmitOptions) Run(ctx context.Context, args []string) error {
	sequence := ""
	if o.File != "" {
		data, err := os.ReadFile(o.File)
		if err != nil {
			return fmt.Errorf("reading sequence file: %w", err)
		}
		sequence = string(data)
	} else {
		sequence = args[0]
	}

	c, err := o.Client()
	if err != nil {
		return err
	}
	cache, err := o.Cache()
	if err != nil {
		return err
	}

	p := poller.New(c, poller.WithInterval(o.Interval), poller.WithObserver(progressPrinter(o.out)))
	resp, err := p.Submit(ctx, sequence, o.Name)
	if err != nil {
		return err
	}

	if err := cache.Put(client.CachedJob{
		JobID:       resp.JobId,
		Name:        o.Name,
		Status:      string(resp.Status),
		SubmittedAt: time.Now(),
	}); err != nil {
		return err
	}

	printed, err := printStructured(o.out, resp, o.Output)
	if err != nil {
		return err
	}
	if !printed {
		w := tabwriter.NewWriter(o.out, 0, 8, 1, '\t', 0)
		fmt.Fprintln(w, "JOB ID\tSTATUS\tMESSAGE")
		fmt.Fprintf(w, "%s\t%s\t%s\n", resp.JobId, resp.Status, resp.Message)
		w.Flush()
	}

	if !o.Watch {
		return nil
	}
	return watch(ctx, p, cache, o.out)
}
