package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	api "github.com/kubev2v/fold-planner/api/v1alpha1"
	"github.com/kubev2v/fold-planner/internal/client"
	"github.com/kubev2v/fold-planner/internal/poller"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type WatchOptions struct {
	GlobalOptions

	Interval time.Duration
	Summary  bool
}

func DefaultWatchOptions() *WatchOptions {
	return &WatchOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Interval:      poller.DefaultInterval,
	}
}

func NewCmdWatch() *cobra.Command {
	o := DefaultWatchOptions()
	cmd := &cobra.Command{
		Use:   "watch JOB_ID",
		Short: "Poll a job until its structure is available or it fails.",
		Args:  cobra.ExactArgs(1),
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

// NewCmdResume polls the most recent unfinished job of the local cache.
func NewCmdResume() *cobra.Command {
	o := DefaultWatchOptions()
	cmd := &cobra.Command{
		Use:   "resume [JOB_ID]",
		Short: "Resume polling a job submitted in an earlier session.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			if len(args) == 0 {
				jobID, err := o.unfinishedJob()
				if err != nil {
					return err
				}
				args = []string{jobID}
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *WatchOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.DurationVar(&o.Interval, "interval", o.Interval, "Polling interval")
	fs.BoolVarP(&o.Summary, "summary", "s", o.Summary, "Print the chains of the structure once available")
}

func (o *WatchOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return nil
}

func (o *WatchOptions) Run(ctx context.Context, args []string) error {
	c, err := o.Client()
	if err != nil {
		return err
	}
	cache, err := o.Cache()
	if err != nil {
		return err
	}

	p := poller.New(c, poller.WithInterval(o.Interval), poller.WithObserver(progressPrinter(o.out)))
	if err := p.Resume(args[0]); err != nil {
		return err
	}
	if err := watch(ctx, p, cache, o.out); err != nil {
		return err
	}

	if !o.Summary {
		return nil
	}
	cached, _ := cache.Get(args[0])
	return fetchStructure(ctx, c, cached.StorageURL, "", true, o.out)
}

func (o *WatchOptions) unfinishedJob() (string, error) {
	cache, err := o.Cache()
	if err != nil {
		return "", err
	}
	for _, j := range cache.List() {
		if !api.StringToJobStatus(j.Status).IsTerminal() {
			return j.JobID, nil
		}
	}
	return "", errors.New("no unfinished job in the local cache")
}

// watch runs p to a final state and records the outcome in the cache.
func watch(ctx context.Context, p *poller.Poller, cache *client.JobCache, out io.Writer) error {
	res, err := p.Run(ctx)
	if res != nil {
		_ = cache.Put(client.CachedJob{JobID: res.JobID, Status: string(res.Status), StorageURL: res.StorageURL})
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Job %s completed.\nStructure: %s\n", res.JobID, res.StorageURL)
	return nil
}

func progressPrinter(out io.Writer) func(poller.Update) {
	return func(u poller.Update) {
		switch {
		case u.Err != nil:
			fmt.Fprintf(out, "[%s] %s: %v\n", time.Now().Format(time.TimeOnly), u.State, u.Err)
		case u.Progress != nil:
			fmt.Fprintf(out, "[%s] %s %s (%d%%)\n", time.Now().Format(time.TimeOnly), u.JobID, u.Status, *u.Progress)
		case u.Status != "":
			fmt.Fprintf(out, "[%s] %s %s\n", time.Now().Format(time.TimeOnly), u.JobID, u.Status)
		}
	}
}
