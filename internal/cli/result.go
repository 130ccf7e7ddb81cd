package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	api "github.com/kubev2v/fold-planner/api/v1alpha1"
	"github.com/kubev2v/fold-planner/internal/client"
	"github.com/kubev2v/fold-planner/internal/structure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ResultOptions struct {
	GlobalOptions

	Download string
	Summary  bool
	Output   string
}

func DefaultResultOptions() *ResultOptions {
	return &ResultOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdResult() *cobra.Command {
	o := DefaultResultOptions()
	cmd := &cobra.Command{
		Use:   "result [JOB_ID]",
		Short: "Check whether the predicted structure of a job is available.",
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

func (o *ResultOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Download, "download", "d", o.Download, "Write the structure file to this path once available")
	fs.BoolVarP(&o.Summary, "summary", "s", o.Summary, "Print the chains of the predicted structure")
	fs.StringVarP(&o.Output, "output", "o", o.Output, outputHelp())
}

func (o *ResultOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return validateOutput(o.Output)
}

func (o *ResultOptions) Run(ctx context.Context, args []string) error {
	jobID, err := o.resolveJobID(args)
	if err != nil {
		return err
	}
	c, err := o.Client()
	if err != nil {
		return err
	}

	res, err := c.CheckResult(ctx, jobID)
	if err != nil {
		return fmt.Errorf("checking result of job %s: %w", jobID, err)
	}

	if cache, err := o.Cache(); err == nil {
		_ = cache.Put(client.CachedJob{JobID: jobID, Status: string(res.Status), StorageURL: res.StorageUrl})
	}

	if printed, err := printStructured(o.out, res, o.Output); err != nil {
		return err
	} else if !printed {
		w := tabwriter.NewWriter(o.out, 0, 8, 1, '\t', 0)
		fmt.Fprintln(w, "JOB ID\tSTATUS\tMESSAGE")
		fmt.Fprintf(w, "%s\t%s\t%s\n", res.JobId, res.Status, res.Message)
		w.Flush()
		if res.StorageUrl != "" {
			fmt.Fprintf(o.out, "\nStructure: %s\n", res.StorageUrl)
		}
	}

	if res.Status != api.JobStatusCompleted || (o.Download == "" && !o.Summary) {
		return nil
	}
	return fetchStructure(ctx, c, res.StorageUrl, o.Download, o.Summary, o.out)
}

// fetchStructure downloads the structure, optionally saving it to path and printing its chains.
func fetchStructure(ctx context.Context, c *client.Client, storageURL, path string, summary bool, out io.Writer) error {
	body, err := c.Download(ctx, storageURL)
	if err != nil {
		return err
	}
	defer body.Close()

	var reader io.Reader = body
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		reader = io.TeeReader(body, f)
		if !summary {
			if _, err := io.Copy(io.Discard, reader); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(out, "Structure written to %s\n", path)
			return nil
		}
	}

	s, err := structure.Parse(reader)
	if err != nil {
		return fmt.Errorf("parsing structure: %w", err)
	}
	if path != "" {
		// drain what the parser did not consume so the file is complete
		if _, err := io.Copy(io.Discard, reader); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(out, "Structure written to %s\n", path)
	}
	printChains(out, s)
	return nil
}

func printChains(out io.Writer, s *structure.Structure) {
	w := tabwriter.NewWriter(out, 0, 8, 1, '\t', 0)
	fmt.Fprintln(w, "CHAIN\tRESIDUES\tPLDDT\tSEQUENCE")
	for _, c := range s.Chains {
		fmt.Fprintf(w, "%s\t%d\t%.1f\t%s\n", c.ID, len(c.Residues), c.MeanConfidence(), c.Sequence)
	}
	w.Flush()
}
