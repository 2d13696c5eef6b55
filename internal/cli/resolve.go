package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/pipeline"
)

// resolveOpts holds the command-line flags for the resolve command.
type resolveOpts struct {
	from        string   // parent module path or URL
	mode        string   // auto, cjs or esm
	conditions  []string // export conditions, in priority order
	extensions  []string // CommonJS probe extensions
	noCache     bool     // skip the result cache entirely
	refresh     bool     // ignore cached results but store fresh ones
	jsonOutput  bool     // print results as JSON
	concurrency int      // parallel resolutions for several specifiers
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	opts := resolveOpts{from: ".", concurrency: pipeline.DefaultConcurrency}

	cmd := &cobra.Command{
		Use:   "resolve <specifier>...",
		Short: "Resolve module specifiers to files",
		Long: `Resolve one or more specifiers relative to a parent module.

The parent defaults to the current directory. Mode "auto" picks ES module
resolution when the parent is an ES module and CommonJS otherwise.`,
		Example: `  resolvekit resolve react --from src/index.js
  resolvekit resolve ./util '#internal/config' --mode esm --condition browser
  resolvekit resolve lodash/fp --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.from, "from", "f", opts.from, "parent module path or file URL")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "resolution mode: auto, cjs, esm (default from config)")
	cmd.Flags().StringSliceVarP(&opts.conditions, "condition", "C", nil, "export condition (repeatable, in priority order)")
	cmd.Flags().StringSliceVar(&opts.extensions, "extension", nil, "CommonJS extension to probe (repeatable)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", opts.concurrency, "parallel resolutions")
	registerResolveCompletions(cmd)

	return cmd
}

func (c *CLI) runResolve(ctx context.Context, w io.Writer, specs []string, opts resolveOpts) error {
	logger := loggerFromContext(ctx)

	if opts.refresh && opts.noCache {
		printWarning("--refresh has no effect with --no-cache")
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	requests := make([]pipeline.Options, len(specs))
	for i, spec := range specs {
		requests[i] = c.requestOptions(spec, opts.from, opts.mode, opts.conditions, opts.extensions)
		requests[i].Refresh = opts.refresh
	}

	prog := newProgress(logger)
	var spinner *Spinner
	if len(requests) > 1 && !opts.jsonOutput {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Resolving %d specifiers...", len(requests)))
		spinner.Start()
	}
	outcomes := runner.ResolveAll(ctx, requests, opts.concurrency)
	if spinner != nil {
		spinner.Stop()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	prog.done(fmt.Sprintf("Resolved %d of %d specifiers", len(outcomes)-failed, len(outcomes)))

	if opts.jsonOutput {
		if err := writeResolveJSON(w, outcomes); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			if o.Err != nil {
				printFailure(o.Options.Specifier, o.Err)
				continue
			}
			printResolution(o.Options.Specifier, o.Result)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d specifiers failed to resolve", failed, len(outcomes))
	}
	return nil
}

// resolveOutput is the JSON form of one resolution.
type resolveOutput struct {
	Specifier string `json:"specifier"`
	URL       string `json:"url,omitempty"`
	Format    string `json:"format,omitempty"`
	Cached    bool   `json:"cached,omitempty"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
}

func writeResolveJSON(w io.Writer, outcomes []pipeline.Outcome) error {
	out := make([]resolveOutput, len(outcomes))
	for i, o := range outcomes {
		out[i].Specifier = o.Options.Specifier
		if o.Err != nil {
			out[i].Code = string(errors.GetCode(o.Err))
			out[i].Error = errors.UserMessage(o.Err)
			continue
		}
		out[i].URL = o.Result.Resolution.URL.String()
		out[i].Format = string(o.Result.Resolution.Format)
		out[i].Cached = o.Result.CacheHit
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
