package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/resolvekit/pkg/pipeline"
)

// traceOpts holds the command-line flags for the trace command.
type traceOpts struct {
	from       string
	mode       string
	conditions []string
	extensions []string
	format     string // text, dot or svg
	output     string // output file; stdout when empty
}

// traceCommand creates the trace command, which records every probe and
// package.json read made while resolving a single specifier.
func (c *CLI) traceCommand() *cobra.Command {
	opts := traceOpts{from: "."}

	cmd := &cobra.Command{
		Use:   "trace <specifier>",
		Short: "Show the steps taken to resolve a specifier",
		Long: `Trace resolves a specifier and records each file probe, package.json
read and symbolic link followed along the way.

The trace is printed as text, or rendered as a Graphviz graph (dot or svg).
When --format is omitted it is taken from the extension of --output.`,
		Example: `  resolvekit trace react --from src/index.js
  resolvekit trace '#utils' --mode esm -o trace.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format == "" {
				opts.format = formatFromPath(opts.output)
			}
			if !pipeline.ValidTraceFormats[opts.format] {
				return fmt.Errorf("invalid format %q: must be text, dot or svg", opts.format)
			}
			return c.runTrace(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.from, "from", "f", opts.from, "parent module path or file URL")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "resolution mode: auto, cjs, esm (default from config)")
	cmd.Flags().StringSliceVarP(&opts.conditions, "condition", "C", nil, "export condition (repeatable, in priority order)")
	cmd.Flags().StringSliceVar(&opts.extensions, "extension", nil, "CommonJS extension to probe (repeatable)")
	cmd.Flags().StringVar(&opts.format, "format", "", "trace format: text (default), dot, svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	registerResolveCompletions(cmd)

	return cmd
}

// formatFromPath infers a trace format from an output file extension.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return pipeline.TraceSVG
	case ".dot", ".gv":
		return pipeline.TraceDOT
	}
	return pipeline.TraceText
}

func (c *CLI) runTrace(ctx context.Context, w io.Writer, spec string, opts traceOpts) error {
	runner, err := c.newRunner(false)
	if err != nil {
		return err
	}
	defer runner.Close()

	req := c.requestOptions(spec, opts.from, opts.mode, opts.conditions, opts.extensions)

	var spinner *Spinner
	if opts.format == pipeline.TraceSVG {
		spinner = newSpinnerWithContext(ctx, "Rendering trace...")
		spinner.Start()
	}
	result, err := runner.Trace(ctx, req, opts.format)
	if spinner != nil {
		if err != nil {
			spinner.StopWithError("Rendering failed")
		} else {
			spinner.Stop()
		}
	}
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err = w.Write(result.Artifact)
	} else {
		err = os.WriteFile(opts.output, result.Artifact, 0o644)
	}
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}

	if opts.output != "" {
		if result.Err != nil {
			printFailure(spec, result.Err)
		} else {
			printSuccess("%s %s %s", StyleHighlight.Render(spec), StyleDim.Render(iconArrow), StyleLink.Render(result.Resolution.URL.String()))
		}
		printKeyValue("format", opts.format)
		printKeyValue("steps", strconv.Itoa(len(result.Events)))
		printFile(opts.output)
		if opts.format == pipeline.TraceDOT {
			printNextStep("Render with", "dot -Tsvg "+opts.output)
		}
	}
	return result.Err
}
