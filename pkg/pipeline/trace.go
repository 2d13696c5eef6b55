package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/resolvekit/pkg/cache"
	"github.com/matzehuels/resolvekit/pkg/resolve"
	"github.com/matzehuels/resolvekit/pkg/trace"
)

// Trace output formats.
const (
	TraceText = "text"
	TraceDOT  = "dot"
	TraceSVG  = "svg"
)

// ValidTraceFormats is the set of supported trace formats.
var ValidTraceFormats = map[string]bool{
	TraceText: true,
	TraceDOT:  true,
	TraceSVG:  true,
}

// TraceResult holds a traced resolution. Err is the resolution error, if
// any; the trace is produced either way.
type TraceResult struct {
	Events     []trace.Event
	Resolution *resolve.Resolution
	Err        error
	Format     string
	Artifact   []byte
}

// Trace resolves opts with a fresh recorder and renders the recorded steps
// in format. Rendered SVGs are cached by the hash of their DOT source.
func (r *Runner) Trace(ctx context.Context, opts Options, format string) (*TraceResult, error) {
	format = strings.ToLower(format)
	if !ValidTraceFormats[format] {
		return nil, fmt.Errorf("unsupported trace format %q", format)
	}

	rec := trace.New()
	opts.Trace = rec
	res, err := r.Resolve(ctx, opts)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}

	out := &TraceResult{Events: rec.Events(), Err: err, Format: format}
	if res != nil {
		out.Resolution = &res.Resolution
	}

	switch format {
	case TraceText:
		var b strings.Builder
		for _, e := range out.Events {
			b.WriteString(e.String())
			b.WriteByte('\n')
		}
		out.Artifact = []byte(b.String())
	case TraceDOT:
		out.Artifact = []byte(trace.ToDOT(out.Events))
	case TraceSVG:
		svg, err := r.renderSVG(ctx, trace.ToDOT(out.Events))
		if err != nil {
			return nil, err
		}
		out.Artifact = svg
	}
	return out, nil
}

func (r *Runner) renderSVG(ctx context.Context, dot string) ([]byte, error) {
	key := r.Keyer.TraceKey(cache.Hash([]byte(dot)), TraceSVG)
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		return data, nil
	}
	svg, err := trace.RenderSVG(ctx, dot)
	if err != nil {
		return nil, fmt.Errorf("render trace: %w", err)
	}
	_ = r.Cache.Set(ctx, key, svg, cache.TTLTrace)
	return svg, nil
}
