package api

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/resolvekit/pkg/buildinfo"
	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/pipeline"
)

// maxBatch bounds the number of requests accepted by POST /resolve.
const maxBatch = 256

// Handler holds API route handlers.
type Handler struct {
	runner *pipeline.Runner
	logger *log.Logger
}

// NewHandler creates a new Handler.
func NewHandler(runner *pipeline.Runner, logger *log.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

// ResolutionResponse is the body of a successful resolution.
type ResolutionResponse struct {
	Specifier string `json:"specifier"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	Cached    bool   `json:"cached"`
}

// BatchItem is one entry of a POST /resolve response. Exactly one of
// Resolution and Error is set.
type BatchItem struct {
	Resolution *ResolutionResponse `json:"resolution,omitempty"`
	Error      *errResponse        `json:"error,omitempty"`
}

// Health handles GET /health/live and /health/ready.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version handles GET /version.
func (h *Handler) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

// requestFromQuery builds a resolution request from query parameters.
// Repeated condition and extension parameters are kept in order.
func requestFromQuery(r *http.Request) pipeline.Options {
	q := r.URL.Query()
	return pipeline.Options{
		Specifier:  q.Get("specifier"),
		Parent:     q.Get("parent"),
		Mode:       q.Get("mode"),
		Conditions: q["condition"],
		Extensions: q["extension"],
		Refresh:    q.Get("refresh") == "true",
	}
}

func toResponse(opts pipeline.Options, res *pipeline.Result) *ResolutionResponse {
	return &ResolutionResponse{
		Specifier: opts.Specifier,
		URL:       res.Resolution.URL.String(),
		Format:    string(res.Resolution.Format),
		Cached:    res.CacheHit,
	}
}

// Resolve handles GET /resolve.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	opts := requestFromQuery(r)
	res, err := h.runner.Resolve(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(opts, res))
}

// ResolveBatch handles POST /resolve. Every request is answered, in order;
// individual failures do not fail the batch.
func (h *Handler) ResolveBatch(w http.ResponseWriter, r *http.Request) {
	var requests []pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&requests); err != nil {
		h.fail(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}
	if len(requests) > maxBatch {
		h.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "batch of %d exceeds the limit of %d", len(requests), maxBatch))
		return
	}

	outcomes := h.runner.ResolveAll(r.Context(), requests, pipeline.DefaultConcurrency)
	items := make([]BatchItem, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			body := errorBody(o.Err)
			items[i].Error = &body
			continue
		}
		items[i].Resolution = toResponse(o.Options, o.Result)
	}
	writeJSON(w, http.StatusOK, items)
}

// Trace handles GET /trace. The trace is returned even when resolution
// fails; the failure is reported in the X-Resolve-Error header.
func (h *Handler) Trace(w http.ResponseWriter, r *http.Request) {
	opts := requestFromQuery(r)
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.TraceText
	}
	if !pipeline.ValidTraceFormats[format] {
		h.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "unsupported trace format %q", format))
		return
	}
	if err := opts.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.runner.Trace(r.Context(), opts, format)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	switch format {
	case pipeline.TraceSVG:
		w.Header().Set("Content-Type", "image/svg+xml")
	case pipeline.TraceDOT:
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	if result.Err != nil {
		w.Header().Set("X-Resolve-Error", string(errors.GetCode(result.Err)))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Artifact); err != nil {
		h.logger.Debug("write trace", "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("resolve failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody(err))
}
