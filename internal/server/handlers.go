package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/headfinder/pkg/annotate"
	"github.com/Sumatoshi-tech/headfinder/pkg/config"
	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/observability"
	"github.com/Sumatoshi-tech/headfinder/pkg/tree"
)

// Deps holds the handler dependencies. Annotator is required.
type Deps struct {
	Annotator *annotate.Annotator
	Logger    *slog.Logger

	// Tracer wraps every route in a server span. Nil uses a no-op tracer.
	Tracer trace.Tracer
	RED    *observability.REDMetrics

	// Metrics serves GET /metrics when set.
	Metrics http.Handler

	// MaxBodyBytes bounds request bodies. Zero uses the config default.
	MaxBodyBytes int64
}

// HeadsRequest is the body of POST /api/heads.
type HeadsRequest struct {
	Tree json.RawMessage `json:"tree"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Pack   string `json:"pack"`
	Rules  int    `json:"rules"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error      string           `json:"error"`
	Violations []tree.Violation `json:"violations,omitempty"`
}

var errMissingTree = errors.New(`request body must carry a "tree" field`)

type api struct {
	annotator *annotate.Annotator
	logger    *slog.Logger
	maxBody   int64
}

// NewHandler builds the API routes.
func NewHandler(deps Deps) http.Handler {
	a := &api{
		annotator: deps.Annotator,
		logger:    deps.Logger,
		maxBody:   deps.MaxBodyBytes,
	}

	if a.logger == nil {
		a.logger = slog.Default()
	}

	if a.maxBody <= 0 {
		a.maxBody = config.DefaultMaxBodyBytes
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/heads", a.handleHeads)
	mux.HandleFunc("GET /api/rules", a.handleRules)
	mux.HandleFunc("GET /api/rules/{tag}", a.handleRule)
	mux.HandleFunc("GET /healthz", a.handleHealth)

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return observability.HTTPMiddleware(tracer, deps.RED, mux)
}

func (a *api) handleHeads(rw http.ResponseWriter, hr *http.Request) {
	ctx := hr.Context()

	var req HeadsRequest

	err := json.NewDecoder(http.MaxBytesReader(rw, hr.Body, a.maxBody)).Decode(&req)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.writeError(ctx, rw, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))

			return
		}

		a.writeError(ctx, rw, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))

		return
	}

	if len(req.Tree) == 0 || string(req.Tree) == "null" {
		a.writeError(ctx, rw, http.StatusBadRequest, errMissingTree)

		return
	}

	res, err := a.annotator.Annotate(ctx, req.Tree)
	if err != nil {
		a.writeError(ctx, rw, statusFor(err), err)

		return
	}

	writeJSON(ctx, rw, http.StatusOK, res)
}

func (a *api) handleRules(rw http.ResponseWriter, hr *http.Request) {
	writeJSON(hr.Context(), rw, http.StatusOK, a.annotator.Rules())
}

func (a *api) handleRule(rw http.ResponseWriter, hr *http.Request) {
	info, err := a.annotator.Rule(hr.PathValue("tag"))
	if err != nil {
		if def, ok := a.annotator.Default(); ok {
			writeJSON(hr.Context(), rw, http.StatusOK, def)

			return
		}

		a.writeError(hr.Context(), rw, http.StatusNotFound, err)

		return
	}

	writeJSON(hr.Context(), rw, http.StatusOK, info)
}

func (a *api) handleHealth(rw http.ResponseWriter, hr *http.Request) {
	f := a.annotator.Finder()

	writeJSON(hr.Context(), rw, http.StatusOK, HealthResponse{Status: "ok", Pack: f.Name(), Rules: f.Len()})
}

// statusFor maps an annotation error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tree.ErrSchemaViolation), errors.Is(err, tree.ErrWordOnInternal):
		return http.StatusBadRequest
	case errors.Is(err, headrules.ErrNoRule), errors.Is(err, headrules.ErrNoHead):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) writeError(ctx context.Context, rw http.ResponseWriter, status int, err error) {
	body := ErrorResponse{Error: err.Error()}

	var verr *tree.ValidationError
	if errors.As(err, &verr) {
		body.Violations = verr.Violations
	}

	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	writeJSON(ctx, rw, status, body)
}

func writeJSON(ctx context.Context, rw http.ResponseWriter, status int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	err := json.NewEncoder(rw).Encode(value)
	if err != nil {
		slog.Default().ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}
