package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
)

const (
	metricRequestsTotal    = "headfind.requests.total"
	metricRequestDuration  = "headfind.request.duration.seconds"
	metricErrorsTotal      = "headfind.errors.total"
	metricInflightRequests = "headfind.inflight.requests"

	metricTreesTotal      = "headfind.trees.total"
	metricNodesResolved   = "headfind.nodes.resolved"
	metricResolveDuration = "headfind.resolve.duration.seconds"
	metricResolveErrors   = "headfind.resolve.errors.total"

	attrOp     = "op"
	attrStatus = "status"
	attrPack   = "pack"
	attrKind   = "kind"

	// StatusOK marks a successful request.
	StatusOK = "ok"
	// StatusError marks a failed request.
	StatusError = "error"
)

// Resolution error kinds reported by [ErrorKind].
const (
	KindNoRule        = "no_rule"
	KindNoHead        = "no_head"
	KindTableMismatch = "table_mismatch"
	KindCanceled      = "canceled"
	KindOther         = "other"
)

// durationBucketBoundaries covers 10ms to 60s. Single trees resolve in the
// first bucket; batch requests reach the upper ones.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// resolveBucketBoundaries covers 10µs to 1s for per-tree resolution.
var resolveBucketBoundaries = []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// REDMetrics holds the OTel instruments for Rate, Error, Duration metrics.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRequests, err)
	}

	return &REDMetrics{
		requestsTotal:    reqTotal,
		requestDuration:  reqDuration,
		errorsTotal:      errTotal,
		inflightRequests: inflight,
	}, nil
}

// RecordRequest records a completed request with its operation, status, and duration.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// HeadMetrics counts head resolution work per rule pack.
type HeadMetrics struct {
	trees    metric.Int64Counter
	nodes    metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewHeadMetrics creates head resolution instruments from the given meter.
func NewHeadMetrics(mt metric.Meter) (*HeadMetrics, error) {
	trees, err := mt.Int64Counter(metricTreesTotal,
		metric.WithDescription("Trees submitted for head resolution"),
		metric.WithUnit("{tree}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTreesTotal, err)
	}

	nodes, err := mt.Int64Counter(metricNodesResolved,
		metric.WithDescription("Internal nodes whose head was resolved"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricNodesResolved, err)
	}

	duration, err := mt.Float64Histogram(metricResolveDuration,
		metric.WithDescription("Per-tree resolution time in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(resolveBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricResolveDuration, err)
	}

	errs, err := mt.Int64Counter(metricResolveErrors,
		metric.WithDescription("Failed tree resolutions by error kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricResolveErrors, err)
	}

	return &HeadMetrics{trees: trees, nodes: nodes, duration: duration, errors: errs}, nil
}

// RecordTree records one Resolve call. resolved is the number of nodes with
// a head; err is the resolution error, if any.
func (hm *HeadMetrics) RecordTree(ctx context.Context, pack string, resolved int, duration time.Duration, err error) {
	packAttr := metric.WithAttributes(attribute.String(attrPack, pack))

	hm.trees.Add(ctx, 1, packAttr)
	hm.duration.Record(ctx, duration.Seconds(), packAttr)

	if resolved > 0 {
		hm.nodes.Add(ctx, int64(resolved), packAttr)
	}

	if err != nil {
		hm.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrPack, pack),
			attribute.String(attrKind, ErrorKind(err)),
		))
	}
}

// ErrorKind classifies a resolution error for metric labels.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, headrules.ErrNoRule):
		return KindNoRule
	case errors.Is(err, headrules.ErrNoHead):
		return KindNoHead
	case errors.Is(err, headrules.ErrTableMismatch):
		return KindTableMismatch
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindOther
	}
}
