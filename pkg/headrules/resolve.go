package headrules

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/headfinder/pkg/tree"
)

const tracerName = "github.com/Sumatoshi-tech/headfinder/pkg/headrules"

// ResolveError locates the node whose head could not be resolved.
type ResolveError struct {
	Node tree.NodeID
	Path string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Path, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Resolve finds the head child of every internal node of t, top-down.
// Preterminals resolve to their word without a rule lookup. Resolution
// stops at the first node that fails, returning a *ResolveError.
func Resolve(ctx context.Context, f *Finder, t *tree.Tree) (tree.Heads, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "headrules.Resolve",
		trace.WithAttributes(
			attribute.String("headfind.pack", f.Name()),
			attribute.Int("headfind.tree.nodes", t.Len()),
		))
	defer span.End()

	heads, resolved, err := resolve(ctx, f, t)

	span.SetAttributes(attribute.Int("headfind.tree.resolved", resolved))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	return heads, nil
}

func resolve(ctx context.Context, f *Finder, t *tree.Tree) (tree.Heads, int, error) {
	if t.Table() != f.Table() {
		return nil, 0, ErrTableMismatch
	}

	heads := tree.NewHeads(t)
	resolved := 0

	var failure error

	t.Walk(func(id tree.NodeID) bool {
		if failure != nil {
			return false
		}

		if t.IsLeaf(id) {
			return false
		}

		if err := ctx.Err(); err != nil {
			failure = err

			return false
		}

		children := t.Children(id)

		if t.IsPreterminal(id) {
			heads[id] = children[0]
			resolved++

			return false
		}

		idx, err := f.HeadIndex(t.Tag(id), t.ChildTags(id))
		if err != nil {
			failure = &ResolveError{Node: id, Path: t.Path(id), Err: err}

			return false
		}

		heads[id] = children[idx]
		resolved++

		return true
	})

	if failure != nil {
		return nil, resolved, failure
	}

	return heads, resolved, nil
}
