// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicegraph/callflow/internal/export"
	"github.com/voicegraph/callflow/internal/msteams"
	"github.com/voicegraph/callflow/pkg/logging"
)

const tracerName = "github.com/voicegraph/callflow/internal/flow"

// Result is the outcome of a traversal: the accumulated fragments in
// discovery order plus any greeting assets queued for export.
type Result struct {
	Fragments []Fragment
	Assets    []AssetRef

	// Visited is the number of voice apps expanded.
	Visited int

	// Skipped lists app ids that were enqueued but could not be found
	// in the directory.
	Skipped []string
}

// Driver runs the worklist traversal: it pops pending voice apps off
// the accumulator, expands each exactly once through the matching
// builder, and repeats until the worklist drains. Nested transfer
// targets discovered during expansion re-enter the worklist, so cycles
// between apps terminate on the visited set rather than recursing.
type Driver struct {
	dir    msteams.Directory
	aa     *AutoAttendantBuilder
	cq     *CallQueueBuilder
	logger *logging.Logger
}

// NewDriver wires a traversal driver from a directory and formatter
// options. The resolver and both builders share one directory so cache
// decorators apply uniformly.
func NewDriver(dir msteams.Directory, opts FormatterOptions, logger *logging.Logger) *Driver {
	if logger == nil {
		logger = logging.Default()
	}
	formatter := NewFormatter(opts)
	resolver := NewResolver(dir, logger)
	return &Driver{
		dir:    dir,
		aa:     NewAutoAttendantBuilder(dir, resolver, formatter, logger),
		cq:     NewCallQueueBuilder(dir, resolver, formatter, logger),
		logger: logger,
	}
}

// Run expands every seed app and everything reachable from them. A seed
// may be an id or a display name; apps discovered during expansion are
// always ids. Apps that cannot be found — or whose flow references a
// deleted entity — are skipped with a warning so one stale reference
// does not sink the whole diagram; any other error aborts the run.
func (d *Driver) Run(ctx context.Context, seeds ...string) (*Result, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "flow.Run",
		trace.WithAttributes(attribute.Int("seed_count", len(seeds))))
	defer span.End()

	acc := NewAccumulator()
	for _, seed := range seeds {
		acc.Enqueue(seed)
	}

	result := &Result{}
	for {
		appID, ok := acc.NextPending()
		if !ok {
			break
		}
		if !acc.MarkVisited(appID) {
			continue
		}
		if err := d.expand(ctx, tracer, acc, appID, result); err != nil {
			if msteams.IsNotFound(err) {
				d.logger.Warn("voice app flow references a missing entity, skipping",
					"app_id", appID,
					"error", err.Error(),
				)
				result.Skipped = append(result.Skipped, appID)
				continue
			}
			span.RecordError(err)
			return nil, err
		}
	}

	result.Fragments = acc.Fragments()
	result.Assets = acc.Assets()
	span.SetAttributes(
		attribute.Int("visited", result.Visited),
		attribute.Int("skipped", len(result.Skipped)),
		attribute.Int("nodes", acc.NodeCount()),
	)
	return result, nil
}

// expand resolves one worklist entry to its app kind and runs the
// matching builder.
func (d *Driver) expand(ctx context.Context, tracer trace.Tracer, acc *Accumulator, appID string, result *Result) error {
	ctx, span := tracer.Start(ctx, "flow.expand",
		trace.WithAttributes(attribute.String("app_id", appID)))
	defer span.End()

	aa, err := d.dir.GetAutoAttendant(ctx, appID)
	switch {
	case err == nil:
		// Seeds may be display names; mark the real id too so a nested
		// reference to the same app is not expanded a second time.
		if aa.ID != appID && !acc.MarkVisited(aa.ID) {
			return nil
		}
		span.SetAttributes(attribute.String("kind", string(msteams.KindAutoAttendant)))
		d.logger.Info("expanding auto attendant", "app_id", aa.ID, "name", aa.Name)
		if err := d.aa.Build(ctx, acc, aa); err != nil {
			return err
		}
		result.Visited++
		return nil
	case !msteams.IsNotFound(err):
		return fmt.Errorf("fetching auto attendant %s: %w", appID, err)
	}

	cq, err := d.dir.GetCallQueue(ctx, appID)
	switch {
	case err == nil:
		if cq.ID != appID && !acc.MarkVisited(cq.ID) {
			return nil
		}
		span.SetAttributes(attribute.String("kind", string(msteams.KindCallQueue)))
		d.logger.Info("expanding call queue", "app_id", cq.ID, "name", cq.Name)
		if err := d.cq.Build(ctx, acc, cq); err != nil {
			return err
		}
		result.Visited++
		return nil
	case msteams.IsNotFound(err):
		d.logger.Warn("voice app not found in either collection, skipping",
			"app_id", appID,
		)
		result.Skipped = append(result.Skipped, appID)
		return nil
	default:
		return fmt.Errorf("fetching call queue %s: %w", appID, err)
	}
}

// ExportAssets writes every queued greeting asset through the sink.
// Failures are contained per asset inside the sink layer.
func (d *Driver) ExportAssets(ctx context.Context, result *Result, sink export.Sink) {
	tasks := make([]export.Task, 0, len(result.Assets))
	for _, ref := range result.Assets {
		tasks = append(tasks, ref.Task)
	}
	export.WriteAll(ctx, sink, tasks, d.logger)
}
