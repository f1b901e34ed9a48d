package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kass/go-realestate/pkg/dataset"
)

// Pipeline loads both raw files, normalizes them independently and unifies
// the results.
type Pipeline struct {
	SourceA      string
	SourceB      string
	ExchangeRate float64
	Options      Options
}

// Result is the unified table plus per-source row accounting.
type Result struct {
	Table  Table
	StatsA Stats
	StatsB Stats
}

// Run executes the pipeline. Any error aborts it; an empty unified table is
// reported as ErrEmptyTable rather than returned.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	log := p.Options.logger()

	var (
		res  Result
		a, b Table
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := load(ctx, SourceA, p.SourceA, log)
		if err != nil {
			return err
		}
		a, res.StatsA, err = NormalizeSourceA(raw, p.Options)
		return err
	})
	g.Go(func() error {
		raw, err := load(ctx, SourceB, p.SourceB, log)
		if err != nil {
			return err
		}
		b, res.StatsB, err = NormalizeSourceB(raw, p.ExchangeRate, p.Options)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	unified, err := Unify(a, b)
	if err != nil {
		return Result{}, fmt.Errorf("failed to unify sources: %w", err)
	}
	if unified.Len() == 0 {
		return Result{}, ErrEmptyTable
	}
	res.Table = unified

	log.Info("Unified listing table",
		slog.Int("rows", unified.Len()),
		slog.Int("columns", len(unified.Columns)),
		slog.Duration("took", time.Since(start)))

	return res, nil
}

func load(ctx context.Context, source, path string, log *slog.Logger) (dataset.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return dataset.RawTable{}, err
	}
	raw, err := dataset.Load(path)
	if err != nil {
		return dataset.RawTable{}, fmt.Errorf("failed to load %s: %w", source, err)
	}
	log.Debug("Loaded raw file",
		slog.String("source", source),
		slog.String("path", path),
		slog.Int("rows", len(raw.Rows)),
		slog.Int("columns", len(raw.Columns)))
	return raw, nil
}
