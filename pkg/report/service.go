// Package report serves topic breakdowns: it fetches a topic's stored rows and
// headline summary, runs the aggregation engine and decorates the result with
// the topic's labels and colours.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
	"github.com/hazyhaar/wardstats/pkg/topic"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownTopic   = errors.New("unknown topic")
	ErrInvalidRequest = errors.New("invalid request")
)

// WarnFiltered is recorded when filters make the headline summary inapplicable.
const WarnFiltered = "filters applied; headline summary ignored"

// RowFetcher loads the detail rows of a topic.
type RowFetcher interface {
	Rows(ctx context.Context, topic string) ([]aggregate.Row, error)
}

// SummaryFetcher loads the headline summary of a topic; nil means none.
type SummaryFetcher interface {
	Summary(ctx context.Context, topic string) (*aggregate.Summary, error)
}

// Topics resolves topic ids.
type Topics interface {
	Get(id string) (*topic.Topic, bool)
}

// Options configures a Service.
type Options struct {
	// SummaryTTL caches fetched summaries per topic; zero disables caching.
	SummaryTTL time.Duration
	Metrics    *Metrics
	Logger     *slog.Logger
}

// Service computes reports. It is safe for concurrent use.
type Service struct {
	topics    Topics
	rows      RowFetcher
	summaries SummaryFetcher
	cache     *cache.Cache
	metrics   *Metrics
	logger    *slog.Logger
}

// NewService wires a report service.
func NewService(topics Topics, rows RowFetcher, summaries SummaryFetcher, opts Options) *Service {
	s := &Service{
		topics:    topics,
		rows:      rows,
		summaries: summaries,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if opts.SummaryTTL > 0 {
		s.cache = cache.New(opts.SummaryTTL, 2*opts.SummaryTTL)
	}
	return s
}

// Request selects one report.
type Request struct {
	Topic   string
	GroupBy []string
	Where   map[string]string
	Sort    aggregate.SortOrder
	// Top > 0 keeps that many entries and folds the rest into Other. Without
	// an explicit sort the breakdown is ordered by measure descending first.
	Top int
}

// Report computes a topic breakdown.
func (s *Service) Report(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	t, err := s.resolve(req.Topic, req.GroupBy, req.Where)
	if err != nil {
		return nil, err
	}
	groupBy := req.GroupBy
	if len(groupBy) == 0 {
		groupBy = t.Manifest.DefaultGroupBy
	}
	if req.Top < 0 {
		return nil, fmt.Errorf("%w: top must not be negative", ErrInvalidRequest)
	}
	order := req.Sort
	if req.Top > 0 && (order == "" || order == aggregate.SortNone) {
		order = aggregate.SortMeasureDesc
	}

	rows, summary, warnings, err := s.fetch(ctx, t.ID())
	if err != nil {
		return nil, err
	}
	if len(req.Where) > 0 {
		rows = where(rows, req.Where)
		if summary != nil {
			warnings = append(warnings, WarnFiltered)
			summary = nil
		}
	}

	eng := t.Engine()
	res := eng.Run(aggregate.Request{Rows: rows, Summary: summary, GroupBy: groupBy, Sort: order})

	rep := &Report{
		Topic:     t.ID(),
		Title:     t.Manifest.Title,
		GroupBy:   groupBy,
		Where:     req.Where,
		Total:     res.Total,
		Source:    res.Source,
		Breakdown: make([]Entry, len(res.Breakdown)),
		Highest:   decoratePtr(t, res.Highest),
		Lowest:    decoratePtr(t, res.Lowest),
		Warnings:  append(append([]string{}, warnings...), res.Warnings...),
	}
	for i, st := range res.Breakdown {
		rep.Breakdown[i] = decorate(t, st)
	}
	rep.Breakdown, rep.Other = fold(rep.Breakdown, req.Top, res.Total, eng.Decimals)

	s.metrics.observe("report", t.ID(), string(res.Source), len(rep.Warnings), start)
	s.logger.Debug("report computed", "topic", t.ID(), "group_by", groupBy,
		"total", res.Total, "source", res.Source, "warnings", len(rep.Warnings))
	return rep, nil
}

// ComputeRequest runs the engine on caller-supplied rows.
type ComputeRequest struct {
	Rows          []aggregate.Row
	Summary       *aggregate.Summary
	GroupBy       []string
	Sort          aggregate.SortOrder
	HeadlineField string
	Decimals      *int
	Markers       []string
}

// Compute runs the engine without touching the store.
func (s *Service) Compute(req ComputeRequest) aggregate.Result {
	start := time.Now()
	eng := aggregate.NewEngine()
	eng.Policy.Field = req.HeadlineField
	if req.Decimals != nil {
		eng.Decimals = *req.Decimals
	}
	if req.Markers != nil {
		eng.Markers = req.Markers
	}
	res := eng.Run(aggregate.Request{Rows: req.Rows, Summary: req.Summary, GroupBy: req.GroupBy, Sort: req.Sort})
	s.metrics.observe("compute", "", "", 0, start)
	return res
}

// InvalidateSummaries drops every cached summary.
func (s *Service) InvalidateSummaries() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

func (s *Service) resolve(id string, groupBy []string, filters map[string]string) (*topic.Topic, error) {
	t, ok := s.topics.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, id)
	}
	for _, d := range groupBy {
		if !t.HasDimension(d) {
			return nil, fmt.Errorf("%w: %q is not a dimension of %s", ErrInvalidRequest, d, id)
		}
	}
	for d := range filters {
		if !t.HasDimension(d) {
			return nil, fmt.Errorf("%w: cannot filter on %q, not a dimension of %s", ErrInvalidRequest, d, id)
		}
	}
	return t, nil
}

type cachedSummary struct {
	summary *aggregate.Summary
}

// fetch loads rows and summary concurrently. Neither failure aborts the
// report: missing rows become an empty set plus a warning, a missing summary
// becomes nil. Only cancellation is returned.
func (s *Service) fetch(ctx context.Context, id string) ([]aggregate.Row, *aggregate.Summary, []string, error) {
	var (
		rows     []aggregate.Row
		summary  *aggregate.Summary
		warnings []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.rows.Rows(gctx, id)
		if err != nil {
			s.logger.Warn("row fetch failed", "topic", id, "error", err)
			warnings = append(warnings, fmt.Sprintf("rows unavailable: %v", err))
			r = []aggregate.Row{}
		}
		rows = r
		return nil
	})
	g.Go(func() error {
		if s.cache != nil {
			if v, ok := s.cache.Get(id); ok {
				summary = v.(cachedSummary).summary
				return nil
			}
		}
		sum, err := s.summaries.Summary(gctx, id)
		if err != nil {
			s.logger.Warn("summary fetch failed", "topic", id, "error", err)
			return nil
		}
		summary = sum
		if s.cache != nil {
			s.cache.SetDefault(id, cachedSummary{summary: sum})
		}
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	return rows, summary, warnings, nil
}

// where keeps rows matching every filter. Values compare case- and
// accent-insensitively, like topic labels.
func where(rows []aggregate.Row, filters map[string]string) []aggregate.Row {
	dims := make([]string, 0, len(filters))
	for d := range filters {
		dims = append(dims, d)
	}
	sort.Strings(dims)

	out := make([]aggregate.Row, 0, len(rows))
	for _, r := range rows {
		keep := true
		for _, d := range dims {
			if aggregate.FoldLabel(r.Dimension(d)) != aggregate.FoldLabel(filters[d]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}
