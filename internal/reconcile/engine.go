// Package reconcile folds external grade rows into submission archives.
// Matching is strict: every row must resolve to exactly one archive by its
// identity key, and the batch commits all-or-nothing — any unmatched row,
// ambiguous key, or configuration defect rejects the whole batch before a
// single archive is touched.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/pretor/internal/course"
	"github.com/okian/pretor/internal/psf"
	"github.com/okian/pretor/pkg/logger"
	"github.com/okian/pretor/pkg/metrics"
)

const defaultConcurrency = 4

// Engine matches grade rows against candidate archives and applies them.
type Engine struct {
	courses     map[string]*course.Course
	concurrency int
	tolerant    bool
	log         logger.Logger
}

// New builds an engine over the loaded course definitions, keyed by course
// name.
func New(courses map[string]*course.Course, opts ...Option) *Engine {
	e := &Engine{
		courses:     courses,
		concurrency: defaultConcurrency,
		log:         logger.Named("reconcile"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan is a fully validated batch: one pending revision per archive, ready
// to commit. It holds no open file handles.
type Plan struct {
	updates map[string]map[string]float64
}

// Archives reports how many archives the plan will touch.
func (p *Plan) Archives() int { return len(p.updates) }

// Plan matches every row against the candidate archives under paths. All
// defects across the whole batch are collected into one *BatchError rather
// than failing on the first, so a rejected import is fixable in one pass.
func (e *Engine) Plan(ctx context.Context, rows []Row, paths []string) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}
	index, defects := buildIndex(files)

	batch := &BatchError{Config: defects}
	updates := make(map[string]map[string]float64)

	for _, row := range rows {
		matches := index[row.Key]
		switch {
		case len(matches) == 0:
			batch.Unmatched = append(batch.Unmatched, Defect{Key: row.Key, Line: row.Line})
			continue
		case len(matches) > 1:
			batch.Ambiguous = append(batch.Ambiguous, Defect{
				Key:    row.Key,
				Line:   row.Line,
				Detail: fmt.Sprintf("%d archives share this key", len(matches)),
			})
			continue
		}

		if d, ok := e.validateComponent(row); !ok {
			batch.Config = append(batch.Config, d)
			continue
		}

		// Rows addressing the same archive fold into one revision;
		// within a batch the last row wins per component.
		path := matches[0]
		if updates[path] == nil {
			updates[path] = make(map[string]float64)
		}
		updates[path][row.Component] = row.Contribution
	}

	if !batch.empty() {
		metrics.RecordBatchRejected(batch.reason())
		return nil, batch
	}

	metrics.RecordBatchPlanned()
	e.log.Debug(ctx, "batch planned",
		logger.Int("rows", len(rows)),
		logger.Int("archives", len(updates)))
	return &Plan{updates: updates}, nil
}

// validateComponent checks the row against its course definition. Tolerant
// mode only downgrades the unknown-component defect; a missing course
// definition always fails, since there is then nothing to be tolerant of.
func (e *Engine) validateComponent(row Row) (Defect, bool) {
	c, ok := e.courses[row.Key.Course]
	if !ok {
		return Defect{
			Key:    row.Key,
			Line:   row.Line,
			Detail: fmt.Sprintf("no course definition for %q", row.Key.Course),
		}, false
	}
	if _, ok := c.Component(row.Component); !ok && !e.tolerant {
		return Defect{
			Key:    row.Key,
			Line:   row.Line,
			Detail: fmt.Sprintf("course %q defines no component %q", row.Key.Course, row.Component),
		}, false
	}
	return Defect{}, true
}

// Commit appends one revision per planned archive and saves it. Archives
// are independent, so saves run on a bounded worker pool with exactly one
// writer per archive. Cancellation before the first write leaves every
// archive untouched.
func (e *Engine) Commit(ctx context.Context, plan *Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	type job struct {
		path     string
		contribs map[string]float64
	}

	paths := make([]string, 0, len(plan.updates))
	for p := range plan.updates {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	jobs := make(chan job, e.concurrency*2)
	results := make(chan error, len(paths))
	var wg sync.WaitGroup

	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					results <- ctx.Err()
					return
				default:
					results <- commitOne(j.path, j.contribs)
				}
			}
		}()
	}

	for _, p := range paths {
		select {
		case jobs <- job{path: p, contribs: plan.updates[p]}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	var errs []error
	for err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("commit: %w", errors.Join(errs...))
	}

	metrics.RecordBatchCommitted()
	metrics.RecordCommitDuration(time.Since(start).Seconds())
	e.log.Info(ctx, "batch committed",
		logger.Int("archives", len(paths)),
		logger.Float64("seconds", time.Since(start).Seconds()))
	return nil
}

func commitOne(path string, contribs map[string]float64) error {
	a, err := psf.Open(path)
	if err != nil {
		return err
	}
	a.AppendRevision(contribs)
	return a.Save()
}

// Run plans and, if the batch is clean, commits it.
func (e *Engine) Run(ctx context.Context, rows []Row, paths []string) error {
	plan, err := e.Plan(ctx, rows, paths)
	if err != nil {
		return err
	}
	return e.Commit(ctx, plan)
}
