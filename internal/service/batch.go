package service

import (
	"context"
	"sort"
	"sync"

	"github.com/eidoscope/eidoscope/internal/model"
)

// DefaultWorkers caps concurrent in-flight resolutions. The registry rate
// limiter serializes actual request emission, so this bounds memory and
// connection concentration rather than request rate.
const DefaultWorkers = 4

// ProgressFunc receives the running completed count as rows finish,
// in completion order.
type ProgressFunc func(done, total int)

// QueryResolver resolves one query to one row. *Resolver implements it.
type QueryResolver interface {
	Resolve(ctx context.Context, query model.TaxonQuery) model.ResultRow
}

// Orchestrator fans a batch of queries out over a bounded worker pool and
// merges the rows into one column-unioned table.
type Orchestrator struct {
	resolver QueryResolver
	workers  int
}

// NewOrchestrator creates an orchestrator. workers <= 0 selects the default.
func NewOrchestrator(resolver QueryResolver, workers int) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Orchestrator{resolver: resolver, workers: workers}
}

// ProcessBatch resolves every name and id and returns the merged table:
// successful rows first, failed rows last, every row carrying every column
// observed in the batch ("-" where absent). On cancellation no further
// queries are dispatched and the partial table is returned along with the
// context error; the caller decides whether to surface or discard it.
func (o *Orchestrator) ProcessBatch(ctx context.Context, names []string, ids []int, onProgress ProgressFunc) (model.ResultTable, error) {
	queries := make([]model.TaxonQuery, 0, len(names)+len(ids))
	for _, name := range names {
		queries = append(queries, model.NameQuery(name))
	}
	for _, id := range ids {
		queries = append(queries, model.IDQuery(id))
	}

	total := len(queries)
	if total == 0 {
		return model.ResultTable{}, nil
	}

	jobs := make(chan model.TaxonQuery)
	results := make(chan model.ResultRow)

	workers := o.workers
	if workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for q := range jobs {
				results <- o.resolver.Resolve(ctx, q)
			}
		}()
	}

	// Feeder stops dispatching as soon as the context is cancelled;
	// resolutions already in flight run to completion.
	go func() {
		defer close(jobs)
		for _, q := range queries {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- q:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var succeeded, failed []model.ResultRow
	done := 0
	for row := range results {
		done++
		if row.Failed() {
			failed = append(failed, row)
		} else {
			succeeded = append(succeeded, row)
		}
		if onProgress != nil {
			onProgress(done, total)
		}
	}

	table := unionColumns(append(succeeded, failed...))
	return table, ctx.Err()
}

// unionColumns builds the table schema as the union of every column seen in
// any row and fills the gaps with the sentinel. Union order is alphabetical;
// presentation order is imposed separately by OrderColumns.
func unionColumns(rows []model.ResultRow) model.ResultTable {
	var columns []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	sort.Strings(columns)

	for _, row := range rows {
		for _, col := range columns {
			if _, ok := row[col]; !ok {
				row[col] = model.Sentinel
			}
		}
	}

	return model.ResultTable{Columns: columns, Rows: rows}
}
