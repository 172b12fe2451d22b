package service

import (
	"context"
	"strings"
	"testing"

	"github.com/eidoscope/eidoscope/internal/model"
)

// fakeResolver maps each query to a canned row.
type fakeResolver struct {
	rows func(q model.TaxonQuery) model.ResultRow
}

func (f *fakeResolver) Resolve(_ context.Context, q model.TaxonQuery) model.ResultRow {
	return f.rows(q)
}

func TestProcessBatch_EmptyInput(t *testing.T) {
	o := NewOrchestrator(&fakeResolver{}, 4)

	table, err := o.ProcessBatch(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !table.Empty() {
		t.Errorf("expected an empty table, got %d rows", len(table.Rows))
	}
}

func TestProcessBatch_ColumnUnion(t *testing.T) {
	resolver := &fakeResolver{rows: func(q model.TaxonQuery) model.ResultRow {
		switch q.Name {
		case "a":
			return model.ResultRow{model.ColSpecies: "a", "Catálogo Nacional": "Vulnerable"}
		case "b":
			return model.ResultRow{model.ColSpecies: "b", "Catálogo - Aragón": "Sensible"}
		default:
			return model.ResultRow{model.ColSpecies: q.Name, "Lista Roja - Mundial": "LC (2020)"}
		}
	}}
	o := NewOrchestrator(resolver, 2)

	table, err := o.ProcessBatch(context.Background(), []string{"a", "b", "c"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCols := []string{model.ColSpecies, "Catálogo Nacional", "Catálogo - Aragón", "Lista Roja - Mundial"}
	if len(table.Columns) != len(wantCols) {
		t.Fatalf("expected %d columns, got %v", len(wantCols), table.Columns)
	}
	colSet := make(map[string]bool)
	for _, col := range table.Columns {
		colSet[col] = true
	}
	for _, col := range wantCols {
		if !colSet[col] {
			t.Errorf("union missing column %q", col)
		}
	}

	for _, row := range table.Rows {
		for _, col := range table.Columns {
			if _, ok := row[col]; !ok {
				t.Errorf("row %v missing cell for %q", row[model.ColSpecies], col)
			}
		}
	}

	// Cells absent in the source row are sentinel-filled.
	for _, row := range table.Rows {
		if row[model.ColSpecies] == "a" && row["Catálogo - Aragón"] != model.Sentinel {
			t.Errorf("expected sentinel fill, got %q", row["Catálogo - Aragón"])
		}
	}
}

func TestProcessBatch_FailuresSortLast(t *testing.T) {
	resolver := &fakeResolver{rows: func(q model.TaxonQuery) model.ResultRow {
		if strings.HasPrefix(q.Name, "bad") {
			return model.ResultRow{model.ColSpecies: q.Name, model.ColError: "taxon not found"}
		}
		return model.ResultRow{model.ColSpecies: q.Name}
	}}
	o := NewOrchestrator(resolver, 4)

	table, err := o.ProcessBatch(context.Background(), []string{"bad1", "ok1", "bad2", "ok2"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(table.Rows))
	}

	sawFailure := false
	for _, row := range table.Rows {
		if row.Failed() {
			sawFailure = true
		} else if sawFailure {
			t.Fatal("successful row found after a failed row")
		}
	}
}

func TestProcessBatch_ProgressMonotonic(t *testing.T) {
	resolver := &fakeResolver{rows: func(q model.TaxonQuery) model.ResultRow {
		return model.ResultRow{model.ColSpecies: q.Name}
	}}
	o := NewOrchestrator(resolver, 3)

	var calls []int
	var totals []int
	_, err := o.ProcessBatch(context.Background(), []string{"a", "b", "c", "d", "e"}, []int{1, 2}, func(done, total int) {
		calls = append(calls, done)
		totals = append(totals, total)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(calls) != 7 {
		t.Fatalf("expected 7 progress calls, got %d", len(calls))
	}
	for i, done := range calls {
		if done != i+1 {
			t.Fatalf("progress counts must increase monotonically, got %v", calls)
		}
		if totals[i] != 7 {
			t.Fatalf("total must stay 7, got %d", totals[i])
		}
	}
}

func TestProcessBatch_ErrorIsolation(t *testing.T) {
	registry := lynxRegistry()
	registry.taxonIDByName = func(name string) (int, bool) { return 7, true }
	registry.legalStatuses = func(id int) (map[string]string, bool) {
		return map[string]string{"Catálogo Nacional": "Vulnerable"}, true
	}
	resolver := NewResolver(registry, staticChecklist{}, 85)

	// One of the five names trips a transport failure on the legal-status
	// endpoint only.
	broken := lynxRegistry()
	broken.taxonIDByName = registry.taxonIDByName
	broken.legalStatuses = func(id int) (map[string]string, bool) { return nil, false }
	brokenResolver := NewResolver(broken, staticChecklist{}, 85)

	dispatch := &fakeResolver{rows: func(q model.TaxonQuery) model.ResultRow {
		if q.Name == "broken" {
			return brokenResolver.Resolve(context.Background(), q)
		}
		return resolver.Resolve(context.Background(), q)
	}}
	o := NewOrchestrator(dispatch, 4)

	table, err := o.ProcessBatch(context.Background(), []string{"a", "b", "broken", "c", "d"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(table.Rows))
	}

	failed := 0
	for _, row := range table.Rows {
		if row.Failed() {
			failed++
			if row["Lista Roja - Mundial"] == model.Sentinel {
				t.Error("failed row must keep its independently-fetched attributes")
			}
		} else if row["Catálogo Nacional"] != "Vulnerable" {
			t.Errorf("healthy row missing legal status: %v", row)
		}
	}
	if failed != 1 {
		t.Errorf("expected exactly 1 diagnostic row, got %d", failed)
	}
}

func TestProcessBatch_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := &fakeResolver{rows: func(q model.TaxonQuery) model.ResultRow {
		return model.ResultRow{model.ColSpecies: q.Name}
	}}
	o := NewOrchestrator(resolver, 2)

	table, err := o.ProcessBatch(ctx, []string{"a", "b", "c", "d"}, nil, nil)
	if err == nil {
		t.Fatal("expected the context error after cancellation")
	}
	if len(table.Rows) == 4 {
		t.Error("cancelled batch should not have dispatched every query")
	}
}
