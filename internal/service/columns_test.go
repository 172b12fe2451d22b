package service

import (
	"reflect"
	"testing"

	"github.com/eidoscope/eidoscope/internal/model"
)

func tableWithColumns(cols ...string) model.ResultTable {
	row := model.ResultRow{}
	for _, col := range cols {
		row[col] = model.Sentinel
	}
	return model.ResultTable{Columns: cols, Rows: []model.ResultRow{row}}
}

func TestOrderColumns_FullOrdering(t *testing.T) {
	table := tableWithColumns(
		"Error",
		"Catálogo - Canarias",
		"Catálogo - Terranova", // not a recognized region
		"Convenio de Berna",
		"Catálogo - Andalucía",
		model.ColConfidence,
		"Lista Roja - Andalucía",
		"CITES",
		model.ColSpecies,
		"Catálogo Nacional",
		"Lista Roja - Mundial",
		model.ColGroup,
		"Directiva Aves",
		"Lista Roja - Nacional",
		model.ColCommonName,
		model.ColCorrection,
	)

	got := OrderColumns(table).Columns
	want := []string{
		model.ColGroup,
		model.ColCommonName,
		model.ColSpecies,
		model.ColCorrection,
		model.ColConfidence,
		"Lista Roja - Mundial",
		"Lista Roja - Nacional",
		"Lista Roja - Andalucía",
		"Directiva Aves",
		"CITES",
		"Convenio de Berna",
		"Catálogo Nacional",
		"Catálogo - Andalucía",
		"Catálogo - Canarias",
		"Catálogo - Terranova",
		"Error",
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("column order mismatch\n got: %v\nwant: %v", got, want)
	}
}

func TestOrderColumns_Deterministic(t *testing.T) {
	table := tableWithColumns(
		model.ColSpecies, "CITES", "Catálogo - Galicia", "Error",
		"Convenio de Bonn", "AEWA", "Lista Roja - España",
	)

	first := OrderColumns(table).Columns
	second := OrderColumns(OrderColumns(table)).Columns

	if !reflect.DeepEqual(first, second) {
		t.Errorf("ordering is not idempotent:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestOrderColumns_RecognizedRegionsBeforeUnknown(t *testing.T) {
	table := tableWithColumns(
		model.ColSpecies,
		"Catálogo - Aaaa", // alphabetically first but unrecognized
		"Catálogo - País Vasco",
		"Catálogo - Andalucía",
	)

	got := OrderColumns(table).Columns
	want := []string{
		model.ColSpecies,
		"Catálogo - Andalucía",
		"Catálogo - País Vasco",
		"Catálogo - Aaaa",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("region order mismatch\n got: %v\nwant: %v", got, want)
	}
}

func TestOrderColumns_InternationalPatternPriority(t *testing.T) {
	table := tableWithColumns(
		model.ColSpecies,
		"Zzz Convenio", // unmatched, sorts last
		"AEWA",
		"Convenio de Bonn",
		"CITES",
		"Directiva Hábitats",
		"Directiva Aves",
	)

	got := OrderColumns(table).Columns
	want := []string{
		model.ColSpecies,
		"Directiva Aves",
		"Directiva Hábitats",
		"CITES",
		"Convenio de Bonn",
		"AEWA",
		"Zzz Convenio",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("international order mismatch\n got: %v\nwant: %v", got, want)
	}
}

func TestOrderColumns_ErrorAlwaysLast(t *testing.T) {
	table := tableWithColumns("Error", model.ColSpecies, "Catálogo Nacional", "Zzz")

	got := OrderColumns(table).Columns
	if got[len(got)-1] != "Error" {
		t.Errorf("error column must sort last, got %v", got)
	}
}

func TestOrderColumns_DoesNotChangeCells(t *testing.T) {
	row := model.ResultRow{model.ColSpecies: "Lynx pardinus", "CITES": "Apéndice I"}
	table := model.ResultTable{
		Columns: []string{"CITES", model.ColSpecies},
		Rows:    []model.ResultRow{row},
	}

	ordered := OrderColumns(table)
	if ordered.Rows[0][model.ColSpecies] != "Lynx pardinus" || ordered.Rows[0]["CITES"] != "Apéndice I" {
		t.Errorf("ordering must not touch cell values: %v", ordered.Rows[0])
	}
}

func TestMarkProtected(t *testing.T) {
	rows := []model.ResultRow{
		{model.ColSpecies: "Lynx pardinus", "Catálogo Nacional": "En peligro", model.ColError: model.Sentinel},
		{model.ColSpecies: "Pica pica", "Catálogo Nacional": model.Sentinel, model.ColError: model.Sentinel},
	}
	table := model.ResultTable{
		Columns: []string{model.ColSpecies, "Catálogo Nacional", model.ColError},
		Rows:    rows,
	}

	marked := MarkProtected(table)

	if rows[0][model.ColProtected] != "true" {
		t.Error("row with a legal status must be flagged protected")
	}
	if rows[1][model.ColProtected] != "false" {
		t.Error("row with only sentinel statuses must not be flagged")
	}

	found := false
	for _, col := range marked.Columns {
		if col == model.ColProtected {
			found = true
		}
	}
	if !found {
		t.Error("bookkeeping column missing from the marked table")
	}
}

func TestDropColumn(t *testing.T) {
	table := model.ResultTable{
		Columns: []string{model.ColSpecies, model.ColProtected},
		Rows: []model.ResultRow{
			{model.ColSpecies: "Lynx pardinus", model.ColProtected: "true"},
		},
	}

	dropped := DropColumn(table, model.ColProtected)

	if len(dropped.Columns) != 1 || dropped.Columns[0] != model.ColSpecies {
		t.Errorf("unexpected columns: %v", dropped.Columns)
	}
	if _, ok := dropped.Rows[0][model.ColProtected]; ok {
		t.Error("dropped column still present in row")
	}
	// The input table is untouched.
	if _, ok := table.Rows[0][model.ColProtected]; !ok {
		t.Error("DropColumn must not mutate the input rows")
	}
}
