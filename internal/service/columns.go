package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/eidoscope/eidoscope/internal/model"
)

// fixedLeadingColumns open every table, in this order, when present.
var fixedLeadingColumns = []string{
	model.ColGroup,
	model.ColCommonName,
	model.ColSpecies,
	model.ColCorrection,
	model.ColConfidence,
}

// intlPatterns rank international convention columns by accent-insensitive
// substring. Lower rank sorts first; unmatched columns fall to the end.
var intlPatterns = []struct {
	pattern string
	rank    int
}{
	{"directiva aves", 1},
	{"aves", 2},
	{"directiva habitat", 3},
	{"habitat", 4},
	{"habitats", 4},
	{"cites", 5},
	{"berna", 6},
	{"bonn", 7},
	{"cms", 7},
	{"aewa", 8},
}

const unrankedIntl = 100

// ccaaOrder is the fixed presentation order for regional catalogs.
// Unrecognized region labels sort after all of these, alphabetically.
var ccaaOrder = []string{
	"Andalucía", "Aragón", "Asturias", "Illes Balears", "Canarias", "Cantabria",
	"Castilla-La Mancha", "Castilla y León", "Cataluña", "Ceuta", "Comunitat Valenciana",
	"Extremadura", "Galicia", "La Rioja", "Comunidad de Madrid", "Melilla",
	"Región de Murcia", "Navarra", "País Vasco",
}

const unrankedRegion = 999

var regionRank = func() map[string]int {
	rank := make(map[string]int, len(ccaaOrder))
	for i, region := range ccaaOrder {
		rank[model.RegionalCol+region] = i
	}
	return rank
}()

// conservationScopeRank orders Red List columns: world scope first, the
// national scope second, everything else alphabetical after them.
func conservationScopeRank(column string) int {
	scope := Fold(strings.TrimPrefix(column, model.ConservationCol))
	switch scope {
	case "mundial", "global":
		return 0
	case "nacional", "espana":
		return 1
	default:
		return 2
	}
}

func intlRank(column string) int {
	folded := Fold(column)
	for _, p := range intlPatterns {
		if strings.Contains(folded, p.pattern) {
			return p.rank
		}
	}
	return unrankedIntl
}

// OrderColumns returns a copy of the table with its columns in the stable
// domain order: identity block, Red List, international conventions,
// national catalogs, regional catalogs, leftovers, diagnostics last.
// Rows are shared, not copied; ordering never changes cell content.
func OrderColumns(table model.ResultTable) model.ResultTable {
	present := make(map[string]bool, len(table.Columns))
	for _, col := range table.Columns {
		present[col] = true
	}

	var ordered []string
	taken := make(map[string]bool)
	take := func(cols ...string) {
		for _, col := range cols {
			if present[col] && !taken[col] {
				taken[col] = true
				ordered = append(ordered, col)
			}
		}
	}

	take(fixedLeadingColumns...)

	// Partition the status columns.
	var conservation, international, national, regional, leftover []string
	for _, col := range table.Columns {
		if taken[col] || col == model.ColError {
			continue
		}
		switch {
		case model.IsBaseColumn(col):
			leftover = append(leftover, col)
		case strings.HasPrefix(col, model.ConservationCol):
			conservation = append(conservation, col)
		case strings.HasPrefix(col, model.RegionalCol):
			regional = append(regional, col)
		case isNationalCatalog(col):
			national = append(national, col)
		default:
			international = append(international, col)
		}
	}

	sort.Slice(conservation, func(i, j int) bool {
		ri, rj := conservationScopeRank(conservation[i]), conservationScopeRank(conservation[j])
		if ri != rj {
			return ri < rj
		}
		return conservation[i] < conservation[j]
	})

	sort.Slice(international, func(i, j int) bool {
		ri, rj := intlRank(international[i]), intlRank(international[j])
		if ri != rj {
			return ri < rj
		}
		return international[i] < international[j]
	})

	sort.Slice(national, func(i, j int) bool {
		ri, rj := nationalRank(national[i]), nationalRank(national[j])
		if ri != rj {
			return ri < rj
		}
		return national[i] < national[j]
	})

	sort.Slice(regional, func(i, j int) bool {
		ri, rj := lookupRegionRank(regional[i]), lookupRegionRank(regional[j])
		if ri != rj {
			return ri < rj
		}
		return regional[i] < regional[j]
	})

	sort.Strings(leftover)

	take(conservation...)
	take(international...)
	take(national...)
	take(regional...)
	take(leftover...)
	take(model.ColError)

	return model.ResultTable{Columns: ordered, Rows: table.Rows}
}

// isNationalCatalog matches the national-scope catalog labels. The
// "internacional" guard keeps default-labelled convention columns out of
// the national bucket.
func isNationalCatalog(column string) bool {
	folded := Fold(column)
	if strings.Contains(folded, "internacional") {
		return false
	}
	return strings.Contains(folded, "nacional")
}

func nationalRank(column string) int {
	if Fold(column) == "catalogo nacional" {
		return 0
	}
	return 1
}

func lookupRegionRank(column string) int {
	if rank, ok := regionRank[column]; ok {
		return rank
	}
	return unrankedRegion
}

// MarkProtected appends the bookkeeping column flagging rows that carry at
// least one protection status. Exports drop it via DropColumn.
func MarkProtected(table model.ResultTable) model.ResultTable {
	for _, row := range table.Rows {
		protected := false
		for col, v := range row {
			if model.IsBaseColumn(col) {
				continue
			}
			if v != "" && v != model.Sentinel {
				protected = true
				break
			}
		}
		row[model.ColProtected] = strconv.FormatBool(protected)
	}

	columns := append([]string(nil), table.Columns...)
	found := false
	for _, col := range columns {
		if col == model.ColProtected {
			found = true
			break
		}
	}
	if !found {
		columns = append(columns, model.ColProtected)
	}
	return model.ResultTable{Columns: columns, Rows: table.Rows}
}

// DropColumn returns the table without the named column.
func DropColumn(table model.ResultTable, name string) model.ResultTable {
	columns := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		if col != name {
			columns = append(columns, col)
		}
	}
	rows := make([]model.ResultRow, len(table.Rows))
	for i, row := range table.Rows {
		clone := make(model.ResultRow, len(row))
		for col, v := range row {
			if col != name {
				clone[col] = v
			}
		}
		rows[i] = clone
	}
	return model.ResultTable{Columns: columns, Rows: rows}
}
