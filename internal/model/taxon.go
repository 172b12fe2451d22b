package model

import "time"

// Well-known column labels shared by the resolver, the sequencer and the
// export layer. Legal and conservation columns are derived from registry
// data at runtime and are not enumerable here.
const (
	ColSpecies      = "Especie"
	ColGroup        = "Grupo taxonómico"
	ColCommonName   = "Nombre común"
	ColCorrection   = "Corrección"
	ColConfidence   = "Confianza"
	ColError        = "Error"
	ColProtected    = "Protegido"
	ConservationCol = "Lista Roja - "
	RegionalCol     = "Catálogo - "
)

// Sentinel fills every cell that has no value for its row.
const Sentinel = "-"

// QueryKind discriminates the two accepted input forms.
type QueryKind int

const (
	QueryByName QueryKind = iota
	QueryByID
)

// TaxonQuery is one parsed input item: a scientific name or an EIDOS taxon id.
type TaxonQuery struct {
	Kind    QueryKind
	Name    string
	TaxonID int
}

// NameQuery builds a query for a scientific name.
func NameQuery(name string) TaxonQuery {
	return TaxonQuery{Kind: QueryByName, Name: name}
}

// IDQuery builds a query for a numeric taxon id.
func IDQuery(id int) TaxonQuery {
	return TaxonQuery{Kind: QueryByID, TaxonID: id}
}

// ChecklistEntry is one row of the registry's canonical taxon list.
type ChecklistEntry struct {
	TaxonID       int
	CanonicalName string
	FetchedAt     time.Time
}

// MatchMethod records how a query was resolved to a taxon id.
type MatchMethod int

const (
	MatchExact MatchMethod = iota
	MatchFuzzy
)

// ResolutionResult is the outcome of resolving one query, consumed
// immediately to drive attribute gathering.
type ResolutionResult struct {
	TaxonID     int
	MatchedName string
	Confidence  int // 0-100
	Method      MatchMethod
}

// ResultRow maps column labels to cell values. Rows from different queries
// carry different column sets until the orchestrator unions them.
type ResultRow map[string]string

// Failed reports whether the row carries a diagnostic marker.
func (r ResultRow) Failed() bool {
	v, ok := r[ColError]
	return ok && v != "" && v != Sentinel
}

// ResultTable is the unioned, ordered output of one batch search.
type ResultTable struct {
	Columns []string
	Rows    []ResultRow
}

// Empty reports whether the table has no rows.
func (t ResultTable) Empty() bool {
	return len(t.Rows) == 0
}

// baseColumns are the bookkeeping and identity columns that are never
// legal/conservation data.
var baseColumns = map[string]bool{
	ColSpecies:    true,
	ColGroup:      true,
	ColCommonName: true,
	ColCorrection: true,
	ColConfidence: true,
	ColError:      true,
	ColProtected:  true,
}

// IsBaseColumn reports whether the label is an identity or bookkeeping
// column rather than a protection-status column.
func IsBaseColumn(name string) bool {
	return baseColumns[name]
}
