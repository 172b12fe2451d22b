package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/eidoscope/eidoscope/internal/model"
)

// Diagnostic messages written to the Error column.
const (
	errTaxonNotFound     = "taxon not found"
	errIDNotFound        = "id not found"
	errLegalFetch        = "failed to fetch legal statuses"
	errConservationFetch = "failed to fetch conservation statuses"
)

// Registry is the lookup surface the resolver needs. *Client implements it;
// tests inject fakes.
type Registry interface {
	TaxonIDByName(ctx context.Context, name string) (int, bool)
	NameByID(ctx context.Context, id int) (string, bool)
	LegalStatuses(ctx context.Context, id int) (map[string]string, bool)
	ConservationStatuses(ctx context.Context, id int) (map[string]string, bool)
	TaxonomicGroup(ctx context.Context, id int) (string, bool)
	CommonName(ctx context.Context, id int) (string, bool)
}

// ChecklistProvider supplies the reference mapping for fuzzy matching.
// *ChecklistCache implements it.
type ChecklistProvider interface {
	Get(ctx context.Context) map[string]int
}

// Resolver turns one TaxonQuery into one ResultRow: exact lookup, fuzzy
// fallback against the checklist, then attribute gathering for the resolved
// id. Failures degrade to diagnostic cells; Resolve never errors.
type Resolver struct {
	registry  Registry
	checklist ChecklistProvider
	threshold int
}

// NewResolver creates a resolver. threshold <= 0 selects the default.
func NewResolver(registry Registry, checklist ChecklistProvider, threshold int) *Resolver {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &Resolver{
		registry:  registry,
		checklist: checklist,
		threshold: threshold,
	}
}

// Resolve processes a single query.
func (r *Resolver) Resolve(ctx context.Context, query model.TaxonQuery) model.ResultRow {
	if query.Kind == model.QueryByID {
		return r.resolveID(ctx, query.TaxonID)
	}
	return r.resolveName(ctx, query.Name)
}

func (r *Resolver) resolveName(ctx context.Context, name string) model.ResultRow {
	if id, ok := r.registry.TaxonIDByName(ctx, name); ok {
		res := model.ResolutionResult{
			TaxonID:     id,
			MatchedName: name,
			Confidence:  100,
			Method:      model.MatchExact,
		}
		return r.gather(ctx, res, "")
	}

	match, ok := FuzzyMatchName(name, r.checklist.Get(ctx), r.threshold)
	if !ok {
		return errorRow(name, errTaxonNotFound)
	}

	res := model.ResolutionResult{
		TaxonID:     match.TaxonID,
		MatchedName: match.MatchedName,
		Confidence:  match.Score,
		Method:      model.MatchFuzzy,
	}
	note := fmt.Sprintf("corrected (similarity %d%%): '%s' -> '%s'", match.Score, name, match.MatchedName)
	return r.gather(ctx, res, note)
}

func (r *Resolver) resolveID(ctx context.Context, id int) model.ResultRow {
	name, ok := r.registry.NameByID(ctx, id)
	if !ok {
		return errorRow(fmt.Sprintf("ID:%d", id), errIDNotFound)
	}

	res := model.ResolutionResult{
		TaxonID:     id,
		MatchedName: name,
		Confidence:  100,
		Method:      model.MatchExact,
	}
	return r.gather(ctx, res, "")
}

// gather fetches the four independent attribute sets concurrently and
// merges them into the row. A legal or conservation transport failure marks
// the diagnostic cell without aborting the other fetches.
func (r *Resolver) gather(ctx context.Context, res model.ResolutionResult, note string) model.ResultRow {
	var (
		legal, conservation     map[string]string
		legalOK, conservationOK bool
		group, common           string
	)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		legal, legalOK = r.registry.LegalStatuses(ctx, res.TaxonID)
	}()
	go func() {
		defer wg.Done()
		conservation, conservationOK = r.registry.ConservationStatuses(ctx, res.TaxonID)
	}()
	go func() {
		defer wg.Done()
		group, _ = r.registry.TaxonomicGroup(ctx, res.TaxonID)
	}()
	go func() {
		defer wg.Done()
		common, _ = r.registry.CommonName(ctx, res.TaxonID)
	}()
	wg.Wait()

	row := model.ResultRow{
		model.ColSpecies:    res.MatchedName,
		model.ColConfidence: strconv.Itoa(res.Confidence),
	}
	if note != "" {
		row[model.ColCorrection] = note
	}
	row[model.ColGroup] = orSentinel(group)
	row[model.ColCommonName] = orSentinel(common)
	for col, v := range legal {
		row[col] = v
	}
	for col, v := range conservation {
		row[col] = v
	}

	var diagnostics []string
	if !legalOK {
		diagnostics = append(diagnostics, errLegalFetch)
	}
	if !conservationOK {
		diagnostics = append(diagnostics, errConservationFetch)
	}
	if len(diagnostics) > 0 {
		row[model.ColError] = strings.Join(diagnostics, "; ")
	}
	return row
}

// errorRow short-circuits a failed resolution: identity plus the diagnostic
// marker only, attribute columns left to the sentinel fill.
func errorRow(identity, reason string) model.ResultRow {
	return model.ResultRow{
		model.ColSpecies: identity,
		model.ColError:   reason,
	}
}

func orSentinel(v string) string {
	if v == "" {
		return model.Sentinel
	}
	return v
}
