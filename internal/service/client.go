package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eidoscope/eidoscope/internal/model"
)

const (
	// DefaultBaseURL points at the production EIDOS species API.
	DefaultBaseURL = "https://iepnb.gob.es/api/especie"

	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond

	// castilianLanguageID is the registry's language code for Castilian
	// vernacular names.
	castilianLanguageID = 1
)

// Default column labels when the registry record carries no dataset name.
const (
	nationalCatalogLabel = "Catálogo Nacional"
	intlConventionLabel  = "Convenio Internacional"
	fallbackCatalogLabel = "Otros"
	unknownRegionLabel   = "Desconocida"
)

// defaultAcceptedTokens mark a name record as the accepted/valid variant.
// Compared after accent folding, so "Aceptado/válido" matches both.
var defaultAcceptedTokens = []string{"aceptado", "valido"}

// Client performs lookups against the EIDOS registry. Every lookup swallows
// transport failures and reports them through its ok/bool result; the
// resolver never sees an error from this type. All calls share the injected
// rate limiter.
type Client struct {
	baseURL        string
	client         *http.Client
	limiter        *RateLimiter
	acceptedTokens []string
}

// NewClient creates a registry client. A nil limiter disables throttling.
func NewClient(baseURL string, timeout time.Duration, limiter *RateLimiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         &http.Client{Timeout: timeout},
		limiter:        limiter,
		acceptedTokens: defaultAcceptedTokens,
	}
}

// SetAcceptedStatusTokens overrides the name-status tokens recognized as
// accepted/valid.
func (c *Client) SetAcceptedStatusTokens(tokens []string) {
	if len(tokens) > 0 {
		c.acceptedTokens = tokens
	}
}

// taxonRecord is one candidate from the name-lookup procedure.
type taxonRecord struct {
	TaxonID  int    `json:"taxonid"`
	Name     string `json:"name"`
	NameType string `json:"nametype"`
}

// legalRecord is one row from the legal-statuses procedure.
type legalRecord struct {
	IDVigente   int    `json:"idvigente"`
	Ambito      string `json:"ambito"`
	Dataset     string `json:"dataset"`
	CCAA        string `json:"ccaa"`
	EstadoLegal string `json:"estadolegal"`
}

// conservationRecord is one row from the conservation-statuses procedure.
type conservationRecord struct {
	Ambito    string `json:"ambito"`
	Categoria string `json:"categoria"`
	Anio      int    `json:"anio"`
}

// taxonomyRecord is one row of the v_taxonomia view.
type taxonomyRecord struct {
	TaxonomicGroup string `json:"taxonomicgroup"`
}

// vernacularRecord is one row of the v_nombrescomunes view.
type vernacularRecord struct {
	IDIdioma     int    `json:"ididioma"`
	EsPreferente bool   `json:"espreferente"`
	NombreComun  string `json:"nombre_comun"`
}

// TaxonIDByName looks up a taxon id by exact scientific name, preferring
// the record flagged as the accepted/valid name variant.
func (c *Client) TaxonIDByName(ctx context.Context, name string) (int, bool) {
	var records []taxonRecord
	params := url.Values{"_nombretaxon": {name}}
	if err := c.getJSON(ctx, "/rpc/obtenertaxonespornombre", params, &records); err != nil {
		return 0, false
	}
	if len(records) == 0 {
		return 0, false
	}
	for _, rec := range records {
		nt := Fold(rec.NameType)
		for _, token := range c.acceptedTokens {
			if strings.Contains(nt, Fold(token)) {
				return rec.TaxonID, true
			}
		}
	}
	return records[0].TaxonID, true
}

// NameByID looks up the accepted scientific name for a taxon id.
func (c *Client) NameByID(ctx context.Context, id int) (string, bool) {
	var records []taxonRecord
	params := url.Values{"_idtaxon": {strconv.Itoa(id)}}
	if err := c.getJSON(ctx, "/rpc/obtenertaxonporid", params, &records); err != nil {
		return "", false
	}
	if len(records) == 0 || records[0].Name == "" {
		return "", false
	}
	return records[0].Name, true
}

// LegalStatuses fetches the in-force legal-protection records for a taxon
// and flattens them into one column per jurisdiction/dataset, each cell a
// sorted, comma-joined set of distinct statuses. ok is false only on
// transport failure.
func (c *Client) LegalStatuses(ctx context.Context, id int) (map[string]string, bool) {
	var records []legalRecord
	params := url.Values{"_idtaxon": {strconv.Itoa(id)}}
	if err := c.getJSON(ctx, "/rpc/obtenerestadoslegalesportaxonid", params, &records); err != nil {
		return nil, false
	}

	byColumn := make(map[string]map[string]bool)
	for _, rec := range records {
		if rec.IDVigente != 1 || rec.EstadoLegal == "" {
			continue
		}

		var column string
		switch rec.Ambito {
		case "Nacional":
			column = rec.Dataset
			if column == "" {
				column = nationalCatalogLabel
			}
		case "Autonómico", "Regional":
			region := rec.CCAA
			if region == "" {
				region = unknownRegionLabel
			}
			column = model.RegionalCol + region
		case "Internacional":
			column = rec.Dataset
			if column == "" {
				column = intlConventionLabel
			}
		default:
			column = rec.Dataset
			if column == "" {
				column = fallbackCatalogLabel
			}
		}

		if byColumn[column] == nil {
			byColumn[column] = make(map[string]bool)
		}
		byColumn[column][rec.EstadoLegal] = true
	}

	statuses := make(map[string]string, len(byColumn))
	for column, set := range byColumn {
		statuses[column] = joinSorted(set, ", ")
	}
	return statuses, true
}

// ConservationStatuses fetches Red-List records for a taxon, grouped by
// geographic scope, each cell a sorted set of "category (year)" entries.
func (c *Client) ConservationStatuses(ctx context.Context, id int) (map[string]string, bool) {
	var records []conservationRecord
	params := url.Values{"_idtaxon": {strconv.Itoa(id)}}
	if err := c.getJSON(ctx, "/rpc/obtenerestadosconservacionportaxonid", params, &records); err != nil {
		return nil, false
	}

	byScope := make(map[string]map[string]bool)
	for _, rec := range records {
		if rec.Categoria == "" {
			continue
		}
		scope := rec.Ambito
		if scope == "" {
			scope = unknownRegionLabel
		}
		column := model.ConservationCol + scope
		entry := rec.Categoria
		if rec.Anio > 0 {
			entry = fmt.Sprintf("%s (%d)", rec.Categoria, rec.Anio)
		}
		if byScope[column] == nil {
			byScope[column] = make(map[string]bool)
		}
		byScope[column][entry] = true
	}

	statuses := make(map[string]string, len(byScope))
	for column, set := range byScope {
		statuses[column] = joinSorted(set, "; ")
	}
	return statuses, true
}

// TaxonomicGroup returns the first non-empty group label from the
// classification view.
func (c *Client) TaxonomicGroup(ctx context.Context, id int) (string, bool) {
	var records []taxonomyRecord
	params := url.Values{"taxonid": {"eq." + strconv.Itoa(id)}}
	if err := c.getJSON(ctx, "/v_taxonomia", params, &records); err != nil {
		return "", false
	}
	for _, rec := range records {
		if rec.TaxonomicGroup != "" {
			return rec.TaxonomicGroup, true
		}
	}
	return "", false
}

// CommonName returns the preferred Castilian vernacular name, falling back
// to any Castilian entry, then to the first entry in any language.
func (c *Client) CommonName(ctx context.Context, id int) (string, bool) {
	var records []vernacularRecord
	params := url.Values{"idtaxon": {"eq." + strconv.Itoa(id)}}
	if err := c.getJSON(ctx, "/v_nombrescomunes", params, &records); err != nil {
		return "", false
	}
	if len(records) == 0 {
		return "", false
	}

	var castilian *vernacularRecord
	for i := range records {
		rec := &records[i]
		if rec.IDIdioma != castilianLanguageID {
			continue
		}
		if rec.EsPreferente {
			return rec.NombreComun, rec.NombreComun != ""
		}
		if castilian == nil {
			castilian = rec
		}
	}
	if castilian != nil {
		return castilian.NombreComun, castilian.NombreComun != ""
	}
	return records[0].NombreComun, records[0].NombreComun != ""
}

// FetchChecklist downloads the full canonical taxon list from the tabular
// export endpoint, requesting only the id and name fields as CSV.
func (c *Client) FetchChecklist(ctx context.Context) ([]model.ChecklistEntry, error) {
	endpoint := c.baseURL + "/listapatron?select=idtaxon,name"
	body, err := c.fetchWithRetry(ctx, endpoint, "text/csv")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checklist: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	var entries []model.ChecklistEntry
	fetchedAt := time.Now()
	for line := 0; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse checklist row: %w", err)
		}
		if line == 0 || len(record) < 2 {
			// Header, or a malformed row.
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(record[1])
		if name == "" {
			continue
		}
		entries = append(entries, model.ChecklistEntry{
			TaxonID:       id,
			CanonicalName: name,
			FetchedAt:     fetchedAt,
		})
	}
	return entries, nil
}

// getJSON performs a throttled GET against an API path and decodes the JSON
// response.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	body, err := c.fetchWithRetry(ctx, endpoint, "application/json")
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

// fetchWithRetry performs an HTTP GET with exponential backoff retry.
// Each attempt waits on the shared rate limiter first.
func (c *Client) fetchWithRetry(ctx context.Context, url, accept string) ([]byte, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", accept)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// joinSorted joins a string set deterministically.
func joinSorted(set map[string]bool, sep string) string {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return strings.Join(values, sep)
}
