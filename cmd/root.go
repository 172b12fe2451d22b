package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/eidoscope/eidoscope/internal/config"
	"github.com/eidoscope/eidoscope/internal/service"
	"github.com/eidoscope/eidoscope/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "eidoscope",
	Short: "Legal and conservation status lookup for Spanish biodiversity",
	Long: `Eidoscope resolves scientific names and taxon ids against the EIDOS
registry (IEPNB) and aggregates each taxon's legal-protection and
conservation-status records into one table row per input.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// pipeline bundles the wired core components shared by the commands.
type pipeline struct {
	cfg            *config.Config
	client         *service.Client
	cache          *service.ChecklistCache
	orchestrator   *service.Orchestrator
	db             *sql.DB               // nil without DATABASE_URL
	checklistStore *store.ChecklistStore // nil without DATABASE_URL
}

// buildPipeline wires the resolution pipeline from configuration. The
// checklist warm store is attached only when DATABASE_URL is set; the
// pipeline works without it.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	p := &pipeline{cfg: cfg}

	limiter := service.NewRateLimiter(cfg.RateInterval())
	p.client = service.NewClient(cfg.BaseURL, cfg.RequestTimeout, limiter)

	if cfg.DatabaseURL != "" {
		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		p.db = db
		p.checklistStore = store.NewChecklistStore(db)
	}

	var checklistStore service.ChecklistStore
	if p.checklistStore != nil {
		checklistStore = p.checklistStore
	}
	p.cache = service.NewChecklistCache(p.client, checklistStore, cfg.ChecklistTTL)

	resolver := service.NewResolver(p.client, p.cache, cfg.FuzzyThreshold)
	p.orchestrator = service.NewOrchestrator(resolver, cfg.Workers)
	return p, nil
}

// close releases pipeline resources.
func (p *pipeline) close() {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}
}
