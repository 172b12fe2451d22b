package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eidoscope/eidoscope/internal/config"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the EIDOS reference checklist into PostgreSQL",
	Long: `Import downloads the registry's canonical taxon list (lista patrón)
and stores it as the warm checklist copy in PostgreSQL.

Searches work without a database: the checklist is then fetched straight
from the registry and held in memory for the cache TTL. The warm copy only
spares that download across restarts.

Examples:
  # Refresh the stored checklist
  DATABASE_URL=postgres://... ./eidoscope import`,
	Run: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	p, err := buildPipeline(cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	defer p.close()

	if err := p.checklistStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	log.Println("Fetching checklist from EIDOS API...")
	entries, err := p.client.FetchChecklist(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Println("Import cancelled")
			os.Exit(1)
		}
		log.Fatalf("Failed to fetch checklist: %v", err)
	}
	log.Printf("Fetched %d checklist entries", len(entries))

	log.Println("Storing checklist...")
	if err := p.checklistStore.Save(ctx, entries); err != nil {
		log.Fatalf("Failed to store checklist: %v", err)
	}

	count, fetchedAt, err := p.checklistStore.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to verify stored checklist: %v", err)
	}

	log.Println("")
	log.Println("=== Checklist Import Summary ===")
	log.Printf("Entries stored:  %d", count)
	log.Printf("Fetched at:      %s", fetchedAt.Format("2006-01-02 15:04:05"))
}
