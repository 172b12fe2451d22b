package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eidoscope/eidoscope/internal/config"
	"github.com/eidoscope/eidoscope/internal/model"
	"github.com/eidoscope/eidoscope/internal/service"
)

var (
	searchIDs    string
	searchNames  string
	searchOutput string
)

var searchCmd = &cobra.Command{
	Use:   "search [names...]",
	Short: "Resolve taxa and aggregate their protection statuses",
	Long: `Search resolves scientific names and taxon ids against the EIDOS
registry and prints one table row per input, with legal and conservation
statuses flattened into columns.

Names can be given as arguments or with --names (comma, semicolon or
newline separated); ids with --ids.

Examples:
  ./eidoscope search "Lynx pardinus" "Ursus arctos"
  ./eidoscope search --names "Lynx pardinus; Vorderea pyrenaica" --ids "14389 999999"
  ./eidoscope search "Lynx pardinus" --output resultados.csv`,
	Run: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchNames, "names", "n", "", "Scientific names, separated by commas, semicolons or newlines")
	searchCmd.Flags().StringVarP(&searchIDs, "ids", "i", "", "Taxon ids, separated by whitespace, commas or semicolons")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "", "Write the table as CSV to this file instead of stdout")
}

func runSearch(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	names := append([]string(nil), args...)
	names = append(names, service.ParseNames(searchNames)...)
	ids := service.ParseIDs(searchIDs)

	if len(names) == 0 && len(ids) == 0 {
		log.Fatal("Provide at least one name or id (see --help)")
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	total := len(names) + len(ids)
	log.Printf("Resolving %d taxa against %s...", total, cfg.BaseURL)

	table, err := p.orchestrator.ProcessBatch(ctx, names, ids, func(done, total int) {
		log.Printf("[%d/%d] resolved", done, total)
	})
	if err != nil {
		log.Println("Search cancelled, discarding partial results")
		os.Exit(1)
	}

	table = service.MarkProtected(table)
	table = service.OrderColumns(table)

	printSearchSummary(table, total)

	output := service.DropColumn(table, model.ColProtected)
	if searchOutput != "" {
		if err := writeCSVFile(searchOutput, output); err != nil {
			log.Fatalf("Failed to write %s: %v", searchOutput, err)
		}
		log.Printf("Results written to %s", searchOutput)
		return
	}
	printTable(output)
}

// printSearchSummary prints the batch counters: queried, found, protected,
// failed.
func printSearchSummary(table model.ResultTable, queried int) {
	found, protected, failed := 0, 0, 0
	for _, row := range table.Rows {
		if row.Failed() {
			failed++
			continue
		}
		found++
		if row[model.ColProtected] == "true" {
			protected++
		}
	}

	log.Println("")
	log.Println("=== Search Summary ===")
	log.Printf("Taxa queried:    %d", queried)
	log.Printf("Found:           %d", found)
	log.Printf("With protection: %d", protected)
	log.Printf("Failed:          %d", failed)
}

// printTable writes the table to stdout as tab-separated values.
func printTable(table model.ResultTable) {
	var sb strings.Builder
	sb.WriteString(strings.Join(table.Columns, "\t"))
	sb.WriteString("\n")
	for _, row := range table.Rows {
		cells := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			cells[i] = row[col]
		}
		sb.WriteString(strings.Join(cells, "\t"))
		sb.WriteString("\n")
	}
	fmt.Print(sb.String())
}

// writeCSVFile serializes the table to a CSV file.
func writeCSVFile(path string, table model.ResultTable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(table.Columns); err != nil {
		return err
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
