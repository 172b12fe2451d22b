package cmd

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/cobra"

	"github.com/eidoscope/eidoscope/internal/config"
	"github.com/eidoscope/eidoscope/internal/handlers"
)

var portFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Eidoscope API server",
	Long:  `Start the HTTP API exposing batch taxon searches over the EIDOS registry.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		port := listenPort(portFlag, cfg)

		p, err := buildPipeline(cfg)
		if err != nil {
			log.Fatalf("Failed to build pipeline: %v", err)
		}
		defer p.close()

		app := fiber.New(fiber.Config{
			AppName: "Eidoscope",
		})

		app.Use(logger.New())

		// Routes
		app.Get("/healthz", handlers.HealthHandler())
		app.Get("/api/checklist", handlers.ChecklistHandler(p.cache, p.checklistStore))
		app.Post("/api/search", handlers.SearchHandler(p.orchestrator))

		log.Printf("Starting server on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	},
}

// listenPort resolves the serve port: an explicit flag wins, otherwise the
// configured value (PORT env, default 8080).
func listenPort(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.Port
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Port to run the server on (default from PORT env, else 8080)")
}
