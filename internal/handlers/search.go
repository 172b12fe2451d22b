package handlers

import (
	"bytes"
	"encoding/csv"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/eidoscope/eidoscope/internal/model"
	"github.com/eidoscope/eidoscope/internal/service"
)

// searchRequest carries the raw textarea-style input: names and ids as
// free text, split server-side the same way the CLI splits them.
type searchRequest struct {
	Names string `json:"names"`
	IDs   string `json:"ids"`
}

type searchResponse struct {
	Columns   []string          `json:"columns"`
	Rows      []model.ResultRow `json:"rows"`
	Queried   int               `json:"queried"`
	Found     int               `json:"found"`
	Protected int               `json:"protected"`
}

// SearchHandler runs a batch search and returns the ordered result table.
// With ?format=csv the table is returned as a CSV download instead, with
// the bookkeeping column dropped.
func SearchHandler(orchestrator *service.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}

		names := service.ParseNames(req.Names)
		ids := service.ParseIDs(req.IDs)
		if len(names) == 0 && len(ids) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "provide at least one name or id",
			})
		}

		table, err := orchestrator.ProcessBatch(c.UserContext(), names, ids, nil)
		if err != nil {
			log.Printf("Search aborted: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "search aborted",
			})
		}

		table = service.MarkProtected(table)
		table = service.OrderColumns(table)

		if c.Query("format") == "csv" {
			return sendCSV(c, service.DropColumn(table, model.ColProtected))
		}

		resp := searchResponse{
			Columns: table.Columns,
			Rows:    table.Rows,
			Queried: len(names) + len(ids),
		}
		for _, row := range table.Rows {
			if !row.Failed() {
				resp.Found++
				if row[model.ColProtected] == "true" {
					resp.Protected++
				}
			}
		}
		return c.JSON(resp)
	}
}

// sendCSV serializes the table as a CSV attachment.
func sendCSV(c *fiber.Ctx, table model.ResultTable) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(table.Columns); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error writing CSV")
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error writing CSV")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error writing CSV")
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="proteccion_especies.csv"`)
	return c.Send(buf.Bytes())
}
