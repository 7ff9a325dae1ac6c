package cli

import (
	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"

	"github.com/anisbt/jauge/internal/database"
)

var Version string

// RootCmd represents the root command
var RootCmd = &cobra.Command{
	Use:   "jauge",
	Short: "Accounting dashboard for fuel retail stations",
	Long: `Jauge - monthly accounting dashboard.

Jauge serves the station's accounting dashboard: monthly workbook uploads,
ETL runs against the accounting backend, and live anomaly/alert/summary
panels that follow the active period.`,
	Version: Version,
	// Default to serve command if no subcommand provided
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return serveDashboard("", "", "")
		}
		return cmd.Help()
	},
}

// Embedded assets passed from main
var (
	DashboardTemplate []byte
	IndexHTML         []byte
)

// Execute is called by main
func Execute(version string, dashboardTemplate, indexHTML []byte) error {
	Version = version
	DashboardTemplate = dashboardTemplate
	IndexHTML = indexHTML

	RootCmd.Version = version
	setupSelfUpgrade()

	return RootCmd.Execute()
}

func handleIndex(c fiber.Ctx) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(IndexHTML)
}

func handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "jauge",
	})
}

// handleUp is the Docker health check endpoint. 200 only when the database
// answers.
func handleUp(c fiber.Ctx) error {
	if err := database.DB.Ping(); err != nil {
		return c.Status(503).SendString("database unavailable")
	}
	return c.SendStatus(200)
}

func handleVersion(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version": Version,
	})
}

func init() {
	RootCmd.AddCommand(serveCmd)
	RootCmd.Version = Version
}
