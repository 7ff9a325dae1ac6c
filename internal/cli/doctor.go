package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/anisbt/jauge/internal/config"
	"github.com/anisbt/jauge/internal/database"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on Jauge installation",
	Long: `Run comprehensive health checks on Jauge installation.

Checks performed:
  - Database connection
  - PostgreSQL version ≥17
  - Database migrations completed
  - Required tables exist
  - Accounting backend reachable

Example:
  jauge doctor
  jauge doctor --json`,
	RunE: runDoctor,
}

type CheckResult struct {
	Name       string `json:"name"`
	Pass       bool   `json:"pass"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Details    string `json:"details,omitempty"`
}

var requiredTables = []string{
	"app_state",
	"dashboard_session",
	"upload_audit",
}

func checkDatabaseConnection(db *sql.DB) CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return CheckResult{
			Name:       "Database Connection",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Verify DATABASE_URL and ensure PostgreSQL is running",
		}
	}
	return CheckResult{Name: "Database Connection", Pass: true}
}

func checkPostgreSQLVersion(db *sql.DB) CheckResult {
	var version string
	err := db.QueryRow("SHOW server_version").Scan(&version)
	if err != nil {
		return CheckResult{Name: "PostgreSQL Version", Pass: false, Error: err.Error()}
	}

	// Parse version (e.g., "17.1 (Debian 17.1-1)")
	parts := strings.Split(version, " ")
	versionNum := strings.Split(parts[0], ".")
	major, _ := strconv.Atoi(versionNum[0])

	if major < 17 {
		return CheckResult{
			Name:       "PostgreSQL Version",
			Pass:       false,
			Error:      fmt.Sprintf("Version %s found, need ≥17", parts[0]),
			Suggestion: "Upgrade PostgreSQL to version 17 or higher",
		}
	}
	return CheckResult{Name: "PostgreSQL Version", Pass: true, Details: parts[0]}
}

func checkMigrations(cfg *config.Config) CheckResult {
	version, dirty, err := database.GetMigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Migrations run automatically on: jauge serve",
		}
	}

	expectedVersion := uint(1)
	if version != expectedVersion {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      fmt.Sprintf("Migration version %d, expected %d", version, expectedVersion),
			Suggestion: "Migrations run automatically on: jauge serve",
		}
	}

	if dirty {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      "Migration state is dirty",
			Suggestion: "Fix dirty migration state, may need manual intervention",
		}
	}

	return CheckResult{Name: "Database Migrations", Pass: true, Details: fmt.Sprintf("v%d", version)}
}

func checkRequiredTables(db *sql.DB) CheckResult {
	query := `
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = 'public' AND tablename = ANY($1)
	`

	rows, err := db.Query(query, pq.Array(requiredTables))
	if err != nil {
		return CheckResult{Name: "Required Tables", Pass: false, Error: err.Error()}
	}
	defer func() { _ = rows.Close() }()

	foundTables := make(map[string]bool)
	for rows.Next() {
		var name string
		_ = rows.Scan(&name)
		foundTables[name] = true
	}

	var missing []string
	for _, table := range requiredTables {
		if !foundTables[table] {
			missing = append(missing, table)
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:       "Required Tables",
			Pass:       false,
			Error:      fmt.Sprintf("Missing tables: %s", strings.Join(missing, ", ")),
			Suggestion: "Run migrations to create missing tables",
		}
	}

	return CheckResult{
		Name:    "Required Tables",
		Pass:    true,
		Details: fmt.Sprintf("%d/%d tables found", len(requiredTables), len(requiredTables)),
	}
}

func checkBackendReachable(cfg *config.Config) CheckResult {
	if cfg.BackendURL == "" {
		return CheckResult{
			Name:       "Accounting Backend",
			Pass:       false,
			Error:      "BACKEND_URL not configured",
			Suggestion: "Set BACKEND_URL to the accounting backend base URL",
		}
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimSuffix(cfg.BackendURL, "/") + "/")
	if err != nil {
		return CheckResult{
			Name:       "Accounting Backend",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Verify BACKEND_URL and ensure the backend is running",
		}
	}
	defer func() { _ = resp.Body.Close() }()

	// Any HTTP answer means the service is up; auth failures are expected here.
	return CheckResult{
		Name:    "Accounting Backend",
		Pass:    true,
		Details: fmt.Sprintf("HTTP %d", resp.StatusCode),
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("✗ Configuration Error: %v\n", err)
		return err
	}

	results := []CheckResult{}

	// Connect to database for the DB checks
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		results = append(results, CheckResult{
			Name:       "Database Connection",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Verify DATABASE_URL is valid",
		})
	} else {
		defer func() { _ = db.Close() }()

		results = append(results, checkDatabaseConnection(db))
		results = append(results, checkPostgreSQLVersion(db))
		results = append(results, checkMigrations(cfg))
		results = append(results, checkRequiredTables(db))
	}

	results = append(results, checkBackendReachable(cfg))

	// Output results
	if jsonOutput {
		outputDoctorJSON(results)
	} else {
		outputDoctorHuman(results)
	}

	// Determine exit code
	allPassed := true
	for _, r := range results {
		if !r.Pass {
			allPassed = false
			break
		}
	}

	if !allPassed {
		os.Exit(1)
	}

	return nil
}

func outputDoctorHuman(results []CheckResult) {
	fmt.Println("\n🏥 Jauge Health Check")

	for _, r := range results {
		icon := "✓"
		if !r.Pass {
			icon = "✗"
		}

		fmt.Printf("%s %s", icon, r.Name)
		if r.Details != "" {
			fmt.Printf(" (%s)", r.Details)
		}
		fmt.Println()

		if !r.Pass {
			if r.Error != "" {
				fmt.Printf("  Error: %s\n", r.Error)
			}
			if r.Suggestion != "" {
				fmt.Printf("  💡 %s\n", r.Suggestion)
			}
		}
	}

	// Summary
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}

	fmt.Printf("\n%d/%d checks passed\n\n", passed, len(results))
}

func outputDoctorJSON(results []CheckResult) {
	data, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(data))
}

func init() {
	doctorCmd.Flags().Bool("json", false, "Output results as JSON")
	RootCmd.AddCommand(doctorCmd)
}
