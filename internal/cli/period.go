package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anisbt/jauge/internal/database"
	"github.com/anisbt/jauge/internal/period"
	"github.com/anisbt/jauge/internal/realtime"
)

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Inspect or change the active accounting period",
	Long: `Inspect or change the active accounting period.

The active period drives every observer panel on the dashboard. Setting it
from the CLI publishes the same change notification a completed upload cycle
would, so connected dashboards refresh immediately.`,
}

var periodGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the active period",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Connect(); err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer func() { _ = database.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		active := period.NewStore().Get(ctx)
		fmt.Printf("Période active : %s\n", active)
		return nil
	},
}

var periodSetCmd = &cobra.Command{
	Use:   "set <mois> <annee>",
	Short: "Set the active period",
	Long: `Set the active period to the given French month name and year.

Example:
  jauge period set mars 2024`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid year '%s'", args[1])
		}

		p := period.Period{Month: strings.ToLower(args[0]), Year: year}
		if err := p.Validate(); err != nil {
			return err
		}

		if err := database.Connect(); err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer func() { _ = database.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := period.NewStore().Set(ctx, p); err != nil {
			return fmt.Errorf("failed to store period: %w", err)
		}
		realtime.NotifyPeriodChange(ctx, p)

		fmt.Printf("✓ Période active : %s\n", p)
		return nil
	},
}

func init() {
	periodCmd.AddCommand(periodGetCmd)
	periodCmd.AddCommand(periodSetCmd)
	RootCmd.AddCommand(periodCmd)
}
