package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anisbt/jauge/internal/excelcheck"
)

var checkFileCmd = &cobra.Command{
	Use:   "check-file <path>...",
	Short: "Validate Excel workbooks before uploading",
	Long: `Validate that Excel workbooks open and parse before uploading them.

Runs the same validation the dashboard applies when an upload is staged,
so a workbook that passes here will not be rejected at staging time.

Example:
  jauge check-file exports/ventes_mars.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			if err := excelcheck.CheckFile(path); err != nil {
				fmt.Printf("✗ %s: %v\n", filepath.Base(path), err)
				failed++
				continue
			}
			fmt.Printf("✓ %s\n", filepath.Base(path))
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files failed validation", failed, len(args))
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(checkFileCmd)
}
