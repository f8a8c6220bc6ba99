package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/app"
)

var (
	exportFormatFlag string
	exportOutFlag    string
)

func parseID(arg, what string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return uint(id), nil
}

func printRun(run models.ScheduledExportRun) error {
	fmt.Printf("Run %d (schedule %d, attempt %d): %s\n", run.ID, run.ScheduleID, run.Attempt, run.Status)
	if run.Artifact != "" {
		fmt.Printf("  delivered to %s (%d rows)\n", run.Artifact, run.Rows)
	}
	if run.Status == models.RunFailed {
		return fmt.Errorf("export failed: %s", run.Error)
	}
	return nil
}

// storefront export:run <scheduleID>
var exportRunCmd = &cobra.Command{
	Use:   "export:run <scheduleID>",
	Short: "Run a scheduled export now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "schedule id")
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			run, err := a.Services.Exports.RunNow(ctx, id)
			if err != nil {
				return err
			}
			return printRun(run)
		})
	},
}

// storefront export:retry <runID>
var exportRetryCmd = &cobra.Command{
	Use:   "export:retry <runID>",
	Short: "Retry a failed export run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "run id")
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			run, err := a.Services.Exports.Retry(ctx, id)
			if err != nil {
				return err
			}
			return printRun(run)
		})
	},
}

// storefront products:export
var productsExportCmd = &cobra.Command{
	Use:   "products:export",
	Short: "Write the catalog as CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			artifact, err := a.Services.Catalog.Export(ctx, exportFormatFlag)
			if err != nil {
				return err
			}
			out := exportOutFlag
			if out == "" {
				out = artifact.Name
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, artifact.Data, 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %d products to %s\n", artifact.Rows, out)
			return nil
		})
	},
}

// storefront products:import <file.csv>
var productsImportCmd = &cobra.Command{
	Use:   "products:import <file.csv>",
	Short: "Upsert products from a catalog CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			res, err := a.Services.Catalog.Import(ctx, f)
			if err != nil {
				return err
			}
			fmt.Printf("Created %d, updated %d.\n", res.Created, res.Updated)
			for _, e := range res.Errors {
				fmt.Printf("  line %d: %s\n", e.Line, e.Message)
			}
			return nil
		})
	},
}

func init() {
	productsExportCmd.Flags().StringVarP(&exportFormatFlag, "format", "f", models.ExportFormatCSV, "csv or xlsx")
	productsExportCmd.Flags().StringVarP(&exportOutFlag, "out", "o", "", "Output file (defaults to the generated name)")
}
