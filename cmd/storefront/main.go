// Command storefront runs the artisan storefront API and its operational
// tasks.
//
//	storefront serve            # HTTP + gRPC health, queue workers, scheduler
//	storefront migrate          # apply pending migrations
//	storefront db:seed          # admin account and sample catalog
//	storefront queue:work       # queue workers only
//	storefront schedule:run     # export scheduler only
//	storefront route:list
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Artisan storefront API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	// Workers
	rootCmd.AddCommand(queueWorkCmd)
	rootCmd.AddCommand(queueFailedCmd)
	rootCmd.AddCommand(scheduleRunCmd)
	rootCmd.AddCommand(scheduleListCmd)

	// Catalog and exports
	rootCmd.AddCommand(exportRunCmd)
	rootCmd.AddCommand(exportRetryCmd)
	rootCmd.AddCommand(productsExportCmd)
	rootCmd.AddCommand(productsImportCmd)
}
