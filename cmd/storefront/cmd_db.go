package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/artisanmart/storefront/config"
	"github.com/artisanmart/storefront/database/migrations"
	"github.com/artisanmart/storefront/database/seeders"
	"github.com/artisanmart/storefront/pkg/database"
	"github.com/artisanmart/storefront/pkg/migration"
)

// withDB loads config and opens the database for the duration of fn.
func withDB(ctx context.Context, fn func(ctx context.Context, db *gorm.DB) error) error {
	if err := config.Load(); err != nil {
		return err
	}
	if err := database.Connect(); err != nil {
		return err
	}
	defer database.Close(database.DB)
	return fn(ctx, database.DB)
}

func migrator(db *gorm.DB) *migration.Runner {
	return migration.New(db, migrations.All())
}

func printNames(verb string, names []string) {
	if len(names) == 0 {
		fmt.Println("Nothing to " + verb + ".")
		return
	}
	for _, n := range names {
		fmt.Printf("  %s: %s\n", verb, n)
	}
}

// storefront migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
			ran, err := migrator(db).Run(ctx)
			printNames("migrate", ran)
			return err
		})
	},
}

// storefront migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Roll back the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
			reverted, err := migrator(db).Rollback(ctx)
			printNames("roll back", reverted)
			return err
		})
	},
}

// storefront migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
			status, err := migrator(db).Status(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "RAN\tBATCH\tMIGRATION")
			for _, s := range status {
				ran, batch := "no", "-"
				if s.Ran {
					ran, batch = "yes", fmt.Sprint(s.Batch)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", ran, batch, s.Name)
			}
			return w.Flush()
		})
	},
}

// storefront db:seed
var seedCmd = &cobra.Command{
	Use:     "db:seed",
	Aliases: []string{"seed"},
	Short:   "Seed the admin account and the sample catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
			if err := seeders.RunAll(ctx, db); err != nil {
				return err
			}
			fmt.Printf("Seeded: %v\n", seeders.Names())
			return nil
		})
	},
}
