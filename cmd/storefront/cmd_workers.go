package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artisanmart/storefront/config"
	"github.com/artisanmart/storefront/pkg/app"
)

var failedRetryFlag uint

// runUntilSignal starts the selected workers and blocks until SIGINT or
// SIGTERM, then drains them.
func runUntilSignal(ctx context.Context, a *app.Application, w app.Workers) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, w); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout())
	defer cancel()
	return a.Stop(stopCtx)
}

// storefront queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Process queued jobs until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			fmt.Printf("Queue workers started (%d). Press Ctrl+C to stop.\n", config.QueueWorkers())
			return runUntilSignal(ctx, a, app.Workers{Queue: true})
		})
	},
}

// storefront queue:failed
var queueFailedCmd = &cobra.Command{
	Use:   "queue:failed",
	Short: "List jobs that exhausted their retries, or re-queue one with --retry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			if failedRetryFlag > 0 {
				if err := a.Queue.RetryFailed(ctx, failedRetryFlag); err != nil {
					return err
				}
				fmt.Printf("Re-queued failed job %d.\n", failedRetryFlag)
				return nil
			}

			jobs, err := a.Queue.StoredFailedJobs(ctx)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("No failed jobs.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tJOB\tATTEMPTS\tFAILED AT\tERROR")
			for _, j := range jobs {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", j.ID, j.JobType, j.Attempts, j.FailedAt.Format(time.RFC3339), j.Error)
			}
			return w.Flush()
		})
	},
}

// storefront schedule:run
var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Run the export scheduler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			// Retries are queued jobs; the in-memory queue only exists in
			// this process, so it needs its own workers.
			w := app.Workers{Scheduler: true, Queue: config.QueueDriver() != "redis"}
			if err := runUntilSignal(ctx, a, w); err != nil {
				return err
			}
			fmt.Println("Scheduler stopped.")
			return nil
		})
	},
}

// storefront schedule:list
var scheduleListCmd = &cobra.Command{
	Use:   "schedule:list",
	Short: "List the scheduled tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			if err := a.Schedule(ctx); err != nil {
				return err
			}
			entries := a.Scheduler.List()
			if len(entries) == 0 {
				fmt.Println("No active schedules.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tFREQUENCY")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\n", e.ID, e.Frequency)
			}
			return w.Flush()
		})
	},
}

func init() {
	queueFailedCmd.Flags().UintVar(&failedRetryFlag, "retry", 0, "Re-queue the failed job with this id")
}
