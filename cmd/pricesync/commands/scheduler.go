package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhango/pricesync/internal/scheduler"
	"github.com/jhango/pricesync/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the scheduled price update",
	Long: `Runs or inspects the scheduler daemon. The daily full-catalog
price update is registered on the UPDATE_SCHEDULE cron expression,
defaulting to 06:00 every day.

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run a job immediately
  status  - show job execution statistics

Example:
  go run ./cmd/pricesync scheduler start
  go run ./cmd/pricesync scheduler run price-update`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		Long:  "Starts the scheduler and blocks until Ctrl+C.",
		RunE:  runSchedulerStart,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  runSchedulerList,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerRun,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution statistics",
		RunE:  runSchedulerStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

// initScheduler wires the scheduler with its registered jobs.
func initScheduler(ctx context.Context) (*scheduler.Scheduler, *deps, error) {
	d, err := initDeps(ctx)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(d.log)
	job := jobs.NewPriceUpdateJob(d.orchestrator, d.repository, d.emailer, d.log, d.cfg.Update.Schedule)
	if err := sched.AddJob(job); err != nil {
		d.close()
		return nil, nil, fmt.Errorf("register job: %w", err)
	}
	return sched, d, nil
}

func runSchedulerStart(cmd *cobra.Command, _ []string) error {
	sched, d, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	sched.Start()
	fmt.Println("Scheduler started")
	for name, stats := range sched.JobStats() {
		fmt.Printf("  %s: %q\n", name, stats.Schedule)
	}
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func runSchedulerList(cmd *cobra.Command, _ []string) error {
	sched, d, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	for name, stats := range sched.JobStats() {
		fmt.Printf("%s\t%s\n", name, stats.Schedule)
	}
	return nil
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	sched, d, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	name := args[0]
	if err := sched.Trigger(name); err != nil {
		return err
	}
	fmt.Printf("Job %s started\n", name)

	// Trigger is asynchronous; poll the history until the run records.
	for {
		stats := sched.JobStats()[name]
		if stats.TotalRuns > 0 {
			if stats.LastError != "" {
				return fmt.Errorf("job %s failed: %s", name, stats.LastError)
			}
			fmt.Printf("Job %s completed\n", name)
			return nil
		}
		time.Sleep(time.Second)
	}
}

func runSchedulerStatus(cmd *cobra.Command, _ []string) error {
	sched, d, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	for name, stats := range sched.JobStats() {
		fmt.Printf("%s\n", name)
		fmt.Printf("  schedule: %s\n", stats.Schedule)
		fmt.Printf("  runs: %d  success rate: %.0f%%\n", stats.TotalRuns, stats.SuccessRate*100)
		if stats.LastRun != nil {
			fmt.Printf("  last run: %s\n", stats.LastRun.Format(time.RFC3339))
		}
		if stats.LastError != "" {
			fmt.Printf("  last error: %s\n", stats.LastError)
		}
	}
	return nil
}
