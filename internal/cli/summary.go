package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/prodline/mdi/internal/store"
)

func summaryCmd() *cli.Command {
	return &cli.Command{
		Name:        "summary",
		Usage:       "Print the last seven days of processing runs",
		Description: `Aggregates run history per day and status: files processed, record counts, and how many passed validation.`,
		Action:      summaryAction,
	}
}

func summaryAction(ctx context.Context, _ *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rows, err := store.New(pool).ProcessingSummary(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No processing runs in the last 7 days.")
		return nil
	}

	fmt.Printf("%-12s %-10s %6s %9s %8s %8s\n", "DAY", "STATUS", "FILES", "RECORDS", "VALID", "INVALID")
	for _, r := range rows {
		fmt.Printf("%-12s %-10s %6d %9d %8d %8d\n",
			r.Day.Format("2006-01-02"), r.Status, r.Files, r.Records, r.Valid, r.Invalid)
	}
	return nil
}
