package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"escrow-service/internal/adapter/postgres"
	"escrow-service/internal/infra"
	"escrow-service/migrations"
)

// escrowctl is the operator CLI: apply migrations, inspect projects,
// list parked outbox events, and requeue them after the underlying
// fault is fixed.
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Migrations open their own connection; no pool needed.
	if os.Args[1] == "migrate" {
		if err := runMigrations(); err != nil {
			exitWithError(err)
		}
		return
	}

	pool := connect(ctx)
	defer pool.Close()

	var err error
	switch os.Args[1] {
	case "outbox-failed":
		err = outboxFailed(ctx, pool, os.Args[2:])
	case "outbox-replay":
		err = outboxReplay(ctx, pool, os.Args[2:])
	case "project":
		err = projectShow(ctx, pool, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		exitWithError(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  escrowctl migrate                    apply pending database migrations
  escrowctl outbox-failed [-limit N]   list events that exhausted their retries
  escrowctl outbox-replay -event <id>  requeue a parked event for delivery
  escrowctl project -id <n>            print a project and its milestones`)
}

func runMigrations() error {
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if err := infra.Migrate(dbURL, migrations.FS, logger); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	fmt.Println("migrations up to date")
	return nil
}

func connect(ctx context.Context) *pgxpool.Pool {
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	return pool
}

func outboxFailed(ctx context.Context, pool *pgxpool.Pool, args []string) error {
	fs := flag.NewFlagSet("outbox-failed", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum events to list")
	_ = fs.Parse(args)

	events, err := postgres.NewOutboxStore(pool).FailedEvents(ctx, *limit)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("no failed events")
		return nil
	}
	for _, e := range events {
		fmt.Printf("%s  %-24s  project=%-6d  retries=%d  %s\n",
			e.ID, e.Kind, e.ProjectID, e.RetryCount, e.OccurredAt.Format(time.RFC3339))
	}
	return nil
}

func outboxReplay(ctx context.Context, pool *pgxpool.Pool, args []string) error {
	fs := flag.NewFlagSet("outbox-replay", flag.ExitOnError)
	eventID := fs.String("event", "", "event ID to requeue")
	_ = fs.Parse(args)

	id := strings.TrimSpace(*eventID)
	if id == "" {
		return errors.New("-event is required")
	}
	if err := postgres.NewOutboxStore(pool).ReplayEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to replay event: %w", err)
	}
	fmt.Printf("event %s requeued\n", id)
	return nil
}

func projectShow(ctx context.Context, pool *pgxpool.Pool, args []string) error {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	id := fs.Int64("id", 0, "project ID")
	_ = fs.Parse(args)

	if *id <= 0 {
		return errors.New("-id is required")
	}
	p, err := postgres.NewProjectStore(pool).Get(ctx, *id)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	fmt.Printf("Project %d: %q by %s\n", p.ID, p.Title, p.Creator)
	fmt.Printf("  goal=%d raised=%d escrow=%d completed=%v deadline=%s\n",
		p.GoalAmount, p.FundsRaised, p.EscrowBalance, p.Completed, p.Deadline.Format(time.RFC3339))
	for i, m := range p.Milestones {
		marker := " "
		if i == p.CurrentMilestone && !p.Completed {
			marker = ">"
		}
		fmt.Printf("  %s milestone %d: %q amount=%d approved=%v approvals=%d\n",
			marker, i, m.Description, m.Amount, m.Approved, m.Approvals)
	}
	contributors := 0
	for _, amount := range p.Contributions {
		if amount > 0 {
			contributors++
		}
	}
	fmt.Printf("  contributors=%d\n", contributors)
	return nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
