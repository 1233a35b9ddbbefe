package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shaid-7908/display-doctor-v2/cmd/doctorctl/cli"
)

const usage = `usage: doctorctl <command>

commands:
  jobs trigger <type> [arg]   enqueue a job (sla:scan [hours], invoice:pdf <id>)
  jobs stats                  show default queue counters
  jobs scheduled [n]          list scheduled tasks
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	switch os.Args[1] {
	case "jobs":
		if err := runJobs(context.Background(), redisAddr, os.Getenv("REDIS_PASSWORD"), os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "doctorctl: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runJobs(ctx context.Context, redisAddr, redisPassword string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("jobs: missing subcommand")
	}

	jobsCLI, err := cli.NewJobsCLI(redisAddr, redisPassword)
	if err != nil {
		return err
	}
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return fmt.Errorf("jobs trigger: missing job type")
		}
		arg := ""
		if len(args) > 2 {
			arg = args[2]
		}
		info, err := jobsCLI.Trigger(ctx, args[1], arg)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	case "scheduled":
		size := 10
		if len(args) > 1 {
			if _, err := fmt.Sscanf(args[1], "%d", &size); err != nil {
				return fmt.Errorf("jobs scheduled: %w", err)
			}
		}
		tasks, err := jobsCLI.ListScheduled(ctx, size)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("%s id=%s next=%s\n", t.Type, t.ID, t.NextProcessAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	default:
		return fmt.Errorf("jobs: unknown subcommand %s", args[0])
	}
}
