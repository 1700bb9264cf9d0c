// Command dirq manages the shared task directory from the command
// line: submit tasks, list pending work, fetch results and clean up
// old files.
//
// Usage:
//
//	dirq [flags] submit <command> [targetHost]
//	dirq [flags] list [forHost]
//	dirq [flags] result <taskId> [-wait] [-timeout <seconds>]
//	dirq [flags] status <taskId>
//	dirq [flags] cleanup [-max-age-days <days>]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dirqueue/dirqueue/config"
	"github.com/dirqueue/dirqueue/queue"
	"github.com/dirqueue/dirqueue/results"
	"github.com/dirqueue/dirqueue/store"
	"github.com/dirqueue/dirqueue/tasks"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file")
		root       = flag.String("root", "", "queue directory (overrides config)")
		host       = flag.String("host", "", "host identity (overrides config)")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
	}
	if *root != "" {
		cfg.Root = *root
	}
	if *host != "" {
		cfg.Host = *host
	}

	st, err := store.NewFileStore(cfg.Root)
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	q := queue.New(st,
		queue.WithHost(cfg.Host),
		queue.WithLockWait(cfg.LockWait()),
	)

	switch args[0] {
	case "submit":
		err = cmdSubmit(q, os.Stdout, args[1:])
	case "list":
		err = cmdList(q, os.Stdout, args[1:])
	case "result":
		err = cmdResult(q, os.Stdout, args[1:])
	case "status":
		err = cmdStatus(q, os.Stdout, args[1:])
	case "cleanup":
		err = cmdCleanup(q, os.Stdout, cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: dirq [flags] <command>

Commands:
  submit <command> [targetHost]   queue a task, optionally for one host
  list [forHost]                  show pending tasks
  result <taskId>                 fetch a task's result
  status <taskId>                 show a task's status
  cleanup                         delete old task and result files

Flags:
`)
	flag.PrintDefaults()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "dirq:", err)
	os.Exit(1)
}

func cmdSubmit(q *queue.Queue, out io.Writer, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: submit <command> [targetHost]")
	}
	targetHost := ""
	if len(args) == 2 {
		targetHost = args[1]
	}

	id, err := q.Submit(args[0], targetHost, nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, id)
	return nil
}

func cmdList(q *queue.Queue, out io.Writer, args []string) error {
	if len(args) > 1 {
		return errors.New("usage: list [forHost]")
	}
	hostFilter := ""
	if len(args) == 1 {
		hostFilter = args[0]
	}

	pending, err := q.PendingFor(hostFilter)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d pending task(s)\n", len(pending))
	for _, task := range pending {
		target := task.TargetHost
		if target == "" {
			target = "any"
		}
		fmt.Fprintf(out, "  %s  [%s]  %s\n", task.ID, target, truncate(task.Command, 50))
	}
	return nil
}

// cmdResult prints the stored result record as JSON. A missing result
// is an answer, not a failure: it prints "No result found" and exits 0.
func cmdResult(q *queue.Queue, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("result", flag.ExitOnError)
	wait := fs.Bool("wait", false, "poll until the result appears")
	timeout := fs.Int("timeout", 60, "wait timeout in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: result <taskId> [-wait] [-timeout <seconds>]")
	}
	taskID := fs.Arg(0)

	result, err := q.GetResult(context.Background(), taskID, *wait,
		time.Duration(*timeout)*time.Second)
	if errors.Is(err, results.ErrNotFound) {
		fmt.Fprintf(out, "No result found for task %s\n", taskID)
		return nil
	}
	if err != nil {
		return err
	}

	data, err := result.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", data)
	return nil
}

func cmdStatus(q *queue.Queue, out io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: status <taskId>")
	}

	status, err := q.Status(args[0])
	if errors.Is(err, tasks.ErrNotFound) {
		return fmt.Errorf("no task %s", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, status)
	return nil
}

func cmdCleanup(q *queue.Queue, out io.Writer, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	maxAgeDays := fs.Int("max-age-days", cfg.CleanupMaxAgeDays, "delete files older than this")
	if err := fs.Parse(args); err != nil {
		return err
	}

	removed, err := q.Cleanup(time.Duration(*maxAgeDays) * 24 * time.Hour)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %d file(s)\n", removed)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
