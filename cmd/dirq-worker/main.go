// Command dirq-worker polls the shared task directory and executes
// claimed tasks. It runs until interrupted; SIGINT and SIGTERM stop
// the loop after the current task finishes.
//
// Usage:
//
//	dirq-worker [-root <dir>] [-host <name>] [-interval <seconds>]
//	            [-executor cli|anthropic|openai] [-once]
//
// With -once the worker performs a single poll pass and exits with
// status 1 if no task was processed, which makes it usable from cron
// and shell conditionals.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dirqueue/dirqueue/bus"
	"github.com/dirqueue/dirqueue/config"
	"github.com/dirqueue/dirqueue/executor"
	"github.com/dirqueue/dirqueue/logging"
	"github.com/dirqueue/dirqueue/queue"
	"github.com/dirqueue/dirqueue/store"
	"github.com/dirqueue/dirqueue/worker"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file")
		root       = flag.String("root", "", "queue directory (overrides config)")
		host       = flag.String("host", "", "host identity (overrides config)")
		interval   = flag.Int("interval", 0, "poll interval in seconds (overrides config)")
		execKind   = flag.String("executor", "", "executor kind: cli, anthropic or openai")
		once       = flag.Bool("once", false, "process at most one task, then exit")
	)
	flag.Parse()

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
	if *interval > 0 {
		cfg.PollIntervalSeconds = *interval
	}
	if *execKind != "" {
		cfg.Executor.Kind = *execKind
	}

	log := logging.New()

	st, err := store.NewFileStore(cfg.Root)
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	queueOpts := []queue.Option{
		queue.WithHost(cfg.Host),
		queue.WithLockWait(cfg.LockWait()),
		queue.WithLogger(log),
	}

	if cfg.NATS.URL != "" {
		nb, err := bus.NewNATSBus(natsConfig(cfg))
		if err != nil {
			fatal(err)
		}
		defer nb.Close()
		queueOpts = append(queueOpts, queue.WithNotifier(nb))
	}

	q := queue.New(st, queueOpts...)

	exec, err := buildExecutor(cfg)
	if err != nil {
		fatal(err)
	}

	w := worker.New(q, exec,
		worker.WithInterval(cfg.PollInterval()),
		worker.WithLogger(log),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		processed, err := w.RunOnce(ctx)
		if err != nil {
			fatal(err)
		}
		if !processed {
			os.Exit(1)
		}
		return
	}

	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "dirq-worker:", err)
	os.Exit(1)
}

func buildExecutor(cfg config.Config) (executor.Executor, error) {
	switch cfg.Executor.Kind {
	case config.ExecutorCLI, "":
		opts := []executor.CLIOption{
			executor.WithTimeout(cfg.ExecutorTimeout()),
		}
		if cfg.Executor.Binary != "" {
			opts = append(opts, executor.WithBinary(cfg.Executor.Binary))
		}
		return executor.NewCLIExecutor(opts...), nil

	case config.ExecutorAnthropic:
		return executor.NewAnthropicExecutor(executor.AnthropicConfig{
			APIKey:    apiKey(cfg, "ANTHROPIC_API_KEY"),
			Model:     cfg.Executor.Model,
			MaxTokens: cfg.Executor.MaxTokens,
		})

	case config.ExecutorOpenAI:
		return executor.NewOpenAIExecutor(executor.OpenAIConfig{
			APIKey:    apiKey(cfg, "OPENAI_API_KEY"),
			Model:     cfg.Executor.Model,
			MaxTokens: cfg.Executor.MaxTokens,
		})

	default:
		return nil, fmt.Errorf("unknown executor kind %q", cfg.Executor.Kind)
	}
}

func apiKey(cfg config.Config, envVar string) string {
	if cfg.Executor.APIKey != "" {
		return cfg.Executor.APIKey
	}
	return os.Getenv(envVar)
}

func natsConfig(cfg config.Config) bus.NATSConfig {
	nc := bus.DefaultNATSConfig()
	nc.URL = cfg.NATS.URL
	nc.Name = cfg.Host
	nc.Token = cfg.NATS.Token
	nc.User = cfg.NATS.User
	nc.Password = cfg.NATS.Password
	nc.ConnectTimeout = 5 * time.Second
	return nc
}
