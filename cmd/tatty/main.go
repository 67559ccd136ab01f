// Command tatty runs one agent task from the command line.
//
// It wires the full runtime: config, tool registry, decision-service
// client, run history store, and optional OTEL observability. SIGINT
// requests a cooperative interrupt; a second SIGINT kills the process.
//
// Usage:
//
//	tatty [flags] "task description"
//	tatty -i                 interactive mode, one task per prompt
//	tatty -dir /path "task"  run against another directory
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/metric"

	tatty "github.com/nevindra/tatty"
	"github.com/nevindra/tatty/decider/httpjson"
	"github.com/nevindra/tatty/internal/config"
	"github.com/nevindra/tatty/observer"
	"github.com/nevindra/tatty/store/postgres"
	"github.com/nevindra/tatty/store/sqlite"
	"github.com/nevindra/tatty/tools/artifact"
	"github.com/nevindra/tatty/tools/dev"
	"github.com/nevindra/tatty/tools/file"
	"github.com/nevindra/tatty/tools/notebook"
	"github.com/nevindra/tatty/tools/plan"
	"github.com/nevindra/tatty/tools/system"
	"github.com/nevindra/tatty/tools/web"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[tatty] ")

	configPath := flag.String("config", os.Getenv("TATTY_CONFIG"), "path to TOML config")
	workDir := flag.String("dir", "", "working directory for the agent (default: current directory)")
	interactive := flag.Bool("i", false, "interactive mode: keep asking for tasks")
	maxIter := flag.Int("max-iterations", 0, "override the iteration ceiling")
	flag.Parse()

	cfg := config.Load(*configPath)
	if *maxIter > 0 {
		cfg.Agent.MaxIterations = *maxIter
	}

	dir, err := resolveWorkDir(*workDir)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Working directory: %s\n", dir)

	if cfg.Decider.URL == "" {
		log.Fatal("no decision service configured: set decider.url in config or TATTY_DECIDER_URL")
	}

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	runner, inst, cleanup := buildRunner(context.Background(), cfg, dir)
	defer cleanup()

	task := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if task == "" && !*interactive {
		log.Fatal("a task is required unless -i is set")
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		if task == "" {
			fmt.Print("\nEnter a task (or 'exit' to quit): ")
			if !in.Scan() {
				return
			}
			task = strings.TrimSpace(in.Text())
			if task == "" {
				continue
			}
			if task == "exit" || task == "quit" || task == "q" {
				return
			}
		}

		executeTask(sig, runner, inst, dir, task)

		if !*interactive {
			return
		}
		task = ""
	}
}

// executeTask runs one task with SIGINT wired to a cooperative
// interrupt: the run itself gets a background context so in-flight tools
// finish their own interrupt handling instead of being torn down. A
// second SIGINT during the same run exits immediately.
func executeTask(sig <-chan os.Signal, runner *tatty.Runner, inst *observer.Instruments, dir, task string) {
	st := tatty.NewState(dir)

	done := make(chan struct{})
	go func() {
		select {
		case <-sig:
			fmt.Println("\nInterrupt requested, stopping at the next checkpoint...")
			st.RequestInterrupt()
			select {
			case <-sig:
				os.Exit(130)
			case <-done:
			}
		case <-done:
		}
	}()

	fmt.Printf("\nTask: %s\n%s\n", task, strings.Repeat("=", 60))

	start := time.Now()
	res, err := runner.RunState(context.Background(), st, task)
	close(done)

	if inst != nil {
		attrs := metric.WithAttributes(observer.AttrRunOutcome.String(string(res.Outcome)))
		inst.RunExecutions.Add(context.Background(), 1, attrs)
		inst.RunDuration.Record(context.Background(), float64(time.Since(start).Milliseconds()), attrs)
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 60))
	switch {
	case err != nil:
		fmt.Printf("Run failed: %v\n", err)
	case res.Outcome == tatty.OutcomeInterrupted:
		fmt.Printf("Interrupted after %d iteration(s).\n", res.Iterations)
		if res.Output != "" {
			fmt.Printf("Last result:\n%s\n", res.Output)
		}
	default:
		fmt.Printf("Final result (%s, %d iteration(s)):\n%s\n", res.Outcome, res.Iterations, res.Output)
	}
}

// buildRunner assembles the runtime from config. The returned cleanup
// closes the store and flushes telemetry.
func buildRunner(ctx context.Context, cfg config.Config, dir string) (*tatty.Runner, *observer.Instruments, func()) {
	logger := newLogger()

	reg := tatty.NewRegistry()
	reg.SetLogger(logger)
	system.Register(reg)
	file.Register(reg)
	notebook.Register(reg)
	plan.Register(reg)
	dev.Register(reg)
	artifact.Register(reg)
	web.New(web.WithSearchAPIKey(cfg.Search.BraveAPIKey)).Register(reg)

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	store, closeStore := openStore(ctx, cfg, logger)
	if closeStore != nil {
		cleanups = append(cleanups, closeStore)
	}

	var inst *observer.Instruments
	var tracer tatty.Tracer
	var instrumented *tatty.Callbacks
	display := displayCallbacks()

	if cfg.Observer.Enabled {
		if cfg.Observer.Endpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Observer.Endpoint)
		}
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx, cfg.Observer.ServiceName)
		if err != nil {
			log.Printf("observability disabled: %v", err)
		} else {
			tracer = observer.NewTracer()
			instrumented = observer.Instrument(inst, &display)
			cleanups = append(cleanups, func() {
				shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := shutdown(shCtx); err != nil {
					log.Printf("telemetry shutdown: %v", err)
				}
			})
		}
	}

	callbacks := display
	if instrumented != nil {
		callbacks = *instrumented
	}

	opts := []tatty.Option{
		tatty.WithRegistry(reg),
		tatty.WithCallbacks(callbacks),
		tatty.WithLogger(logger),
		tatty.WithWorkingDir(dir),
		tatty.WithMaxIterations(cfg.Agent.MaxIterations),
		tatty.WithSubAgentIterations(cfg.Agent.SubAgentIterations),
		tatty.WithMaxDepth(cfg.Agent.MaxDepth),
	}
	if store != nil {
		opts = append(opts, tatty.WithStore(store))
	}
	if tracer != nil {
		opts = append(opts, tatty.WithTracer(tracer))
	}

	decider := tatty.WithRetry(
		httpjson.New(cfg.Decider.URL,
			httpjson.WithAPIKey(cfg.Decider.APIKey),
			httpjson.WithLogger(logger)),
		tatty.RetryLogger(logger))

	return tatty.NewRunner(decider, opts...), inst, cleanup
}

// openStore opens postgres when a URL is configured, sqlite otherwise.
// Persistence is best-effort: failure to open means running without
// history, not aborting.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (tatty.RunStore, func()) {
	if cfg.Database.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.PostgresURL)
		if err != nil {
			logger.Warn("postgres unavailable, running without history", "error", err)
			return nil, nil
		}
		st := postgres.New(pool)
		if err := st.Init(ctx); err != nil {
			logger.Warn("postgres init failed, running without history", "error", err)
			pool.Close()
			return nil, nil
		}
		return st, pool.Close
	}

	st := sqlite.New(cfg.Database.Path, sqlite.WithLogger(logger))
	if err := st.Init(ctx); err != nil {
		logger.Warn("sqlite init failed, running without history", "error", err)
		st.Close()
		return nil, nil
	}
	return st, func() { st.Close() }
}

func resolveWorkDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory does not exist: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}
