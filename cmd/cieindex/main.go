// Command cieindex is the demonstration binary wiring the indexing
// pipeline end to end: project detection, scanning, coordinated
// extraction/linking into the graph database, an optional filesystem
// watcher for incremental updates, and a query summary printed on exit.
//
// Flags and colored-summary output follow the teacher's own cmd/cie
// index command (cmd/cie/index.go), trimmed to the subset of the
// pipeline this module implements: no remote delegation, no embedding
// providers, no MCP transport.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/coordinator"
	"github.com/kraklabs/codegraph/internal/lock"
	"github.com/kraklabs/codegraph/internal/project"
	"github.com/kraklabs/codegraph/internal/query"
	"github.com/kraklabs/codegraph/internal/store"
	"github.com/kraklabs/codegraph/internal/telemetry"
	"github.com/kraklabs/codegraph/internal/uce"
	"github.com/kraklabs/codegraph/internal/watch"
)

func main() {
	watchMode := flag.Bool("watch", false, "keep running and incrementally re-index on file changes")
	storePath := flag.String("store", "", "sqlite database path (defaults to .codegraph/graph.db under the project root)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cwd, err := os.Getwd()
	if err != nil {
		fatal("cannot determine working directory", err)
	}

	detected, err := project.Detect(cwd)
	if err != nil {
		fatal("project detection failed", err)
	}
	logger.Info("project.detected", "language", detected.PrimaryLanguage, "framework", detected.Framework, "kind", detected.Kind)

	dataDir := filepath.Join(cwd, ".codegraph")
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		fatal("cannot create data directory", err)
	}

	lockHandle, err := lock.Acquire(dataDir)
	if err != nil {
		fatal("another index run holds the lock", err)
	}
	defer func() { _ = lockHandle.Release() }()

	path := *storePath
	if path == "" {
		path = filepath.Join(dataDir, "graph.db")
	}
	st, err := store.Open(store.Config{Path: path})
	if err != nil {
		fatal("cannot open store", err)
	}
	defer func() { _ = st.Close() }()

	guardrails, watchCfg, err := loadConfigFile(cwd, defaultGuardrailsFor(detected), defaultWatchConfig())
	if err != nil {
		fatal("cannot read .codegraph.yaml", err)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	group, ctx := errgroup.WithContext(baseCtx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	group.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("shutdown.signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	var exporter telemetry.Exporter = telemetry.NullExporter{}
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		exporter = telemetry.NewPrometheusExporter(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		group.Go(func() error {
			logger.Info("metrics.http.start", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			return srv.Close()
		})
	}
	tracer := telemetry.NewTracer(exporter)

	co := coordinator.New(st, uce.NewTreeSitterGoParser())
	if err := co.EnsureSchema(ctx); err != nil {
		fatal("schema migration failed", err)
	}

	runOnce := func(paths []string) *coordinator.Result {
		ctx, span := tracer.Start(ctx, "index.run", true)
		defer span.End()

		bar := newProgressBar()
		var lastPhase coordinator.Phase
		result, err := co.Run(ctx, coordinator.Options{
			RootDir:          cwd,
			IncludeGlobs:     detected.IncludeGlobs,
			ExcludeGlobs:     guardrails.ExcludeGlobs,
			MaxFileSizeBytes: guardrails.MaxFileSizeBytes,
			Workers:          runtime.NumCPU(),
			Paths:            paths,
			OnProgress: func(phase coordinator.Phase, current, total int) {
				if phase != lastPhase {
					bar.Reset()
					bar.Describe(string(phase))
					lastPhase = phase
				}
				bar.ChangeMax(total)
				_ = bar.Set(current)
			},
		})
		_ = bar.Finish()
		if err != nil {
			span.SetStatus(telemetry.StatusError)
			fatal("indexing run failed", err)
		}
		span.SetStatus(telemetry.StatusOK)
		span.SetAttribute("files_indexed", result.FilesIndexed)
		return result
	}

	result := runOnce(nil)
	printSummary(result)

	q := query.New(st)
	stats, err := q.OverviewStats(ctx)
	if err == nil {
		printOverview(stats)
	}

	if *watchMode {
		fmt.Println()
		color.Cyan("watching for changes, press ctrl-c to stop")
		w, err := watch.New(cwd, watchCfg, func(events []watch.FileChangeEvent) {
			paths := make([]string, len(events))
			for i, ev := range events {
				paths[i] = ev.Path
			}
			logger.Info("watch.events", "count", len(events))
			runOnce(paths)
		})
		if err != nil {
			fatal("cannot start watcher", err)
		}
		group.Go(func() error { return w.Start(ctx) })
	} else {
		cancel()
	}

	if err := group.Wait(); err != nil && baseCtx.Err() == nil && ctx.Err() == nil {
		fatal("background task failed", err)
	}
}

func defaultGuardrailsFor(detected *project.DetectedProject) config.Guardrails {
	g := config.DefaultGuardrails()
	g.ExcludeGlobs = append(g.ExcludeGlobs, detected.ExcludeGlobs...)
	return g
}

func defaultWatchConfig() config.WatchConfig {
	return config.DefaultWatchConfig()
}

func newProgressBar() *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return progressbar.DefaultSilent(1)
	}
	return progressbar.NewOptions(1,
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func printSummary(r *coordinator.Result) {
	fmt.Println()
	color.New(color.FgGreen, color.Bold).Println("Indexing Complete")
	fmt.Printf("Files Scanned:     %d\n", r.FilesScanned)
	fmt.Printf("Files Indexed:     %d\n", r.FilesIndexed)
	fmt.Printf("Functions Stored:  %d\n", r.FunctionsStored)
	fmt.Printf("Classes Stored:    %d\n", r.ClassesStored)
	fmt.Printf("Calls Resolved:    %d\n", r.CallsResolved)
	fmt.Printf("Ghost Nodes:       %d\n", r.GhostNodes)
	if len(r.FileErrors) > 0 {
		color.Yellow("File Errors: %d", len(r.FileErrors))
		for _, fe := range r.FileErrors {
			fmt.Printf("  %s: %v\n", fe.RelativePath, fe.Err)
		}
	}
}

func printOverview(s query.OverviewStats) {
	fmt.Println()
	color.New(color.Bold).Println("Graph Overview")
	fmt.Printf("Files:      %d\n", s.FileCount)
	fmt.Printf("Functions:  %d\n", s.FunctionCount)
	fmt.Printf("Classes:    %d\n", s.ClassCount)
	fmt.Printf("Interfaces: %d\n", s.InterfaceCount)
	fmt.Printf("Call edges: %d\n", s.CallEdgeCount)
	fmt.Printf("Ghost nodes: %d\n", s.GhostNodeCount)
}

func fatal(msg string, err error) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: ")
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
