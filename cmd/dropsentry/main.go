// Package main is the entry point for the dropsentry application.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/joe/dropsentry/internal/collector"
	"github.com/joe/dropsentry/internal/config"
	"github.com/joe/dropsentry/internal/events"
	"github.com/joe/dropsentry/internal/logging"
	"github.com/joe/dropsentry/internal/metrics"
	"github.com/joe/dropsentry/internal/report"
	"github.com/joe/dropsentry/internal/reporter"
	"github.com/joe/dropsentry/internal/summary"
	"github.com/joe/dropsentry/internal/walker"
	"github.com/joe/dropsentry/pkg/entry"
	pkgerrors "github.com/joe/dropsentry/pkg/errors"
)

const (
	shutdownTimeout = 5 * time.Second
	readTimeout     = 10 * time.Second
)

func main() {
	settings, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(settings.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logging.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := execute(ctx, settings)
	if err != nil {
		logging.L().Error("command failed", zap.String("command", settings.Command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if suggestions := pkgerrors.FormatSuggestions(err); suggestions != "" {
			fmt.Fprintln(os.Stderr, suggestions)
		}
		os.Exit(1)
	}

	// Native collectors read reports from stdout, so the summary goes to stderr.
	out := os.Stdout
	if settings.Collector == config.NativeCollector && settings.Command != config.CommandCollect {
		out = os.Stderr
	}
	_ = summary.Write(out, run)

	if run.Failed() {
		os.Exit(1)
	}
}

func execute(ctx context.Context, settings *config.Settings) (summary.Run, error) {
	logger := logging.L()
	recorder := metrics.NewRecorder()

	if settings.MetricsAddr != "" {
		server := serveMetrics(settings.MetricsAddr, recorder, logger)
		defer shutdown(server, logger)
	}

	if settings.Command == config.CommandCollect {
		return collect(ctx, settings, recorder, logger)
	}

	return reportSelection(ctx, settings, recorder, logger)
}

func reportSelection(
	ctx context.Context,
	settings *config.Settings,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) (summary.Run, error) {
	started := time.Now()
	run := summary.Run{Command: settings.Command}

	dispatcher := report.NewDispatcher(newChannel(settings),
		report.WithDispatchEmitter(recorder),
		report.WithDispatchLogger(logger),
		report.WithInterval(settings.Interval),
		report.WithQueueSize(settings.QueueSize),
	)

	agent := reporter.New(reporter.Config{
		Expander: walker.NewExpander(
			walker.WithEmitter(recorder),
			walker.WithExcludes(settings.Exclude...),
			walker.WithLimits(walker.Limits{MaxDepth: settings.MaxDepth, MaxRecords: settings.MaxRecords}),
			walker.WithLogger(logger),
		),
		Deliverer: dispatcher,
		Page:      report.Page{URL: settings.URL, Title: settings.Title},
		Logger:    logger,
	})

	opener := entry.NewOpener(entry.Options{PageSize: settings.PageSize, S3: settings.S3})
	defer func() { _ = opener.Close() }()

	err := dispatchCommand(ctx, settings, agent, opener, &run, logger)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if closeErr := dispatcher.Close(closeCtx); closeErr != nil {
		logger.Warn("dispatcher closed before all reports were sent", zap.Error(closeErr))
	}

	run.Dispatch = dispatcher.Stats()
	run.Elapsed = time.Since(started)

	return run, err
}

func dispatchCommand(
	ctx context.Context,
	settings *config.Settings,
	agent *reporter.Agent,
	opener *entry.Opener,
	run *summary.Run,
	logger *zap.Logger,
) error {
	switch settings.Command {
	case config.CommandDrop:
		items, files := openSelection(ctx, opener, settings.Paths, logger)
		result := agent.OnDrop(ctx, reporter.DropEvent{Items: items, Files: files})
		run.Drop = &result
	case config.CommandPaste:
		locations, err := clipboardLocations()
		if err != nil {
			return err
		}
		items, files := openSelection(ctx, opener, locations, logger)
		result := agent.OnPaste(ctx, reporter.PasteEvent{Items: items, Files: files})
		run.Drop = &result
	case config.CommandChange:
		_, files := openSelection(ctx, opener, settings.Paths, logger)
		result := agent.OnChange(ctx, reporter.ChangeEvent{Files: files})
		run.Change = &result
	case config.CommandPrint:
		document, err := os.ReadFile(settings.Document)
		if err != nil {
			return pkgerrors.NewEnricher().Enrich(fmt.Errorf("read document: %w", err), settings.Document)
		}
		result := agent.OnBeforePrint(ctx, reporter.PrintEvent{Document: string(document), Title: settings.Title})
		run.Print = &result
	default:
		return fmt.Errorf("%w: %s", config.ErrNoCommand, settings.Command)
	}

	return nil
}

// openSelection resolves locations into top-level entries and the flat list of
// the top-level files among them.
func openSelection(
	ctx context.Context,
	opener *entry.Opener,
	locations []string,
	logger *zap.Logger,
) ([]entry.Entry, []entry.FileObject) {
	items, files, err := opener.OpenSelection(ctx, locations)
	if err != nil {
		logger.Warn("selection partially unavailable", zap.Error(err))
	}

	return items, files
}

// clipboardLocations reads one location per clipboard line.
func clipboardLocations() ([]string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read clipboard: %w", err)
	}

	return entry.SplitLocations(text), nil
}

func newChannel(settings *config.Settings) report.Channel {
	if settings.Collector == config.NativeCollector {
		return report.NewNativeChannel(os.Stdout)
	}

	return report.NewHTTPChannel(settings.Collector, &http.Client{Timeout: report.DefaultSendTimeout})
}

func collect(
	ctx context.Context,
	settings *config.Settings,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) (summary.Run, error) {
	started := time.Now()

	store, err := collector.Open(settings.Database)
	if err != nil {
		return summary.Run{}, pkgerrors.NewEnricher().Enrich(err, settings.Database)
	}
	defer func() { _ = store.Close() }()

	counter := &storedCounter{}
	c := collector.New(store, logger, events.Multi(recorder, counter))

	if settings.Listen == "" {
		if _, err := c.ServeNative(ctx, os.Stdin); err != nil {
			return summary.Run{}, err
		}
	} else if err := serveHTTP(ctx, settings.Listen, c.Handler(), logger); err != nil {
		return summary.Run{}, err
	}

	return summary.Run{
		Command: settings.Command,
		Elapsed: time.Since(started),
		Stored:  int(counter.n.Load()),
	}, nil
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	server := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: readTimeout}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("collector listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("collector server: %w", err)
	case <-ctx.Done():
		shutdown(server, logger)
		return nil
	}
}

func serveMetrics(addr string, recorder *metrics.Recorder, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readTimeout}

	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return server
}

func shutdown(server *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown", zap.String("addr", server.Addr), zap.Error(err))
	}
}

// storedCounter counts reports the collector persisted.
type storedCounter struct {
	n atomic.Int64
}

func (s *storedCounter) Emit(event events.Event) {
	if _, ok := event.(events.ReportStored); ok {
		s.n.Add(1)
	}
}
