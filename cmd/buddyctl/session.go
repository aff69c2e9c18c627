package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/buddykit/internal/command"
	"github.com/joshuapare/buddykit/internal/config"
	"github.com/joshuapare/buddykit/internal/logger"
	"github.com/joshuapare/buddykit/memory"
	"github.com/joshuapare/buddykit/memory/metrics"
)

// loadSettings reads the config file, if any, and applies flag overrides.
func loadSettings() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		printVerbose("Loaded config: %s\n", configPath)
	}

	if arenaSize != "" {
		n, err := config.ParseSize(arenaSize)
		if err != nil {
			return nil, err
		}
		cfg.Arena.Size = n
	}
	if checkInvariants {
		cfg.Arena.CheckInvariants = true
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if verbose && logLevel == "" {
		cfg.Log.Level = "debug"
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if inputEncoding != "" {
		cfg.Input.Encoding = inputEncoding
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// session is one block table plus its interpreter and metrics registry.
type session struct {
	cfg      *config.Config
	manager  *memory.Manager
	interp   *command.Interpreter
	registry *prometheus.Registry
	log      *slog.Logger
	logClose io.Closer
}

func newSession(cfg *config.Config, out io.Writer) (*session, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	// Logs only go to stderr (or a file) when verbose or a level was asked for.
	enabled := verbose || logLevel != "" || cfg.Log.Dir != ""
	logClose, err := logger.Init(logger.Options{
		Enabled: enabled,
		Level:   level,
		Format:  logger.Format(cfg.Log.Format),
		LogDir:  cfg.Log.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	m, err := memory.New(&memory.Options{
		ArenaSize:       uint32(cfg.Arena.Size),
		Logger:          logger.L,
		Observer:        metrics.NewPrometheusObserver(reg),
		CheckInvariants: cfg.Arena.CheckInvariants,
	})
	if err != nil {
		logClose.Close()
		return nil, fmt.Errorf("failed to create block table: %w", err)
	}

	in := command.NewInterpreter(m, out, logger.L)
	in.Encoding = cfg.Input.Encoding

	printVerbose("Arena: %s (invariant checks: %t)\n",
		humanize.IBytes(uint64(cfg.Arena.Size)), cfg.Arena.CheckInvariants)
	return &session{cfg: cfg, manager: m, interp: in, registry: reg, log: logger.L, logClose: logClose}, nil
}

func (s *session) Close() error {
	err := s.manager.Close()
	if cerr := s.logClose.Close(); err == nil {
		err = cerr
	}
	return err
}

// run executes r and, when a metrics address is configured, serves /metrics
// until the commands finish. A server failure cancels the run.
func (s *session) run(ctx context.Context, r io.Reader) (command.Summary, error) {
	var sum command.Summary
	if s.cfg.Metrics.Addr == "" {
		return s.interp.Run(ctx, r)
	}

	ln, err := net.Listen("tcp", s.cfg.Metrics.Addr)
	if err != nil {
		return sum, fmt.Errorf("failed to listen on %s: %w", s.cfg.Metrics.Addr, err)
	}
	printVerbose("Serving metrics on http://%s/metrics\n", ln.Addr())

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(gctx)
	defer stopServe()

	g.Go(func() error {
		return serveMetrics(serveCtx, ln, s.registry, s.cfg.Metrics.ShutdownTimeout.Duration)
	})
	g.Go(func() error {
		defer stopServe()
		var err error
		sum, err = s.interp.Run(gctx, r)
		return err
	})
	err = g.Wait()
	return sum, err
}

// serveMetrics serves the registry on ln until ctx is done, then shuts the
// server down within timeout.
func serveMetrics(ctx context.Context, ln net.Listener, reg *prometheus.Registry, timeout time.Duration) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// report prints the run summary and, with --json, the final arena statistics.
func (s *session) report(sum command.Summary) error {
	st := s.manager.Stats()
	if jsonOut {
		return printJSON(struct {
			Summary command.Summary `json:"summary"`
			Arena   memory.Stats    `json:"arena"`
		}{sum, st})
	}

	printInfo("\n%d command(s): %d executed, %d failed, %d rejected\n",
		sum.Total(), sum.Executed, sum.Failed, sum.Rejected)
	printInfo("Arena: %s free of %s in %d block(s), %d allocated\n",
		humanize.IBytes(st.FreeBytes), humanize.IBytes(uint64(st.ArenaSize)),
		st.FreeBlocks, st.AllocatedBlocks)
	if verbose && !quiet {
		st.Alloc.Fprint(os.Stdout)
	}
	return nil
}
