package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/firegate/firegate/internal/capture"
	"github.com/firegate/firegate/internal/logging"
	"github.com/firegate/firegate/internal/monitoring"
	"github.com/firegate/firegate/internal/pipeline"
	"github.com/firegate/firegate/internal/ring"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Input       string
	Output      string
	Workers     int
	Capacity    int
	RateLimit   int
	MetricsAddr string
	StatsJSON   string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stream a capture through the pipeline",
		Long: `Read frames from a capture file (plain or gzip), classify them across
the worker pool, and append one record per frame to the output file in
arrival order.

Example:
  firegate run -i traffic.cap -o verdicts.out --workers 8
  firegate gen -o - -n 100 | firegate run -i - -o -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "capture file, or - for stdin (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "record file, or - for stdout (required)")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "consumer pool size")
	cmd.Flags().IntVar(&opts.Capacity, "capacity", 0, "ring buffer capacity in bytes")
	cmd.Flags().IntVar(&opts.RateLimit, "rate", 0, "max frames per second fed into the ring")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "listen address for Prometheus /metrics")
	cmd.Flags().StringVar(&opts.StatsJSON, "stats-json", "", "write a JSON run summary to this file")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runPipeline(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Pipeline.Workers = opts.Workers
	}
	if cmd.Flags().Changed("capacity") {
		cfg.Pipeline.Capacity = opts.Capacity
	}
	if cmd.Flags().Changed("rate") {
		cfg.Pipeline.RateLimit = opts.RateLimit
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := opts.newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.With(zap.String("run_id", uuid.NewString()[:8]))

	in, err := openInput(opts.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	src, err := capture.NewReader(in)
	if err != nil {
		return err
	}
	defer src.Close()

	// The sink must be open before any worker starts; a failure here is
	// fatal to the whole run.
	sink, err := openOutput(opts.Output)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer sink.Close()

	buf, err := ring.New(cfg.Pipeline.Capacity)
	if err != nil {
		return err
	}

	metrics := monitoring.NewMetrics()
	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, metrics, log)
		defer stop()
	}

	pool, err := pipeline.New(pipeline.Config{
		Workers: cfg.Pipeline.Workers,
		Ring:    buf,
		Sink:    sink,
		Logger:  log,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	poolErr := make(chan error, 1)
	go func() {
		poolErr <- pool.Run()
	}()

	feedOpts := capture.FeedOptions{Metrics: metrics}
	if cfg.Pipeline.RateLimit > 0 {
		feedOpts.Limiter = rate.NewLimiter(rate.Limit(cfg.Pipeline.RateLimit), 1)
	}

	fed, feedErr := capture.Feed(ctx, src, buf, feedOpts)
	if errors.Is(feedErr, context.Canceled) {
		log.Warn("feed interrupted, draining buffered frames", zap.Int("fed", fed))
		feedErr = nil
	}

	// No more input: close the ring so workers drain it and exit.
	buf.Close()
	if err := <-poolErr; err != nil {
		return fmt.Errorf("sink write: %w", err)
	}
	if feedErr != nil {
		return fmt.Errorf("feed input: %w", feedErr)
	}

	snap := metrics.Snapshot()
	log.Info("run complete",
		zap.Int("fed", fed),
		zap.Int64("passed", snap.Passed),
		zap.Int64("dropped", snap.Dropped),
		zap.Int64("failed", snap.Failed),
		zap.Float64("elapsed_s", snap.ElapsedSeconds))

	if opts.StatsJSON != "" {
		return writeStats(opts.StatsJSON, metrics)
	}
	return nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// serveMetrics starts the Prometheus listener and returns a stop func.
func serveMetrics(addr string, metrics *monitoring.Metrics, log *logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics listener failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func writeStats(path string, metrics *monitoring.Metrics) error {
	data, err := metrics.SnapshotJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
