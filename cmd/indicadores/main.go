package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"indicadores/cmd/indicadores/tui"
	"indicadores/internal/backend"
	"indicadores/internal/config"
	"indicadores/internal/history"
	"indicadores/internal/logging"
	"indicadores/internal/metrics"
	"indicadores/internal/selection"
)

var (
	// Global flags
	configPath  string
	backendURL  string
	timeout     time.Duration
	verbose     bool
	metricsAddr string

	// Resolved in PersistentPreRunE
	cfg      *config.Config
	loggers  *logging.Loggers
	logger   *zap.Logger
	registry *prometheus.Registry
	recorder *metrics.PrometheusRecorder

	stopMetrics context.CancelFunc
	metricsDone chan struct{}
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "indicadores",
	Short: "Test lottery number selections against statistical indicators",
	Long: `indicadores sends a set of drawn numbers (dezenas) and a selection of
statistical indicators to the indicator backend and shows what it returns.

Run without arguments to start the interactive form.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd, cmd == cmd.Root())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: .indicadores/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Backend base URL (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup resolves config, logging and metrics for every command.
func setup(cmd *cobra.Command, interactive bool) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
		path = p
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("backend") {
		loaded.Backend.BaseURL = backendURL
	}
	if cmd.Flags().Changed("timeout") {
		loaded.Backend.Timeout = timeout.String()
	}
	if cmd.Flags().Changed("metrics-addr") {
		loaded.Metrics.Addr = metricsAddr
	}
	// config subcommands must work on a broken file
	if cmd.Parent() != configCmd {
		if err := loaded.Validate(); err != nil {
			return err
		}
	}
	cfg = loaded

	loggers, err = logging.New(cfg.Logging, logging.Options{Verbose: verbose, Interactive: interactive})
	if err != nil {
		if cmd.Parent() != configCmd {
			return err
		}
		loggers = logging.NewNop()
	}
	logger = loggers.Get(logging.CategoryBoot)
	logger.Debug("config resolved",
		zap.String("path", path),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.Duration("timeout", cfg.GetTimeout()))

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder = metrics.NewPrometheusRecorder(registry)

	if cfg.Metrics.Addr != "" {
		ctx, cancel := context.WithCancel(cmd.Context())
		stopMetrics = cancel
		metricsDone = make(chan struct{})
		mlog := loggers.Get(logging.CategoryMetrics)
		go func() {
			defer close(metricsDone)
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, registry, mlog); err != nil {
				mlog.Error("metrics server failed", zap.Error(err))
			}
		}()
	}
	return nil
}

func teardown() {
	if stopMetrics != nil {
		stopMetrics()
		<-metricsDone
		stopMetrics = nil
	}
	if loggers != nil {
		_ = loggers.Sync()
	}
}

func newClient() (*backend.Client, error) {
	return backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.GetTimeout()),
		backend.WithLogger(loggers.Get(logging.CategoryAPI)),
	)
}

func newAdapter(client selection.Submitter, hist *history.History) *selection.Adapter {
	return selection.NewAdapter(client,
		selection.WithRecorder(recorder),
		selection.WithHistory(hist),
		selection.WithLogger(loggers.Get(logging.CategoryForm)),
	)
}

// runInteractive launches the terminal form.
func runInteractive(cmd *cobra.Command) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	hist, err := history.New(cfg.UI.HistorySize)
	if err != nil {
		return err
	}
	adapter := newAdapter(client, hist)
	if err := adapter.SetSelection(cfg.UI.DefaultIndicators); err != nil {
		return err
	}

	logger.Info("starting interactive form", zap.String("endpoint", client.URL()))
	return tui.Run(cmd.Context(), tui.Config{
		Adapter: adapter,
		History: hist,
		Theme:   cfg.UI.Theme,
	})
}
