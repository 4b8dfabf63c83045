package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"indicadores/internal/catalog"
	"indicadores/internal/logging"
	"indicadores/internal/selection"
	"indicadores/internal/watch"
)

var (
	watchIndicators []string
	watchDebounce   time.Duration
)

// watchCmd resubmits a file whenever it changes
var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Resubmit the numbers in FILE every time it is saved",
	Long: `Submits the content of FILE once, then again after every edit settles.
A save that arrives while a request is still running cancels it; only the
newest result is printed. Stop with Ctrl+C.

Example:
  indicadores watch jogo.txt -i primos -i sequenciais --json`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVarP(&watchIndicators, "indicador", "i", nil, "Indicator id (repeatable)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before resubmitting, e.g. 300ms (overrides watch.debounce)")
	watchCmd.Flags().BoolVar(&checkJSON, "json", false, "Print each outcome as a JSON record")
	watchCmd.Flags().BoolVar(&checkRender, "render", false, "Render each result as a markdown table")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ids := watchIndicators
	if len(ids) == 0 {
		ids = cfg.UI.DefaultIndicators
	}
	if err := catalog.Validate(ids); err != nil {
		return err
	}
	if cmd.Flags().Changed("debounce") || watchDebounce != 0 {
		if watchDebounce <= 0 {
			return fmt.Errorf("invalid --debounce %s: must be positive", watchDebounce)
		}
		cfg.Watch.Debounce = watchDebounce.String()
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	adapter := newAdapter(client, nil)
	if err := adapter.SetSelection(ids); err != nil {
		return err
	}

	wlog := loggers.Get(logging.CategoryWatch)
	var (
		wg    sync.WaitGroup
		outMu sync.Mutex
	)
	onChange := func(ctx context.Context, content string) {
		adapter.SetRawText(content)
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := adapter.Submit(ctx)
			if out.Kind == selection.OutcomeSuperseded {
				return
			}
			outMu.Lock()
			defer outMu.Unlock()
			if err := writeOutcome(cmd.OutOrStdout(), out); err != nil {
				wlog.Warn("failed to write outcome", zap.Error(err))
			}
			if !out.OK() {
				cmd.PrintErrf("%s: %v\n", out.Kind, out.Err)
			}
		}()
	}

	w, err := watch.New(args[0], cfg.GetDebounce(), onChange, wlog)
	if err != nil {
		return err
	}
	err = w.Run(cmd.Context())

	adapter.Cancel()
	wg.Wait()

	stats := w.GetStats()
	wlog.Info("watch finished",
		zap.Int("events", stats.Events),
		zap.Int("submissions", stats.Triggers),
		zap.Int("errors", stats.Errors),
		zap.String("last_event", stats.LastEventType))
	return err
}
