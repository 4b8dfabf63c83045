package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"indicadores/internal/catalog"
	"indicadores/internal/history"
	"indicadores/internal/logging"
	"indicadores/internal/selection"
)

var (
	batchIndicators  []string
	batchConcurrency int
)

// batchCmd submits every line of a file
var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Submit one selection per input line",
	Long: `Reads FILE (or stdin when FILE is "-") and submits every non-empty line
as its own set of numbers with the chosen indicators. Results are printed as
one JSON record per line, in input order.

Example:
  indicadores batch jogos.txt -i primos -i quadrantes > resultados.ndjson`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringSliceVarP(&batchIndicators, "indicador", "i", nil, "Indicator id (repeatable)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "Parallel submissions (overrides batch.concurrency)")
}

var errNoInput = errors.New("no input lines")

type batchLine struct {
	Line int    `json:"line"`
	Raw  string `json:"raw"`
	history.Entry
}

func runBatch(cmd *cobra.Command, args []string) error {
	ids := batchIndicators
	if len(ids) == 0 {
		ids = cfg.UI.DefaultIndicators
	}
	if err := catalog.Validate(ids); err != nil {
		return err
	}

	lines, err := readLines(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("%s: %w", args[0], errNoInput)
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	limit := cfg.Batch.Concurrency
	if batchConcurrency > 0 {
		limit = batchConcurrency
	}
	blog := loggers.Get(logging.CategoryBatch)
	blog.Info("batch started", zap.Int("lines", len(lines)), zap.Int("concurrency", limit))

	results := make([]batchLine, len(lines))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(limit)
	for i, ln := range lines {
		g.Go(func() error {
			results[i] = submitLine(ctx, client, ln, ids)
			recorder.IncBatchLine()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	failed := 0
	for _, r := range results {
		if r.Outcome != selection.OutcomeSuccess.String() {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
	}

	blog.Info("batch finished", zap.Int("lines", len(results)), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d submissions failed", failed, len(results))
	}
	return nil
}

type inputLine struct {
	number int
	text   string
}

func submitLine(ctx context.Context, client selection.Submitter, ln inputLine, ids []string) batchLine {
	numbers := selection.ParseNumbers(ln.text)
	start := time.Now()
	payload, err := selection.SubmitSelection(ctx, client, numbers, ids)
	out := selection.Outcome{
		Seq:        uint64(ln.number),
		Kind:       selection.Classify(err),
		Numbers:    numbers,
		Indicators: ids,
		Payload:    payload,
		Err:        err,
	}
	recorder.ObserveSubmission(out.Kind.String(), time.Since(start))
	return batchLine{Line: ln.number, Raw: ln.text, Entry: out.Entry(time.Now())}
}

// maxBatchLine bounds a single input line.
const maxBatchLine = 1 << 20

// readLines returns the non-empty lines of path with their 1-based numbers.
func readLines(stdin io.Reader, path string) ([]inputLine, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []inputLine
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxBatchLine)
	for n := 1; sc.Scan(); n++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		lines = append(lines, inputLine{number: n, text: text})
	}
	return lines, sc.Err()
}
