package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"indicadores/cmd/indicadores/ui"
	"indicadores/internal/catalog"
	"indicadores/internal/selection"
)

var (
	checkDezenas    string
	checkIndicators []string
	checkJSON       bool
	checkRender     bool
)

// checkCmd submits one selection and prints the result
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Submit one selection to the backend",
	Long: `Parses the numbers, submits them with the chosen indicators and prints
the backend result.

Example:
  indicadores check --dezenas "4, 8 15 16,23 42" -i primos -i fibonacci
  indicadores check --dezenas "1 2 3" -i paresimpares --json`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkDezenas, "dezenas", "d", "", "Numbers separated by spaces and/or commas")
	checkCmd.Flags().StringSliceVarP(&checkIndicators, "indicador", "i", nil, "Indicator id (repeatable; see 'indicadores catalog')")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the outcome as a JSON record")
	checkCmd.Flags().BoolVar(&checkRender, "render", false, "Render the result as a markdown table")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ids := checkIndicators
	if len(ids) == 0 {
		ids = cfg.UI.DefaultIndicators
	}
	if err := catalog.Validate(ids); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	adapter := newAdapter(client, nil)
	adapter.SetRawText(checkDezenas)
	if err := adapter.SetSelection(ids); err != nil {
		return err
	}

	out := adapter.Submit(cmd.Context())
	logger.Debug("check finished", zap.String("outcome", out.Kind.String()), zap.Ints("dezenas", out.Numbers))

	if err := writeOutcome(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if !out.OK() {
		return fmt.Errorf("%s: %w", out.Kind, out.Err)
	}
	return nil
}

func writeOutcome(w io.Writer, out selection.Outcome) error {
	switch {
	case checkJSON:
		return json.NewEncoder(w).Encode(out.Entry(time.Now()))
	case !out.OK():
		return nil
	case checkRender:
		r := ui.NewRenderer(ui.ThemeFor(cfg.UI.Theme), 80)
		_, err := fmt.Fprint(w, ui.Render(r, ui.PayloadMarkdown(out.Payload)))
		return err
	default:
		_, err := fmt.Fprintln(w, out.Payload.Indent())
		return err
	}
}
