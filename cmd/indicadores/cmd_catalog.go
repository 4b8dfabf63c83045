package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"indicadores/cmd/indicadores/ui"
	"indicadores/internal/catalog"
)

var catalogJSON bool

// catalogCmd lists the available indicators
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the available indicators",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "Print the catalog as JSON")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if catalogJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog.All())
	}

	styles := ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))
	idCol := lipgloss.NewStyle().Width(longestID() + 2)

	var sb strings.Builder
	for _, ind := range catalog.All() {
		sb.WriteString(idCol.Render(styles.Title.Render(ind.ID)))
		sb.WriteString(styles.Body.Render(ind.Label))
		sb.WriteString("\n")
	}
	_, err := fmt.Fprint(w, sb.String())
	return err
}

func longestID() int {
	n := 0
	for _, id := range catalog.IDs() {
		n = max(n, len(id))
	}
	return n
}
