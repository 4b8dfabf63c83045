package ui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"indicadores/internal/backend"
	"indicadores/internal/catalog"
)

// NewRenderer builds a glamour renderer matching theme. A nil renderer is
// returned when glamour cannot initialize; Render then falls back to plain
// text.
func NewRenderer(theme Theme, width int) *glamour.TermRenderer {
	if width < 20 {
		width = 80
	}
	style := glamour.WithStylePath("light")
	if theme.IsDark {
		style = glamour.WithStylePath("dark")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

// Render renders markdown with panic recovery.
func Render(r *glamour.TermRenderer, content string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			result = content
		}
	}()

	if r != nil && content != "" {
		if rendered, err := r.Render(content); err == nil {
			return rendered
		}
	}
	return content
}

// PayloadMarkdown describes a backend result as markdown. Objects become a
// table with one row per key, labelled from the catalog when the key is a
// known indicator; anything else is shown as a JSON block.
func PayloadMarkdown(p backend.Payload) string {
	if p.Empty() {
		return "_sem resultado_"
	}

	fields, err := p.Map()
	if err != nil || len(fields) == 0 {
		return "```json\n" + p.Indent() + "\n```\n"
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("| Indicador | Resultado |\n|---|---|\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "| %s | %s |\n", cell(catalog.Label(k)), cell(compact(fields[k])))
	}
	return sb.String()
}

func compact(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
