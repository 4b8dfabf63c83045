// Package catalog holds the closed list of indicators the backend knows how
// to evaluate. The list is compiled in and never fetched.
package catalog

import (
	"fmt"
	"strings"
)

// Indicator is one selectable entry: the wire identifier and its display label.
type Indicator struct {
	ID    string `json:"valor" yaml:"valor"`
	Label string `json:"label" yaml:"label"`
}

// Identifiers sent in the "indicadores" request field.
const (
	ParesImpares        = "paresimpares"
	Primos              = "primos"
	Fibonacci           = "fibonacci"
	Sequenciais         = "sequenciais"
	Iniciais            = "iniciais"
	Finais              = "finais"
	Multiplos3          = "multiplos3"
	RepetidasAnteriores = "repetidas_anteriores"
	Repetidas21         = "repetidas_21"
	Repetidas39         = "repetidas_39"
	Quadrantes          = "quadrantes"
)

var indicators = []Indicator{
	{ID: ParesImpares, Label: "Par/Ímpar"},
	{ID: Primos, Label: "Primos"},
	{ID: Fibonacci, Label: "Fibonacci"},
	{ID: Sequenciais, Label: "Sequenciais (2 e 3 seguidos)"},
	{ID: Iniciais, Label: "Mesmo início"},
	{ID: Finais, Label: "Mesmo final"},
	{ID: Multiplos3, Label: "Múltiplos de 3"},
	{ID: RepetidasAnteriores, Label: "Repetidas do sorteio anterior"},
	{ID: Repetidas21, Label: "Repetidas últimos 21 sorteios"},
	{ID: Repetidas39, Label: "Repetidas últimos 39 sorteios"},
	{ID: Quadrantes, Label: "Quadrantes"},
}

var byID = func() map[string]Indicator {
	m := make(map[string]Indicator, len(indicators))
	for _, ind := range indicators {
		m[ind.ID] = ind
	}
	return m
}()

// UnknownIndicatorError reports identifiers outside the catalog.
type UnknownIndicatorError struct {
	IDs []string
}

func (e *UnknownIndicatorError) Error() string {
	return fmt.Sprintf("unknown indicator(s): %s", strings.Join(e.IDs, ", "))
}

// All returns the catalog in display order. The slice is a copy.
func All() []Indicator {
	out := make([]Indicator, len(indicators))
	copy(out, indicators)
	return out
}

// IDs returns every identifier in display order.
func IDs() []string {
	out := make([]string, len(indicators))
	for i, ind := range indicators {
		out[i] = ind.ID
	}
	return out
}

// Len is the number of catalog entries.
func Len() int { return len(indicators) }

// Lookup finds an indicator by identifier.
func Lookup(id string) (Indicator, bool) {
	ind, ok := byID[id]
	return ind, ok
}

// IsKnown reports whether id belongs to the catalog.
func IsKnown(id string) bool {
	_, ok := byID[id]
	return ok
}

// Label returns the display label for id, or id itself when unknown.
func Label(id string) string {
	if ind, ok := byID[id]; ok {
		return ind.Label
	}
	return id
}

// Validate returns an *UnknownIndicatorError listing every identifier in ids
// that is not in the catalog, or nil.
func Validate(ids []string) error {
	var unknown []string
	for _, id := range ids {
		if !IsKnown(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return &UnknownIndicatorError{IDs: unknown}
	}
	return nil
}
