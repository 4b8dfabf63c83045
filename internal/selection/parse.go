package selection

import (
	"strconv"
	"strings"
)

// ParseNumbers splits raw on runs of spaces and commas and keeps every token
// that parses completely as a base-10 integer, in order of appearance.
// Tokens that do not parse are dropped. The result is never nil.
func ParseNumbers(raw string) []int {
	tokens := strings.FieldsFunc(raw, isSeparator)
	out := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func isSeparator(r rune) bool {
	return r == ' ' || r == ','
}
