package browser

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Candidate is a selectable page, from HTTP discovery or from the protocol.
type Candidate struct {
	ID    string `expr:"id"`
	Type  string `expr:"type"`
	Title string `expr:"title"`
	URL   string `expr:"url"`
}

// Candidates converts discovery targets.
func Candidates(targets []Target) []Candidate {
	out := make([]Candidate, len(targets))
	for i, t := range targets {
		out[i] = Candidate{ID: t.ID, Type: t.Type, Title: t.Title, URL: t.URL}
	}
	return out
}

// Filter keeps the candidates for which the boolean expression holds.
// Expressions see id, type, title and url, for example:
//
//	url contains "example.com" && title != ""
//
// An empty expression keeps every candidate.
func Filter(candidates []Candidate, expression string) ([]Candidate, error) {
	if expression == "" {
		return candidates, nil
	}

	program, err := expr.Compile(expression, expr.Env(Candidate{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid selection expression: %w", err)
	}

	var out []Candidate
	for _, c := range candidates {
		ok, err := expr.Run(program, c)
		if err != nil {
			return nil, fmt.Errorf("evaluate selection for %s: %w", c.ID, err)
		}
		if ok.(bool) {
			out = append(out, c)
		}
	}
	return out, nil
}
