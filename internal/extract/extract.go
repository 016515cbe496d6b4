// Package extract recognizes structured claim fields in document text.
package extract

import (
	"regexp"

	"github.com/sells-group/claims-idp/internal/model"
)

// Candidate is a recognized field occurrence in a document.
type Candidate struct {
	Field      string
	Value      string
	Confidence float64
}

type pattern struct {
	field      string
	re         *regexp.Regexp
	confidence float64
	// multiValued patterns emit one candidate per distinct value in the
	// text; the rest take only the first match per document.
	multiValued bool
}

var patterns = []pattern{
	{
		field:      model.FieldPolicyNumber,
		re:         regexp.MustCompile(`(?i)(?:policy number|policy)[:\s]*([A-Z0-9-]{6,})`),
		confidence: 0.9,
	},
	{
		field:      model.FieldClaimNumber,
		re:         regexp.MustCompile(`(?i)(?:claim number|claim)[:\s]*([A-Z0-9-]{6,})`),
		confidence: 0.9,
	},
	{
		field:       model.FieldDiagnosisCode,
		re:          regexp.MustCompile(`\b([A-TV-Z][0-9][0-9A-Z](?:\.[0-9A-Z]{1,4})?)\b`),
		confidence:  0.8,
		multiValued: true,
	},
}

// Recognize scans text for every known field pattern. Identifier fields
// yield at most one candidate per document; diagnosis codes yield one
// candidate per distinct value, kept in first-appearance order.
func Recognize(text string) []Candidate {
	var candidates []Candidate
	for _, p := range patterns {
		if !p.multiValued {
			if match := p.re.FindStringSubmatch(text); match != nil {
				candidates = append(candidates, Candidate{
					Field:      p.field,
					Value:      match[1],
					Confidence: p.confidence,
				})
			}
			continue
		}
		seen := make(map[string]bool)
		for _, match := range p.re.FindAllStringSubmatch(text, -1) {
			value := match[1]
			if seen[value] {
				continue
			}
			seen[value] = true
			candidates = append(candidates, Candidate{
				Field:      p.field,
				Value:      value,
				Confidence: p.confidence,
			})
		}
	}
	return candidates
}
