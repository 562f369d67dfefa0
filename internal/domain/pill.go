package domain

import (
	"fmt"
	"strings"
)

// Pill weight and request limits.
const (
	DefaultWeight = 1.0
	MinWeight     = 0.1
	MaxWeight     = 2.0
	MaxPills      = 20

	MinResultsPerPill     = 1
	MaxResultsPerPill     = 10
	DefaultResultsPerPill = 3
)

// Pill is one weighted query concept. Identity is the pill's position in the
// request, never its text: two pills may share identical text.
type Pill struct {
	Text   string
	Weight float64
}

// NewPill validates pill text and resolves the optional weight.
// A nil weight means DefaultWeight.
func NewPill(text string, weight *float64) (Pill, error) {
	if strings.TrimSpace(text) == "" {
		return Pill{}, fmt.Errorf("%w: pill text is required", ErrValidation)
	}
	w := DefaultWeight
	if weight != nil {
		w = *weight
	}
	if w < MinWeight || w > MaxWeight {
		return Pill{}, fmt.Errorf("%w: weight must be between %g and %g, got %g",
			ErrValidation, MinWeight, MaxWeight, w)
	}
	return Pill{Text: text, Weight: w}, nil
}

// ValidatePills checks request-level pill constraints.
func ValidatePills(pills []Pill) error {
	if len(pills) == 0 {
		return fmt.Errorf("%w: at least one pill is required", ErrValidation)
	}
	if len(pills) > MaxPills {
		return fmt.Errorf("%w: maximum %d pills allowed, got %d", ErrValidation, MaxPills, len(pills))
	}
	for i, p := range pills {
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("%w: pill %d has no text", ErrValidation, i)
		}
		if p.Weight < MinWeight || p.Weight > MaxWeight {
			return fmt.Errorf("%w: pill %d weight %g outside [%g, %g]",
				ErrValidation, i, p.Weight, MinWeight, MaxWeight)
		}
	}
	return nil
}

// ValidateResultsPerPill checks the per-pill result count bound.
func ValidateResultsPerPill(n int) error {
	if n < MinResultsPerPill || n > MaxResultsPerPill {
		return fmt.Errorf("%w: results per pill must be between %d and %d, got %d",
			ErrValidation, MinResultsPerPill, MaxResultsPerPill, n)
	}
	return nil
}

// Variant is one lowercase, trimmed phrasing of a pill. PillIndex ties it back
// to the pill it expands.
type Variant struct {
	Text      string
	PillIndex int
}

// ExpandVariants builds the deduplicated variant set for one pill: the pill
// text itself first, then each synonym, all lowercased and trimmed. Duplicates
// keep their first occurrence order.
func ExpandVariants(pillIndex int, pillText string, synonyms []string) []Variant {
	seen := make(map[string]struct{}, 1+len(synonyms))
	variants := make([]Variant, 0, 1+len(synonyms))
	for _, raw := range append([]string{pillText}, synonyms...) {
		v := strings.ToLower(strings.TrimSpace(raw))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		variants = append(variants, Variant{Text: v, PillIndex: pillIndex})
	}
	return variants
}
