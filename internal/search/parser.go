package search

import (
	"strings"

	"media-catalog/internal/database"
)

// Parse translates a raw tag query into a predicate. The grammar is
// deliberately forgiving and never fails:
//
//   - Commas separate clauses; all clauses must hold.
//   - Within a clause, "|" separates alternatives; any one must hold.
//   - A leading "-" on a term excludes assets carrying that tag.
//
// So "SFW,CG|Sketch,-Monochrome" means: tagged SFW, and tagged CG or
// Sketch, and not tagged Monochrome. Empty clauses and terms are dropped,
// whitespace around separators is ignored, and an empty or blank query
// yields an empty predicate that matches everything.
func Parse(raw string) database.Predicate {
	var pred database.Predicate

	for _, clause := range strings.Split(raw, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		// Alternatives are split before exclusion markers so each term
		// carries its own "-".
		terms := strings.Split(clause, "|")

		var positive []string
		for _, term := range terms {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}

			if negated, ok := strings.CutPrefix(term, "-"); ok {
				negated = strings.TrimSpace(negated)
				if negated != "" {
					pred.Not = append(pred.Not, negated)
				}
				continue
			}

			positive = append(positive, term)
		}

		switch {
		case len(positive) == 0:
			// Clause held only exclusions or empty terms.
		case len(terms) > 1:
			pred.Or = append(pred.Or, positive...)
		default:
			pred.And = append(pred.And, positive[0])
		}
	}

	return pred
}
