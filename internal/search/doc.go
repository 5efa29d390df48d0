// Package search turns raw tag queries into predicates and executes them
// against the catalog. The query grammar never fails: commas join required
// clauses, "|" joins alternatives within a clause, and a leading "-"
// excludes a tag. Results are ordered by natural sort on artist then name,
// so "page2" sorts before "page10".
package search
