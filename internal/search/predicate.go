package search

import (
	"fmt"
	"strconv"
	"strings"
)

// PredicateKind enumerates the shapes a filter condition can take.
type PredicateKind int

const (
	// KindEqual emits `column = $n`, case-folding both sides when Fold
	// is set.
	KindEqual PredicateKind = iota
	// KindEqualAny emits `column = ANY($n)` against a string slice.
	KindEqualAny
	// KindOverlap emits `column && $n` against an array column.
	KindOverlap
	// KindGTE emits `column >= $n`.
	KindGTE
	// KindLTE emits `column <= $n`.
	KindLTE
	// KindRaw is the escape hatch for bespoke joins. SQL contains one
	// `$?` marker per value; the emitter rewrites them to numbered
	// placeholders.
	KindRaw
)

// Predicate is one typed filter condition. The emitter, not the caller,
// decides placeholder numbers, so predicates compose in any order.
type Predicate struct {
	Kind   PredicateKind
	Column string
	Fold   bool
	Values []any
	SQL    string
}

// Equal builds a scalar equality predicate.
func Equal(column string, value any) Predicate {
	return Predicate{Kind: KindEqual, Column: column, Values: []any{value}}
}

// EqualFold builds a case-folded scalar equality predicate.
func EqualFold(column string, value string) Predicate {
	return Predicate{Kind: KindEqual, Column: column, Fold: true, Values: []any{strings.ToLower(value)}}
}

// EqualAny builds a `column = ANY($n)` predicate.
func EqualAny(column string, values []string) Predicate {
	return Predicate{Kind: KindEqualAny, Column: column, Values: []any{values}}
}

// Overlap builds an array-overlap predicate against a slug column.
func Overlap(column string, values []string) Predicate {
	return Predicate{Kind: KindOverlap, Column: column, Values: []any{values}}
}

// GTE builds a lower-bound predicate.
func GTE(column string, value any) Predicate {
	return Predicate{Kind: KindGTE, Column: column, Values: []any{value}}
}

// LTE builds an upper-bound predicate.
func LTE(column string, value any) Predicate {
	return Predicate{Kind: KindLTE, Column: column, Values: []any{value}}
}

// Raw builds a bespoke predicate. sql must contain exactly one `$?`
// marker per value.
func Raw(sql string, values ...any) Predicate {
	return Predicate{Kind: KindRaw, SQL: sql, Values: values}
}

// PredicateSet collects WHERE and HAVING conditions for one statement.
type PredicateSet struct {
	where  []Predicate
	having []Predicate
}

// Where appends WHERE predicates.
func (s *PredicateSet) Where(preds ...Predicate) {
	s.where = append(s.where, preds...)
}

// Having appends HAVING predicates (price bounds on aggregated values).
func (s *PredicateSet) Having(preds ...Predicate) {
	s.having = append(s.having, preds...)
}

// HasHaving reports whether any HAVING condition is present.
func (s *PredicateSet) HasHaving() bool { return len(s.having) > 0 }

// Emit renders both clause bodies with placeholder numbering starting at
// startIndex. Returned fragments contain no WHERE/HAVING keywords; the
// caller owns statement assembly. nextIndex is the first unused
// placeholder number.
func (s *PredicateSet) Emit(startIndex int) (whereSQL, havingSQL string, params []any, nextIndex int) {
	idx := startIndex
	whereParts := make([]string, 0, len(s.where))
	for _, p := range s.where {
		frag, vals := p.emit(&idx)
		whereParts = append(whereParts, frag)
		params = append(params, vals...)
	}
	havingParts := make([]string, 0, len(s.having))
	for _, p := range s.having {
		frag, vals := p.emit(&idx)
		havingParts = append(havingParts, frag)
		params = append(params, vals...)
	}
	return strings.Join(whereParts, " AND "), strings.Join(havingParts, " AND "), params, idx
}

func (p Predicate) emit(idx *int) (string, []any) {
	switch p.Kind {
	case KindEqual:
		n := next(idx)
		if p.Fold {
			return fmt.Sprintf("LOWER(%s) = $%d", p.Column, n), p.Values
		}
		return fmt.Sprintf("%s = $%d", p.Column, n), p.Values
	case KindEqualAny:
		n := next(idx)
		return fmt.Sprintf("%s = ANY($%d)", p.Column, n), p.Values
	case KindOverlap:
		n := next(idx)
		return fmt.Sprintf("%s && $%d", p.Column, n), p.Values
	case KindGTE:
		n := next(idx)
		return fmt.Sprintf("%s >= $%d", p.Column, n), p.Values
	case KindLTE:
		n := next(idx)
		return fmt.Sprintf("%s <= $%d", p.Column, n), p.Values
	case KindRaw:
		sql := p.SQL
		for range p.Values {
			sql = strings.Replace(sql, "$?", "$"+strconv.Itoa(next(idx)), 1)
		}
		return sql, p.Values
	}
	return "", nil
}

func next(idx *int) int {
	n := *idx
	*idx++
	return n
}
