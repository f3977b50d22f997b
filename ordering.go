package seekpager

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Direction defines the sort direction of a single sort key.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

func (d Direction) Valid() bool {
	return d == DirectionASC || d == DirectionDESC
}

func (d Direction) ForOperator() Operator {
	switch d {
	case DirectionASC:
		return OperatorGT
	case DirectionDESC:
		return OperatorLT
	default:
		panic(fmt.Errorf("cannot map direction '%s' to operator", d))
	}
}

// ValueSource tells the traversal how to read a sort key's value off a
// row when building the next-page cursor: either a named column or a
// computed function.
type ValueSource struct {
	column  string
	compute func(row any) any
}

// Column reads the row field mapped to the given column name.
func Column(name string) ValueSource {
	return ValueSource{column: name}
}

// Computed derives the value by calling fn with the row.
func Computed(fn func(row any) any) ValueSource {
	return ValueSource{compute: fn}
}

// SortEntry is one (sort expression, value source) pair of a sort
// specification, in tie-break priority order.
type SortEntry struct {
	Expr   string
	Source ValueSource
}

// By builds a SortEntry. The expression may carry a trailing asc/desc
// token, e.g. By("created_at DESC", Column("created_at")).
func By(expr string, source ValueSource) SortEntry {
	return SortEntry{Expr: expr, Source: source}
}

type sortKey struct {
	// expr is the clean expression with any trailing direction token
	// stripped.
	expr      string
	direction Direction
	source    ValueSource
}

// _directionTokenRe matches a trailing asc/desc token preceded by
// whitespace. A bare expression "desc" is a column named desc, not a
// direction.
var _directionTokenRe = regexp.MustCompile(`(?i)\s+(asc|desc)\s*$`)

func newSortKey(entry SortEntry) sortKey {
	expr := entry.Expr
	direction := DirectionASC

	if m := _directionTokenRe.FindStringSubmatch(expr); m != nil {
		if strings.EqualFold(m[1], string(DirectionDESC)) {
			direction = DirectionDESC
		}
		expr = expr[:len(expr)-len(m[0])]
	}

	return sortKey{
		expr:      expr,
		direction: direction,
		source:    entry.Source,
	}
}

// SortSpec is a non-empty ordered multi-column sort. The first key is the
// primary sort; the tuple of key values is expected to totally order the
// dataset (an unenforced caller precondition keyset pagination relies on).
type SortSpec struct {
	keys []sortKey
}

// NewSortSpec parses the entries into a sort specification. Returns an
// error if no entries are given.
func NewSortSpec(entries ...SortEntry) (*SortSpec, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty sort specification")
	}

	keys := make([]sortKey, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, newSortKey(entry))
	}

	return &SortSpec{keys: keys}, nil
}

// OrderSQL renders the specification as a single string
// "<expr_1> <direction_1>, <expr_2> <direction_2>" suitable for embedding
// into an SQL query.
//
// Usage:
//
//	query := fmt.Sprintf("SELECT * FROM table ORDER BY %s", spec.OrderSQL())
func (s *SortSpec) OrderSQL() string {
	terms := lo.Map(s.keys, func(key sortKey, _ int) string {
		return fmt.Sprintf("%s %s", key.expr, key.direction)
	})

	return strings.Join(terms, ", ")
}

// applyOrdering appends the specification's ORDER BY terms to a gorm query.
func (s *SortSpec) applyOrdering(db *gorm.DB) *gorm.DB {
	return db.Order(s.OrderSQL())
}

// Len returns the number of sort keys.
func (s *SortSpec) Len() int {
	if s == nil {
		return 0
	}

	return len(s.keys)
}

func (s *SortSpec) validate() error {
	if s == nil || len(s.keys) == 0 {
		return fmt.Errorf("empty sort specification")
	}

	for _, key := range s.keys {
		if !key.direction.Valid() {
			return fmt.Errorf("invalid sort direction '%s'", key.direction)
		}
	}

	return nil
}

type (
	ColumnAlias = string

	// ColumnMapping maps external column aliases to fully qualified column
	// names. Use it when bare column names could cause an "ambiguous column
	// name" error.
	// Key is an external alias, value is an internal column name.
	ColumnMapping = map[ColumnAlias]string
)

var _availableColumnNameSymbols = append([]rune("_.'`\""), lo.AlphanumericCharset...)

// ParseSort builds sort entries from a list of strings in the format
// "column asc|desc". Column aliases are resolved via ColumnMapping and the
// cursor value is read from the unqualified column. Returns an error if an
// alias is not found in the mapping.
func ParseSort(stringOrderings []string, columnMapping ColumnMapping) ([]SortEntry, error) {
	ret := make([]SortEntry, 0, len(stringOrderings))
	aliases := lo.Keys(columnMapping)

	for _, stringOrdering := range stringOrderings {
		cutStringOrdering := strings.Split(strings.TrimSpace(stringOrdering), " ")
		if len(cutStringOrdering) != 2 {
			return nil, fmt.Errorf("invalid ordering string format '%s'", stringOrdering)
		}

		columnAlias := cutStringOrdering[0]
		direction := Direction(strings.ToUpper(cutStringOrdering[1]))
		if !direction.Valid() {
			return nil, fmt.Errorf("invalid ordering direction '%s'", cutStringOrdering[1])
		}

		columnName := columnMapping[columnAlias]
		if columnName == "" {
			return nil, fmt.Errorf("invalid column alias. closest: '%s'", closestAlias(columnAlias, aliases))
		}

		// Guard against SQL injection by restricting allowed characters in
		// mapped column names.
		if !lo.Every(_availableColumnNameSymbols, []rune(columnName)) {
			return nil, fmt.Errorf("ordering column name contains forbidden symbols '%s'", columnName)
		}

		ret = append(ret, SortEntry{
			Expr:   fmt.Sprintf("%s %s", columnName, direction),
			Source: Column(unqualifyColumn(columnName)),
		})
	}

	return ret, nil
}

// unqualifyColumn strips a table qualifier: "t.id" -> "id".
func unqualifyColumn(column string) string {
	if idx := strings.LastIndex(column, "."); idx != -1 {
		return column[idx+1:]
	}

	return column
}

func closestAlias(input ColumnAlias, dataSet []ColumnAlias) ColumnAlias {
	minDist := math.MaxInt
	closest := ""

	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}
