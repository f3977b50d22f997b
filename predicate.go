package seekpager

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// resumePredicate is the boolean condition that holds exactly for rows
// strictly "after" a cursor under the specification's lexicographic order.
// For keys k1..kn with comparison operators o1..on (">" for ASC, "<" for
// DESC) the template is the nested form
//
//	(k1 o1 ? OR (k1 = ? AND (k2 o2 ? OR (k2 = ? AND (... kn on ?)))))
//
// The template is built once per traversal and reused across pages; only
// the bound values change. Every cursor value except the last appears
// twice (strict comparison + equality guard), so binding a cursor of n
// values produces exactly 2n-1 arguments in the order
// v1, v1, v2, v2, ..., v(n-1), v(n-1), vn.
type resumePredicate struct {
	sql  string
	keys []sortKey
}

func newResumePredicate(spec *SortSpec) *resumePredicate {
	keys := spec.keys
	last := len(keys) - 1

	sql := fmt.Sprintf("%s %s ?", keys[last].expr, keys[last].direction.ForOperator())
	for i := last - 1; i >= 0; i-- {
		sql = fmt.Sprintf("%s %s ? OR (%s %s ? AND (%s))",
			keys[i].expr, keys[i].direction.ForOperator(),
			keys[i].expr, operatorEq,
			sql,
		)
	}

	return &resumePredicate{
		sql:  "(" + sql + ")",
		keys: keys,
	}
}

// bind flattens a cursor into the template's placeholder order.
func (p *resumePredicate) bind(cursor *Cursor) []any {
	values := make([]any, 0, 2*len(p.keys)-1)
	for i, value := range cursor.values {
		value = parseAnyValue(value)

		values = append(values, value)
		if i != len(cursor.values)-1 {
			values = append(values, value)
		}
	}

	return values
}

// toGORMExpression renders the bound predicate as a clause.Expression.
//
// IMPORTANT: The method uses the SQL placeholder "?".
func (p *resumePredicate) toGORMExpression(cursor *Cursor) clause.Expression {
	return clause.Expr{
		SQL:  p.sql,
		Vars: p.bind(cursor),
	}
}

// apply adds the bound predicate to a gorm query, ANDed with any existing
// conditions.
func (p *resumePredicate) apply(db *gorm.DB, cursor *Cursor) *gorm.DB {
	return db.Clauses(p.toGORMExpression(cursor))
}

// toSQLClause renders the bound predicate as an SQL condition with "?"
// placeholders and the corresponding values.
//
// Example, for {"id DESC": Column("id")} and a cursor of [10, "abc"] with
// a secondary "name" key:
//
//	("(id < ? OR (id = ? AND (name > ?)))", [10, 10, "abc"])
func (p *resumePredicate) toSQLClause(cursor *Cursor) (string, []driver.Value) {
	bound := p.bind(cursor)

	values := make([]driver.Value, 0, len(bound))
	for _, value := range bound {
		values = append(values, value)
	}

	return p.sql, values
}

// ResumeSQL builds the resume predicate for the given cursor as a raw SQL
// condition. Returns "TRUE" for a nil cursor (no position to resume from).
//
// Usage:
//
//	cond, args := spec.ResumeSQL(cursor)
//	query := fmt.Sprintf("SELECT * FROM table WHERE %s ORDER BY %s", cond, spec.OrderSQL())
func (s *SortSpec) ResumeSQL(cursor *Cursor) (string, []driver.Value) {
	if cursor == nil || len(cursor.values) == 0 {
		return "TRUE", nil
	}

	return newResumePredicate(s).toSQLClause(cursor)
}

func parseAnyValue(v any) any {
	// Try parsing a value as time.Time. If it succeeds, return time.Time.
	// Otherwise return the original value. Cursor values decoded from a
	// token arrive as strings and would compare lexically against
	// timestamp columns without this.
	fnParseBytesToTimeOrValue := func(vBytes []byte) any {
		dst := time.Time{}
		err := dst.UnmarshalText(vBytes)
		if err == nil {
			return dst
		}

		return v
	}

	switch vt := v.(type) {
	case string:
		return fnParseBytesToTimeOrValue([]byte(vt))
	case []byte:
		return fnParseBytesToTimeOrValue(vt)
	default:
		return v
	}
}
