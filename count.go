package seekpager

import (
	"fmt"
	"regexp"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CountRows returns the number of rows the query would produce, robust to
// queries carrying GROUP BY and/or ORDER BY. A naive count conflicts with
// grouping (the aggregate collapses into the groups instead of counting
// them), so the query is wrapped as a derived table and the counting
// happens outside:
//
//	SELECT count(*) FROM (<query without ORDER BY>) AS counted
//
// Unless the query contains a set-combination clause (UNION and friends),
// its projection is first replaced with a constant to make the derived
// table cheaper to evaluate. Queries that reference a projected alias
// outside the projection break under that rewrite; such a failure is
// retried once with the projection intact, and only the retry's error
// propagates.
func CountRows(db *gorm.DB) (int64, error) {
	// Raw queries cannot be rewritten clause by clause (their ORDER BY and
	// projection live inside the SQL text); wrap them as-is.
	if db.Statement.SQL.Len() > 0 {
		return countDerived(db)
	}

	stripped := withoutOrdering(db)

	if !hasSetCombination(stripped) {
		total, err := countDerived(withConstantProjection(stripped))
		if err == nil {
			return total, nil
		}
	}

	return countDerived(stripped)
}

// withoutOrdering drops the ORDER BY clause from a clone of the query.
// Ordering is irrelevant to cardinality and some engines reject it inside
// an unlimited subquery.
func withoutOrdering(db *gorm.DB) *gorm.DB {
	tx := db.Session(&gorm.Session{Initialized: true})
	delete(tx.Statement.Clauses, "ORDER BY")

	return tx
}

// withConstantProjection replaces the projection list of a clone of the
// query with the constant 1. GROUP BY and filters stay untouched, so the
// derived table keeps its cardinality.
func withConstantProjection(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{Initialized: true}).Select("1")
}

// countDerived references the query as a derived table and counts over it.
// The inner query's bound parameters are merged by gorm when the subquery
// is expanded.
func countDerived(inner *gorm.DB) (int64, error) {
	var total int64

	outer := inner.Session(&gorm.Session{NewDB: true})
	err := outer.Table("(?) AS counted", inner).Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("cannot count derived table: %w", err)
	}

	return total, nil
}

var _setCombinationRe = regexp.MustCompile(`(?i)\b(union|intersect|except)\b`)

func hasSetCombination(db *gorm.DB) bool {
	sql, _ := renderSQL(db)
	return _setCombinationRe.MatchString(sql)
}

// renderSQL returns the query's SQL text and bound parameters without
// executing it. Raw queries already carry their SQL; built queries are
// rendered through a dry-run session.
func renderSQL(db *gorm.DB) (string, []any) {
	if db.Statement.SQL.Len() > 0 {
		return db.Statement.SQL.String(), db.Statement.Vars
	}

	tx := db.Session(&gorm.Session{DryRun: true, Logger: logger.Discard}).Find(&[]map[string]any{})

	return tx.Statement.SQL.String(), tx.Statement.Vars
}
