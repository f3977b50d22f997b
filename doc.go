// Package seekpager implements keyset ("seek") traversal over GORM queries.
//
// Overview
//
// seekpager walks every row matched by a query as a lazy, pull-based
// sequence, fetching bounded pages under the hood:
//   - Traversal: keyset pagination. Each page resumes strictly after the
//     last seen sort tuple, so rows inserted or deleted in already-visited
//     regions never cause skips or duplicates, as long as the sort tuple
//     totally orders the dataset.
//   - OffsetTraversal: a LIMIT/OFFSET baseline with weaker guarantees
//     under concurrent writes.
//   - CountRows: a grouping-safe row count that wraps the query as a
//     derived table instead of counting it naively.
//
// Key concepts
//   - SortSpec: ordered multi-column sort with per-key direction, parsed
//     from expressions like "created_at DESC".
//   - ValueSource: maps each sort key to a row column or a computed value
//     for building the next-page cursor.
//   - Cursor: the sort tuple of the last emitted row; round-trips through
//     an opaque token for resumable traversals.
//
// See README for examples and usage details.
package seekpager
