package seekpager

import (
	"fmt"
	"iter"

	"gorm.io/gorm"
)

// OffsetTraversal is the LIMIT/OFFSET baseline: it requests consecutive
// fixed-size pages until a page reports no successor.
//
// IMPORTANT:
// Concurrent inserts or deletes in already-visited pages shift the
// boundaries of later pages, so rows can be skipped or emitted twice.
// Prefer Traversal whenever a totally ordering sort tuple is available.
//
// OffsetTraversal imposes no ordering of its own; the caller has to put a
// deterministic ORDER BY on the query for the page boundaries to be
// stable at all.
type OffsetTraversal[T any] struct {
	pageSize int
}

func NewOffsetTraversal[T any]() *OffsetTraversal[T] {
	return &OffsetTraversal[T]{
		pageSize: DefaultPageSize,
	}
}

// WithPageSize sets the fetch size. NormalizePageSize is applied.
func (t *OffsetTraversal[T]) WithPageSize(pageSize int) *OffsetTraversal[T] {
	if t == nil {
		t = new(OffsetTraversal[T])
	}

	t.pageSize = NormalizePageSize(pageSize)

	return t
}

// Rows returns the traversal as a lazy sequence over the given query.
// Each page is fetched with one lookahead row to learn whether a further
// page exists; the extra row is trimmed before emitting.
func (t *OffsetTraversal[T]) Rows(db *gorm.DB) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		if t == nil || t.pageSize <= 0 {
			yield(zero, fmt.Errorf("cannot traverse: invalid offset traversal"))
			return
		}

		base := db.Session(&gorm.Session{})

		for page := 1; ; page++ {
			var batch []T
			offset := (page - 1) * t.pageSize

			err := base.Offset(offset).Limit(t.pageSize + 1).Find(&batch).Error
			if err != nil {
				yield(zero, fmt.Errorf("cannot fetch page %d: %w", page, err))
				return
			}

			hasMore := len(batch) > t.pageSize
			if hasMore {
				batch = batch[:t.pageSize]
			}

			for _, row := range batch {
				if !yield(row, nil) {
					return
				}
			}

			if !hasMore {
				return
			}
		}
	}
}

// All drains Rows into a slice.
func (t *OffsetTraversal[T]) All(db *gorm.DB) ([]T, error) {
	var ret []T
	for row, err := range t.Rows(db) {
		if err != nil {
			return nil, err
		}

		ret = append(ret, row)
	}

	return ret, nil
}
