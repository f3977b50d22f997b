package seekpager

import (
	"fmt"
	"iter"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Traversal walks every row matched by a query, in the order imposed by
// its sort specification, as a lazy pull-based sequence. Rows are fetched
// in pages of pageSize; each page resumes strictly after the sort tuple of
// the previous page's last row, so the traversal stays duplicate-free and
// skip-free under concurrent writes as long as the sort tuple totally
// orders the dataset.
//
// A traversal is single-use: once its sequence ends (or is abandoned), a
// new one has to be started. It holds no transaction across pages; each
// page is an independent read.
type Traversal[T any] struct {
	spec       *SortSpec
	pageSize   int
	startAfter *Cursor
}

func NewTraversal[T any](spec *SortSpec) *Traversal[T] {
	return &Traversal[T]{
		spec:     spec,
		pageSize: DefaultPageSize,
	}
}

// WithPageSize sets the fetch size. NormalizePageSize is applied.
func (t *Traversal[T]) WithPageSize(pageSize int) *Traversal[T] {
	if t == nil {
		t = new(Traversal[T])
	}

	t.pageSize = NormalizePageSize(pageSize)

	return t
}

// WithStartAfter resumes the traversal strictly after the given cursor,
// e.g. one decoded from a token issued by an earlier traversal.
func (t *Traversal[T]) WithStartAfter(cursor *Cursor) *Traversal[T] {
	if t == nil {
		t = new(Traversal[T])
	}

	t.startAfter = cursor

	return t
}

func (t *Traversal[T]) validate() error {
	if t == nil {
		return fmt.Errorf("traversal is nil")
	}

	if t.pageSize <= 0 {
		return fmt.Errorf("invalid page size %d", t.pageSize)
	}

	err := t.spec.validate()
	if err != nil {
		return err
	}

	return t.startAfter.validate(t.spec)
}

// Rows returns the traversal as a lazy sequence over the given query.
// The query itself (model/table, joins, filters) stays under the caller's
// control; Rows only adds ordering, the resume predicate and the limit.
//
// The sequence yields at most one error, always as its last element:
// validation errors on the first pull, fetch and cursor-capture errors
// mid-flight. The consumer may break out at any point; nothing has to be
// cleaned up.
func (t *Traversal[T]) Rows(db *gorm.DB) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		if err := t.validate(); err != nil {
			yield(zero, fmt.Errorf("cannot traverse: %w", err))
			return
		}

		var (
			predicate = newResumePredicate(t.spec)
			cursor    = t.startAfter

			// Ordering is applied exactly once; every page chains off this
			// session with its own resume predicate and limit.
			base = t.spec.applyOrdering(db).Session(&gorm.Session{})
		)

		for {
			page := base
			if !cursor.IsEmpty() {
				page = predicate.apply(page, cursor)
			}

			var batch []T
			if err := page.Limit(t.pageSize).Find(&batch).Error; err != nil {
				yield(zero, fmt.Errorf("cannot fetch page: %w", err))
				return
			}

			for _, row := range batch {
				if !yield(row, nil) {
					return
				}
			}

			// A short page means the dataset is exhausted.
			if len(batch) < t.pageSize {
				return
			}

			next, err := t.spec.CursorFrom(lo.LastOrEmpty(batch))
			if err != nil {
				yield(zero, err)
				return
			}
			cursor = next
		}
	}
}

// All drains Rows into a slice. Mostly useful in tests and small datasets;
// prefer ranging over Rows for anything unbounded.
func (t *Traversal[T]) All(db *gorm.DB) ([]T, error) {
	var ret []T
	for row, err := range t.Rows(db) {
		if err != nil {
			return nil, err
		}

		ret = append(ret, row)
	}

	return ret, nil
}
