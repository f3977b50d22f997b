package seekpager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Test_CursorFrom(t *testing.T) {
	type payment struct {
		ID        uint
		Amount    float64 `gorm:"column:amount_cents"`
		CreatedAt time.Time
	}

	createdAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	row := payment{ID: 7, Amount: 99.5, CreatedAt: createdAt}

	t.Run("column sources resolve by gorm naming", func(t *testing.T) {
		spec := mustSortSpec(t,
			By("created_at DESC", Column("created_at")),
			By("id", Column("id")),
		)

		cursor, err := spec.CursorFrom(row)
		require.NoError(t, err)
		require.Equal(t, []any{createdAt, uint(7)}, cursor.Values())
	})

	t.Run("explicit gorm column tag wins", func(t *testing.T) {
		spec := mustSortSpec(t, By("amount_cents", Column("amount_cents")))

		cursor, err := spec.CursorFrom(&row)
		require.NoError(t, err)
		require.Equal(t, []any{99.5}, cursor.Values())
	})

	t.Run("computed source invokes the function", func(t *testing.T) {
		spec := mustSortSpec(t,
			By("LOWER(name)", Computed(func(r any) any { return "john" })),
			By("id", Column("id")),
		)

		cursor, err := spec.CursorFrom(row)
		require.NoError(t, err)
		require.Equal(t, []any{"john", uint(7)}, cursor.Values())
	})

	t.Run("missing column fails", func(t *testing.T) {
		spec := mustSortSpec(t, By("nope", Column("nope")))

		_, err := spec.CursorFrom(row)
		require.ErrorContains(t, err, "nope")
	})

	t.Run("map rows resolve by key", func(t *testing.T) {
		spec := mustSortSpec(t, By("id", Column("id")))

		cursor, err := spec.CursorFrom(map[string]any{"id": 3})
		require.NoError(t, err)
		require.Equal(t, []any{3}, cursor.Values())
	})

	t.Run("embedded model fields are flattened", func(t *testing.T) {
		type auditedPayment struct {
			gorm.Model
			Amount float64
		}

		spec := mustSortSpec(t, By("id DESC", Column("id")))

		cursor, err := spec.CursorFrom(auditedPayment{Model: gorm.Model{ID: 42}})
		require.NoError(t, err)
		require.Equal(t, []any{uint(42)}, cursor.Values())
	})
}

func Test_Cursor_TokenRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cursor *Cursor
	}{
		{"single value", NewCursor(float64(4))},
		{"multiple values", NewCursor(float64(10), "abc", true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.cursor.Token()
			require.NotEmpty(t, token)

			decoded, err := DecodeCursorToken(token)
			require.NoError(t, err)
			require.Equal(t, tt.cursor.Values(), decoded.Values())
		})
	}

	t.Run("empty cursor encodes to empty token", func(t *testing.T) {
		require.Equal(t, "", (*Cursor)(nil).Token())
		require.Equal(t, "", NewCursor().Token())
	})

	t.Run("empty token decodes to nil cursor", func(t *testing.T) {
		decoded, err := DecodeCursorToken("")
		require.NoError(t, err)
		require.Nil(t, decoded)
	})

	t.Run("broken base64 fails", func(t *testing.T) {
		_, err := DecodeCursorToken("%%%")
		require.Error(t, err)
	})

	t.Run("broken json fails", func(t *testing.T) {
		_, err := DecodeCursorToken(_encoder.EncodeToString([]byte("{broken")))
		require.Error(t, err)
	})
}

func Test_Cursor_validate(t *testing.T) {
	spec := mustSortSpec(t,
		By("id", Column("id")),
		By("name", Column("name")),
	)

	tests := []struct {
		name   string
		cursor *Cursor
		ok     bool
	}{
		{"nil cursor is the start of the dataset", nil, true},
		{"empty cursor is the start of the dataset", NewCursor(), true},
		{"matching arity", NewCursor(1, "a"), true},
		{"too few values", NewCursor(1), false},
		{"too many values", NewCursor(1, "a", true), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cursor.validate(spec); (err == nil) != tt.ok {
				t.Errorf("%s: ok=%v err=%v", tt.name, tt.ok, err)
			}
		})
	}
}
