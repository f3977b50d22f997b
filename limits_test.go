package seekpager

import "testing"

func Test_IsNormalizedPageSizeMax(t *testing.T) {
	tests := []struct {
		name       string
		pageSize   int
		maxSize    int
		want       int
		normalized bool
	}{
		{"zero gets the default", 0, MaxPageSize, DefaultPageSize, false},
		{"negative gets the default", -5, MaxPageSize, DefaultPageSize, false},
		{"oversized gets clamped", MaxPageSize + 1, MaxPageSize, MaxPageSize, false},
		{"in range stays", 42, MaxPageSize, 42, true},
		{"exactly max stays", MaxPageSize, MaxPageSize, MaxPageSize, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IsNormalizedPageSizeMax(tt.pageSize, tt.maxSize)
			if got != tt.want || ok != tt.normalized {
				t.Errorf("%s: got (%d, %v) want (%d, %v)", tt.name, got, ok, tt.want, tt.normalized)
			}
		})
	}
}

func Test_NormalizePageSize(t *testing.T) {
	if got := NormalizePageSize(0); got != DefaultPageSize {
		t.Errorf("NormalizePageSize(0)=%d want %d", got, DefaultPageSize)
	}
	if got := NormalizePageSize(MaxPageSize * 2); got != MaxPageSize {
		t.Errorf("NormalizePageSize(max*2)=%d want %d", got, MaxPageSize)
	}
	if got := NormalizePageSize(7); got != 7 {
		t.Errorf("NormalizePageSize(7)=%d want 7", got)
	}
}
