package handlers

import "testing"

func TestClampCount(t *testing.T) {
	tests := []struct {
		name    string
		current int
		delta   int
		max     int
		want    int
	}{
		{"increment from zero", 0, 1, 3, 1},
		{"increment within bound", 1, 1, 3, 2},
		{"clamped at target", 2, 5, 3, 3},
		{"already at target", 3, 1, 3, 3},
		{"decrement", 2, -1, 3, 1},
		{"decrement to zero", 1, -1, 3, 0},
		{"clamped at zero", 1, -5, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampCount(tt.current, tt.delta, tt.max); got != tt.want {
				t.Errorf("clampCount(%d, %d, %d) = %d, want %d", tt.current, tt.delta, tt.max, got, tt.want)
			}
		})
	}
}

func TestPlanLogWrite(t *testing.T) {
	tests := []struct {
		name       string
		current    int
		delta      int
		max        int
		wantNext   int
		wantRemove bool
	}{
		{"new log from zero", 0, 1, 3, 1, false},
		{"increment keeps row", 1, 1, 3, 2, false},
		{"clamped at target keeps row", 2, 5, 3, 3, false},
		{"decrement to zero removes row", 1, -1, 3, 0, true},
		{"decrement below zero removes row", 2, -5, 3, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, remove := planLogWrite(tt.current, tt.delta, tt.max)
			if next != tt.wantNext || remove != tt.wantRemove {
				t.Errorf("planLogWrite(%d, %d, %d) = (%d, %t), want (%d, %t)",
					tt.current, tt.delta, tt.max, next, remove, tt.wantNext, tt.wantRemove)
			}
		})
	}
}
