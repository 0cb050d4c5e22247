package wiki

import "testing"

func TestPositionForAppend(t *testing.T) {
	tests := []struct {
		name   string
		maxPos int
		want   int
	}{
		{"empty sibling set", 0, 1000},
		{"after one sibling", 1000, 2000},
		{"after dense siblings", 4321, 5321},
		{"negative max", -1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := positionForAppend(tt.maxPos); got != tt.want {
				t.Errorf("positionForAppend(%d) = %d, want %d", tt.maxPos, got, tt.want)
			}
		})
	}
}

func TestPositionForInsert(t *testing.T) {
	siblings := []posEntry{
		{id: 10, pos: 1000},
		{id: 20, pos: 2000},
		{id: 30, pos: 3000},
	}

	tests := []struct {
		name     string
		siblings []posEntry
		target   int
		wantPos  int
		wantPlan map[int64]int
	}{
		{"empty set", nil, 0, 1000, nil},
		{"front", siblings, 0, 0, nil},
		{"append via index == len", siblings, 3, 4000, nil},
		{"interior bisect", siblings, 1, 1500, nil},
		{
			name: "bisect with minimal gap",
			siblings: []posEntry{
				{id: 1, pos: 10},
				{id: 2, pos: 12},
			},
			target:  1,
			wantPos: 11,
		},
		{
			name: "packed neighbors emit renumber plan",
			siblings: []posEntry{
				{id: 1, pos: 10},
				{id: 2, pos: 11},
				{id: 3, pos: 12},
			},
			target:   1,
			wantPos:  1010,
			wantPlan: map[int64]int{2: 2011, 3: 2012},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, plan := positionForInsert(tt.siblings, tt.target)
			if pos != tt.wantPos {
				t.Errorf("pos = %d, want %d", pos, tt.wantPos)
			}
			if len(plan) != len(tt.wantPlan) {
				t.Fatalf("plan = %v, want %v", plan, tt.wantPlan)
			}
			for id, want := range tt.wantPlan {
				if plan[id] != want {
					t.Errorf("plan[%d] = %d, want %d", id, plan[id], want)
				}
			}
		})
	}
}

func TestPositionForInsert_RenumberKeepsOrderStrict(t *testing.T) {
	// After applying the plan plus the moving item's position, all keys
	// must be strictly increasing and pairwise distinct.
	siblings := []posEntry{
		{id: 1, pos: 100},
		{id: 2, pos: 101},
		{id: 3, pos: 102},
		{id: 4, pos: 103},
	}

	pos, plan := positionForInsert(siblings, 2)
	if plan == nil {
		t.Fatal("expected a renumber plan for packed siblings")
	}

	final := []int{siblings[0].pos, siblings[1].pos, pos}
	for _, sibling := range siblings[2:] {
		final = append(final, plan[sibling.id])
	}
	for i := 1; i < len(final); i++ {
		if final[i] <= final[i-1] {
			t.Fatalf("positions not strictly increasing: %v", final)
		}
	}
}
