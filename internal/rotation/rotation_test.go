package rotation

import (
	"slices"
	"testing"
)

const (
	alice int64 = 1
	bob   int64 = 2
	carol int64 = 3
	dave  int64 = 4
)

func TestNext(t *testing.T) {
	tests := []struct {
		name      string
		assignees []int64
		current   int
		exclude   []int64
		want      int
		wantOK    bool
	}{
		{"advance", []int64{alice, bob, carol}, 0, nil, 1, true},
		{"wraps to first", []int64{alice, bob, carol}, 2, nil, 0, true},
		{"skips excluded", []int64{alice, bob, carol}, 0, []int64{bob}, 2, true},
		{"skips excluded and wraps", []int64{alice, bob, carol}, 2, []int64{alice}, 1, true},
		{"all excluded leaves index", []int64{alice, bob, carol}, 1, []int64{alice, bob, carol}, 1, true},
		{"single eligible", []int64{alice, bob, carol}, 0, []int64{alice, carol}, 1, true},
		{"single assignee", []int64{alice}, 0, nil, 0, true},
		{"stale excluded current restarts", []int64{alice, bob, carol, dave}, 1, []int64{bob}, 0, true},
		{"out of range restarts", []int64{alice, bob}, 7, nil, 0, true},
		{"negative restarts", []int64{alice, bob}, -1, nil, 0, true},
		{"exclude of non-assignee ignored", []int64{alice, bob}, 0, []int64{dave}, 1, true},
		{"empty assignees", nil, 0, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(tt.assignees, tt.current, tt.exclude)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Next(%v, %d, %v) = %d, want %d", tt.assignees, tt.current, tt.exclude, got, tt.want)
			}
		})
	}
}

func TestNextIsDeterministic(t *testing.T) {
	assignees := []int64{alice, bob, carol, dave}
	exclude := []int64{carol}
	first, _ := Next(assignees, 1, exclude)
	for i := 0; i < 100; i++ {
		got, _ := Next(assignees, 1, exclude)
		if got != first {
			t.Fatalf("call %d returned %d, first call returned %d", i, got, first)
		}
	}
	if first != 3 {
		t.Errorf("Next = %d, want 3", first)
	}
}

func TestNextCyclesThroughEveryEligibleMember(t *testing.T) {
	assignees := []int64{alice, bob, carol, dave}
	exclude := []int64{bob}

	idx := 0
	var seen []int64
	for i := 0; i < 6; i++ {
		idx, _ = Next(assignees, idx, exclude)
		seen = append(seen, assignees[idx])
	}
	want := []int64{carol, dave, alice, carol, dave, alice}
	if !slices.Equal(seen, want) {
		t.Errorf("sequence = %v, want %v", seen, want)
	}
}

func TestFrozen(t *testing.T) {
	if !Frozen([]int64{alice, bob}, []int64{bob, alice}) {
		t.Error("expected frozen when every assignee is excluded")
	}
	if Frozen([]int64{alice, bob}, []int64{bob}) {
		t.Error("expected not frozen with one eligible member")
	}
	if Frozen(nil, nil) {
		t.Error("empty assignee list is not frozen, it has no rotation at all")
	}
}

func TestNormalize(t *testing.T) {
	assignees := []int64{alice, bob, carol}
	if got := Normalize(assignees, 5, nil); got != 2 {
		t.Errorf("clamp high = %d, want 2", got)
	}
	if got := Normalize(assignees, -3, nil); got != 0 {
		t.Errorf("clamp low = %d, want 0", got)
	}
	if got := Normalize(assignees, 0, []int64{alice}); got != 1 {
		t.Errorf("excluded current = %d, want 1", got)
	}
	if got := Normalize(assignees, 2, []int64{alice, bob, carol}); got != 2 {
		t.Errorf("nobody eligible = %d, want 2", got)
	}
	if got := Normalize(nil, 4, nil); got != 0 {
		t.Errorf("empty = %d, want 0", got)
	}
}

func TestCurrent(t *testing.T) {
	id, ok := Current([]int64{alice, bob}, 9)
	if !ok || id != bob {
		t.Errorf("Current = (%d, %v), want (%d, true)", id, ok, bob)
	}
	if _, ok := Current(nil, 0); ok {
		t.Error("expected no current member for empty list")
	}
}

func TestPreview(t *testing.T) {
	assignees := []int64{alice, bob, carol}

	got := Preview(assignees, 1, []int64{carol}, 4)
	want := []int64{bob, alice, bob, alice}
	if !slices.Equal(got, want) {
		t.Errorf("Preview = %v, want %v", got, want)
	}

	if got := Preview(assignees, 0, assignees, 3); got != nil {
		t.Errorf("Preview with nobody eligible = %v, want nil", got)
	}
	if got := Preview(assignees, 0, nil, 0); got != nil {
		t.Errorf("Preview(n=0) = %v, want nil", got)
	}
}

func TestPreviewDoesNotMutateInputs(t *testing.T) {
	assignees := []int64{alice, bob, carol}
	exclude := []int64{bob}
	Preview(assignees, 0, exclude, 5)
	if !slices.Equal(assignees, []int64{alice, bob, carol}) || !slices.Equal(exclude, []int64{bob}) {
		t.Errorf("inputs mutated: %v %v", assignees, exclude)
	}
}

func TestEligible(t *testing.T) {
	got := Eligible([]int64{alice, bob, carol, dave}, []int64{dave, bob})
	if !slices.Equal(got, []int64{alice, carol}) {
		t.Errorf("Eligible = %v", got)
	}
}
