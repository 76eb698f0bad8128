// Package rotation decides who is responsible for a rotating task. Every
// function is pure: the same inputs always give the same answer.
//
// Indices returned here always point into the full assignee list, never into
// the eligible subset.
package rotation

// eligiblePositions returns the positions in assignees whose member is not
// excluded, in list order.
func eligiblePositions(assignees []int64, exclude []int64) []int {
	skip := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	positions := make([]int, 0, len(assignees))
	for i, id := range assignees {
		if _, ok := skip[id]; ok {
			continue
		}
		positions = append(positions, i)
	}
	return positions
}

// Eligible returns assignees minus exclude, preserving order.
func Eligible(assignees []int64, exclude []int64) []int64 {
	positions := eligiblePositions(assignees, exclude)
	out := make([]int64, len(positions))
	for i, p := range positions {
		out[i] = assignees[p]
	}
	return out
}

// Next computes the index of the next responsible member. ok is false only
// when assignees is empty. When nobody is eligible the current index comes
// back unchanged; callers detect that with Frozen.
func Next(assignees []int64, current int, exclude []int64) (next int, ok bool) {
	if len(assignees) == 0 {
		return 0, false
	}

	positions := eligiblePositions(assignees, exclude)
	switch len(positions) {
	case 0:
		return current, true
	case 1:
		return positions[0], true
	}

	for k, p := range positions {
		if p == current {
			return positions[(k+1)%len(positions)], true
		}
	}
	// Current index is out of range or points at an excluded member.
	return positions[0], true
}

// Frozen reports whether no assignee is eligible, so rotation cannot move.
func Frozen(assignees []int64, exclude []int64) bool {
	return len(assignees) > 0 && len(eligiblePositions(assignees, exclude)) == 0
}

// Normalize returns an index that resolves to an eligible member: out of range
// indices are clamped and an excluded member is replaced by the first
// eligible one. With nobody eligible the clamped index is returned.
func Normalize(assignees []int64, current int, exclude []int64) int {
	if len(assignees) == 0 {
		return 0
	}
	idx := clamp(current, len(assignees))
	positions := eligiblePositions(assignees, exclude)
	if len(positions) == 0 {
		return idx
	}
	for _, p := range positions {
		if p == idx {
			return idx
		}
	}
	return positions[0]
}

// Current returns the member at index, clamping out of range values.
func Current(assignees []int64, index int) (int64, bool) {
	if len(assignees) == 0 {
		return 0, false
	}
	return assignees[clamp(index, len(assignees))], true
}

// Preview lists the next n responsible members starting with whoever holds
// the current turn. Nothing is mutated; an empty result means nobody is
// eligible.
func Preview(assignees []int64, current int, exclude []int64, n int) []int64 {
	if n <= 0 || len(assignees) == 0 || Frozen(assignees, exclude) {
		return nil
	}

	idx := Normalize(assignees, current, exclude)
	out := make([]int64, 0, n)
	for len(out) < n {
		out = append(out, assignees[idx])
		idx, _ = Next(assignees, idx, exclude)
	}
	return out
}

func clamp(index, length int) int {
	if index < 0 {
		return 0
	}
	if index >= length {
		return length - 1
	}
	return index
}
