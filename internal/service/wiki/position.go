package wiki

// Sibling ordering uses sparse integer sort keys. New positions are handed
// out in steps of posGap so that later insert-between operations can
// bisect without touching neighbors; only when two neighbors end up closer
// than 2 apart does a renumbering plan become necessary.
const (
	posGap      = 1000
	posRenumber = 2000
)

// posEntry is one sibling in position order.
type posEntry struct {
	id  int64
	pos int
}

// positionForAppend returns the sort key for a new last sibling. maxPos is
// the current maximum among siblings; pass 0 for an empty sibling set.
func positionForAppend(maxPos int) int {
	return maxPos + posGap
}

// positionForInsert computes the sort key that places a new or moving item
// at target within siblings (which must be ordered by pos ascending and
// must not contain the moving item). When no integral value exists between
// the target's neighbors it returns a renumbering plan instead: every
// sibling at or after target shifts by posRenumber and the item lands in
// the gap that opens up. target == len(siblings) appends.
func positionForInsert(siblings []posEntry, target int) (int, map[int64]int) {
	if len(siblings) == 0 {
		return posGap, nil
	}
	if target <= 0 {
		return siblings[0].pos - posGap, nil
	}
	if target >= len(siblings) {
		return siblings[len(siblings)-1].pos + posGap, nil
	}

	prev := siblings[target-1]
	next := siblings[target]
	if next.pos-prev.pos >= 2 {
		return prev.pos + (next.pos-prev.pos)/2, nil
	}

	// Neighbors are packed; shift the tail to reopen the gap.
	plan := make(map[int64]int, len(siblings)-target)
	for _, sibling := range siblings[target:] {
		plan[sibling.id] = sibling.pos + posRenumber
	}
	return prev.pos + posGap, plan
}
