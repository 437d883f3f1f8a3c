package simulate

import (
	"fmt"
	"math"
)

const pointsEpsilon = 1e-9

// verifyBoard checks a served board against the planned order. gapped
// selects competition ranking; otherwise ranks are dense. viewer is the
// member the board was requested for.
func verifyBoard(name string, got []Entry, want []Expected, limit int, gapped bool, viewer string) []string {
	var out []string
	fail := func(format string, args ...any) {
		out = append(out, name+": "+fmt.Sprintf(format, args...))
	}

	top := min(limit, len(want))
	if len(got) < top {
		fail("got %d entries, want at least %d", len(got), top)
		return out
	}
	for i := 0; i < top; i++ {
		if got[i].MemberID != want[i].MemberID || !samePoints(got[i].Points, want[i].Points) {
			fail("entry %d is %s/%.0f, want %s/%.0f", i, got[i].MemberID, got[i].Points, want[i].MemberID, want[i].Points)
		}
		if r := expectedRank(want, i, gapped); got[i].Rank != r {
			fail("entry %d (%s) has rank %d, want %d", i, got[i].MemberID, got[i].Rank, r)
		}
	}

	pos := indexOf(want, viewer)
	switch {
	case pos < 0 || pos < top:
		if len(got) != top {
			fail("got %d entries, want %d", len(got), top)
		}
	default:
		if len(got) != top+1 {
			fail("viewer %s not appended: got %d entries, want %d", viewer, len(got), top+1)
			break
		}
		last := got[top]
		if last.MemberID != viewer {
			fail("last entry is %s, want viewer %s", last.MemberID, viewer)
		}
		if r := strictlyAbove(want, want[pos].Points) + 1; last.Rank != r {
			fail("viewer rank %d, want %d", last.Rank, r)
		}
	}
	return out
}

// expectedRank is the rank of want[i]. Both styles share a rank within a
// tie group. Gapped ranks jump to position+1 after it; dense ranks advance
// by one.
func expectedRank(want []Expected, i int, gapped bool) int {
	rank := 1
	for j := 1; j <= i; j++ {
		if samePoints(want[j].Points, want[j-1].Points) {
			continue
		}
		if gapped {
			rank = j + 1
		} else {
			rank++
		}
	}
	return rank
}

func strictlyAbove(want []Expected, pts float64) int {
	n := 0
	for _, e := range want {
		if e.Points > pts && !samePoints(e.Points, pts) {
			n++
		}
	}
	return n
}

func indexOf(want []Expected, id string) int {
	for i, e := range want {
		if e.MemberID == id {
			return i
		}
	}
	return -1
}

func samePoints(a, b float64) bool { return math.Abs(a-b) < pointsEpsilon }
