package vqueue_test

import (
	"testing"

	"github.com/MrWong99/cadenza/internal/molecule"
	"github.com/MrWong99/cadenza/internal/vqueue"
)

// mol builds a minimal one-atom molecule at the given priority.
func mol(priority int, mode molecule.Mode) *molecule.Molecule {
	return &molecule.Molecule{
		Priority: priority,
		Mode:     mode,
		Atoms:    []molecule.Atom{{Kind: molecule.KindPlay, Filename: "x.wav"}},
	}
}

func TestEnqueue_AssignsIncreasingIDs(t *testing.T) {
	t.Parallel()
	q := vqueue.New()
	a := q.Enqueue(mol(0, molecule.ModeDiscard))
	b := q.Enqueue(mol(3, molecule.ModeDiscard))
	if a != 1 || b != 2 {
		t.Errorf("ids = %d, %d; want 1, 2", a, b)
	}
}

func TestNext_HighestPriorityWins(t *testing.T) {
	t.Parallel()
	q := vqueue.New()
	low := mol(0, molecule.ModeDiscard)
	high := mol(4, molecule.ModeDiscard)
	mid := mol(2, molecule.ModeDiscard)
	q.Enqueue(low)
	q.Enqueue(high)
	q.Enqueue(mid)
	if got := q.Next(); got != high {
		t.Errorf("Next = priority %d, want 4", got.Priority)
	}
}

func TestNext_FIFOWithinLane(t *testing.T) {
	t.Parallel()
	q := vqueue.New()
	first := mol(1, molecule.ModeDiscard)
	second := mol(1, molecule.ModeDiscard)
	q.Enqueue(first)
	q.Enqueue(second)
	if got := q.Next(); got != first {
		t.Error("Next should return the first enqueued molecule")
	}
	q.Discard(first)
	if got := q.Next(); got != second {
		t.Error("after discarding the head, Next should return the second molecule")
	}
}

func TestNext_EmptyQueue(t *testing.T) {
	t.Parallel()
	q := vqueue.New()
	if q.Next() != nil {
		t.Error("Next on empty queue should be nil")
	}
}

func TestNext_SkipsCompletedHead(t *testing.T) {
	t.Parallel()
	q := vqueue.New()
	done := mol(3, molecule.ModeDiscard)
	q.Enqueue(done)
	done.Current = len(done.Atoms)
	pending := mol(1, molecule.ModeDiscard)
	q.Enqueue(pending)
	if got := q.Next(); got != pending {
		t.Error("Next should skip a lane whose head is complete")
	}
}

func TestNext_LoopedHeadStaysRunnable(t *testing.T) {
	t.Parallel()
	q := vqueue.New()
	looped := mol(3, molecule.ModeLoop)
	q.Enqueue(looped)
	looped.Current = len(looped.Atoms)
	if got := q.Next(); got != looped {
		t.Error("a looped molecule that has run all its atoms is still runnable")
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()
	q := vqueue.New()
	m := mol(2, molecule.ModeDiscard)
	id := q.Enqueue(m)
	if got := q.Cancel(id); got != m {
		t.Error("Cancel should return the removed molecule")
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d, want 0", q.Len())
	}
	if q.Cancel(99) != nil {
		t.Error("Cancel of unknown id should return nil")
	}
}

func TestCancelPriority(t *testing.T) {
	t.Parallel()
	q := vqueue.New()
	q.Enqueue(mol(2, molecule.ModeDiscard))
	q.Enqueue(mol(2, molecule.ModeDiscard))
	keep := mol(1, molecule.ModeDiscard)
	q.Enqueue(keep)
	if dropped := q.CancelPriority(2); len(dropped) != 2 {
		t.Errorf("dropped %d molecules, want 2", len(dropped))
	}
	if q.Len() != 1 || q.Next() != keep {
		t.Error("lane 1 should be untouched")
	}
	if q.CancelPriority(99) != nil {
		t.Error("out-of-range priority should be a no-op")
	}
}

func TestLaneLen(t *testing.T) {
	t.Parallel()
	q := vqueue.New()
	q.Enqueue(mol(2, molecule.ModeDiscard))
	q.Enqueue(mol(2, molecule.ModeDiscard))
	if got := q.LaneLen(2); got != 2 {
		t.Errorf("LaneLen(2) = %d, want 2", got)
	}
	if got := q.LaneLen(0); got != 0 {
		t.Errorf("LaneLen(0) = %d, want 0", got)
	}
}
