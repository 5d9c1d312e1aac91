// Package vqueue holds pending molecules in fixed priority lanes.
//
// One queue exists per call. Each lane is a FIFO; selection returns the
// head of the highest lane whose head is runnable. The queue performs no scheduling
// itself — the scheduler decides when to consult it.
package vqueue

import (
	"github.com/MrWong99/cadenza/internal/molecule"
)

// Queue is a fixed array of FIFO lanes, one per priority level.
// It is not safe for concurrent use; the scheduler serializes access.
type Queue struct {
	lanes  [molecule.NumPriorities][]*molecule.Molecule
	nextID uint64
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends m to its priority lane and returns the assigned id (≥ 1).
// The caller must have validated m.Priority.
func (q *Queue) Enqueue(m *molecule.Molecule) uint64 {
	q.nextID++
	m.ID = q.nextID
	q.lanes[m.Priority] = append(q.lanes[m.Priority], m)
	return m.ID
}

// Next returns the head of the highest-priority non-empty lane whose head
// still has atoms to run or has Loop set, or nil when no lane has such a
// head. A lane whose head is complete is skipped as a whole.
// The molecule stays in its lane; it is removed only by [Queue.Discard],
// [Queue.Cancel], or [Queue.CancelPriority].
func (q *Queue) Next() *molecule.Molecule {
	for p := molecule.NumPriorities - 1; p >= 0; p-- {
		lane := q.lanes[p]
		if len(lane) == 0 {
			continue
		}
		if head := lane[0]; !head.Complete() || head.Mode.Has(molecule.ModeLoop) {
			return head
		}
	}
	return nil
}

// Cancel removes the molecule with the given id. Returns the removed
// molecule, or nil when the id is unknown (a silent no-op for callers).
func (q *Queue) Cancel(id uint64) *molecule.Molecule {
	for p := range q.lanes {
		for i, m := range q.lanes[p] {
			if m.ID == id {
				q.lanes[p] = append(q.lanes[p][:i], q.lanes[p][i+1:]...)
				return m
			}
		}
	}
	return nil
}

// CancelPriority discards every molecule in lane p. Out-of-range priorities
// are a no-op. Returns the discarded molecules in FIFO order.
func (q *Queue) CancelPriority(p int) []*molecule.Molecule {
	if p < 0 || p >= molecule.NumPriorities {
		return nil
	}
	dropped := q.lanes[p]
	q.lanes[p] = nil
	return dropped
}

// Discard removes m from its lane. A no-op if m is not queued.
func (q *Queue) Discard(m *molecule.Molecule) {
	lane := q.lanes[m.Priority]
	for i, qm := range lane {
		if qm == m {
			q.lanes[m.Priority] = append(lane[:i], lane[i+1:]...)
			return
		}
	}
}

// Len returns the total number of queued molecules.
func (q *Queue) Len() int {
	var n int
	for p := range q.lanes {
		n += len(q.lanes[p])
	}
	return n
}

// LaneLen returns the number of molecules in lane p.
func (q *Queue) LaneLen(p int) int {
	if p < 0 || p >= molecule.NumPriorities {
		return 0
	}
	return len(q.lanes[p])
}
