package reservation

import (
	"slices"

	resrepo "schoollibrary/repository/reservation"
)

// entry is one reservation in the in-memory working copy of a (book, copy)
// waiting line. id 0 marks the arrival that has not been persisted yet.
type entry struct {
	id       int64
	position int
	priority int
}

// waitlist buffers a queue's pending reservations between the locked read
// and the write-back, so a whole insertion renumbers in memory first and
// touches only the rows whose position actually changed.
type waitlist struct {
	entries []entry
	loaded  map[int64]int
}

func newWaitlist(rows []resrepo.QueueEntry) *waitlist {
	w := &waitlist{
		entries: make([]entry, 0, len(rows)+1),
		loaded:  make(map[int64]int, len(rows)),
	}
	for _, r := range rows {
		w.entries = append(w.entries, entry{id: r.ID, position: r.Position, priority: r.Priority})
		w.loaded[r.ID] = r.Position
	}
	return w
}

// insert places the arrival behind every entry whose priority is equal or
// better (lower or equal value) and in front of the rest. Existing entries
// never reorder relative to each other; this is a stable partial-priority
// insertion, not a full sort. The whole line is then renumbered from 1.
// Returns the arrival's final queue position.
func (w *waitlist) insert(priority int) int {
	i := 0
	for i < len(w.entries) && w.entries[i].priority <= priority {
		i++
	}
	w.entries = slices.Insert(w.entries, i, entry{priority: priority})
	w.renumber()
	return i + 1
}

func (w *waitlist) renumber() {
	for i := range w.entries {
		w.entries[i].position = i + 1
	}
}

// moved reports whether a persisted entry sits at a different position than
// it did when the queue was loaded.
func (w *waitlist) moved(e entry) bool {
	return w.loaded[e.id] != e.position
}
