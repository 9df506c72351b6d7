package core

import "sort"

// Less reports whether a sorts before b: most recently edited first, notes
// never committed last, then newest created first. ID breaks remaining ties.
func Less(a, b Note) bool {
	switch {
	case a.EditedAt != nil && b.EditedAt != nil:
		if !a.EditedAt.Equal(*b.EditedAt) {
			return a.EditedAt.After(*b.EditedAt)
		}
	case a.EditedAt != nil:
		return true
	case b.EditedAt != nil:
		return false
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortNotes sorts notes in place by Less.
func SortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return Less(notes[i], notes[j])
	})
}

// IsSorted reports whether notes already follow Less.
func IsSorted(notes []Note) bool {
	return sort.SliceIsSorted(notes, func(i, j int) bool {
		return Less(notes[i], notes[j])
	})
}
