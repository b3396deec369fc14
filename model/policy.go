package model

// Reader categories share one integer column with the student year groups:
// staff and librarians sit below year 2, students run from year 2 to 13.
const (
	YearGroupStaff     = 0
	YearGroupLibrarian = 1
)

// AllowanceFor returns the maximum number of concurrent active loans for a
// year group. Staff, librarians and the two most senior student years get
// the larger cap.
func AllowanceFor(yearGroup int) int {
	switch yearGroup {
	case YearGroupStaff, YearGroupLibrarian, 12, 13:
		return 5
	default:
		return 3
	}
}

// MayBorrow reports whether a reader's year group clears a book's minimum.
// Staff and librarians bypass the age gate entirely.
func MayBorrow(yearGroup, minYearGroup int) bool {
	if yearGroup == YearGroupStaff || yearGroup == YearGroupLibrarian {
		return true
	}
	return yearGroup >= minYearGroup
}

// PriorityFor returns the reservation priority tier for a year group, lower
// meaning higher priority. Years 2 through 10 queue at tier 2; everyone
// else, including years 11-13, staff and librarians, queues at tier 1.
func PriorityFor(yearGroup int) int {
	if yearGroup >= 2 && yearGroup <= 10 {
		return 2
	}
	return 1
}
