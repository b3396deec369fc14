// model/book.go
package model

type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Genre           string `json:"genre"`
	MinYearGroup    int    `json:"min_year_group"`
	CopiesAvailable int64  `json:"copies_available"`
}

type CopyStatus string

const (
	CopyAvailable      CopyStatus = "AVAILABLE"
	CopyOnLoan         CopyStatus = "ON_LOAN"
	CopyDecommissioned CopyStatus = "DECOMMISSIONED"
)

// BookCopy is one physical unit of a book. CopyID is a per-book sequence
// starting at 1, so a copy is identified by the (BookID, CopyID) pair.
type BookCopy struct {
	BookID int64      `json:"book_id"`
	CopyID int64      `json:"copy_id"`
	Status CopyStatus `json:"status"`
}
