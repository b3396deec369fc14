// model/loan.go
package model

import "time"

type LoanStatus string

const (
	LoanActive    LoanStatus = "ACTIVE"
	LoanEnded     LoanStatus = "ENDED"
	LoanCancelled LoanStatus = "CANCELLED"
)

// LoanTermDays is the fixed loan term; the due date is always the start
// date plus two weeks.
const LoanTermDays = 14

type Loan struct {
	ID        int64      `json:"id"`
	CopyID    int64      `json:"copy_id"`
	BookID    int64      `json:"book_id"`
	ReaderID  int64      `json:"reader_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Status    LoanStatus `json:"status"`
}
