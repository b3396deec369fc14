// model/notification.go
package model

import "time"

type NotificationKind string

const (
	NoteReservationAvailable NotificationKind = "RESERVATION_AVAILABLE"
	NoteLoanCancelled        NotificationKind = "LOAN_CANCELLED"
	NoteReservationCancelled NotificationKind = "RESERVATION_CANCELLED"
	NoteLoanDueSoon          NotificationKind = "LOAN_DUE_SOON"
	NoteLoanOverdue          NotificationKind = "LOAN_OVERDUE"
)

type Notification struct {
	ID            int64            `json:"id"`
	Kind          NotificationKind `json:"kind"`
	Viewed        bool             `json:"viewed"`
	ReaderID      int64            `json:"reader_id"`
	BookID        int64            `json:"book_id"`
	LoanID        *int64           `json:"loan_id,omitempty"`
	ReservationID *int64           `json:"reservation_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
