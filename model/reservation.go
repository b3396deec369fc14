// model/reservation.go
package model

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationFulfilled ReservationStatus = "FULFILLED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

type Reservation struct {
	ID       int64 `json:"id"`
	CopyID   int64 `json:"copy_id"`
	BookID   int64 `json:"book_id"`
	ReaderID int64 `json:"reader_id"`

	Status ReservationStatus `json:"status"`

	// QueuePosition is the 1-based rank within the (book, copy) waiting
	// line. Pending positions are kept contiguous from 1 after every
	// queue mutation.
	QueuePosition int `json:"queue_position"`

	// Priority is computed once from the reader's year group when the
	// reservation is created and never changes afterwards.
	Priority int `json:"priority"`

	CreatedAt time.Time `json:"created_at"`
}
