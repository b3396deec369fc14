// repository/reservation/repo.go
package resrepo

import (
	"context"
	"database/sql"
	"time"
)

// QueueEntry is one pending reservation in a (book, copy) waiting line.
type QueueEntry struct {
	ID       int64
	Position int
	Priority int
}

type ReservationRow struct {
	ID       int64
	CopyID   int64
	BookID   int64
	ReaderID int64
	Status   string
}

// CancelledReservation identifies a reservation voided by a decommission.
type CancelledReservation struct {
	ReservationID int64
	ReaderID      int64
}

type MyRow struct {
	ReservationID int64     `json:"reservation_id"`
	BookID        int64     `json:"book_id"`
	BookTitle     string    `json:"book_title"`
	CopyID        int64     `json:"copy_id"`
	QueuePosition int       `json:"queue_position"`
	CreatedAt     time.Time `json:"created_at"`
}

type Repo interface {
	ReaderYearGroup(ctx context.Context, readerID int64) (int, error)
	BookTitle(ctx context.Context, bookID int64) (string, error)

	PickCopy(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	PendingQueueForUpdate(ctx context.Context, tx *sql.Tx, bookID, copyID int64) ([]QueueEntry, error)
	InsertReservation(ctx context.Context, tx *sql.Tx, bookID, copyID, readerID int64, position, priority int) (int64, error)
	UpdatePosition(ctx context.Context, tx *sql.Tx, reservationID int64, position int) error

	GetForUpdate(ctx context.Context, tx *sql.Tx, reservationID int64) (ReservationRow, error)
	MarkCancelled(ctx context.Context, tx *sql.Tx, reservationID int64) error
	MarkFulfilled(ctx context.Context, tx *sql.Tx, reservationID int64) (readerID int64, err error)

	CancelPendingForBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]CancelledReservation, error)

	ListPendingForReader(ctx context.Context, readerID int64) ([]MyRow, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) ReaderYearGroup(ctx context.Context, readerID int64) (int, error) {
	const q = `SELECT year_group FROM readers WHERE id = $1`
	var yg int
	err := r.db.QueryRowContext(ctx, q, readerID).Scan(&yg)
	return yg, err
}

func (r *repo) BookTitle(ctx context.Context, bookID int64) (string, error) {
	const q = `SELECT title FROM books WHERE id = $1`
	var title string
	err := r.db.QueryRowContext(ctx, q, bookID).Scan(&title)
	return title, err
}

func (r *repo) PickCopy(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	// The copy carrying the fewest pending reservations, ties broken by
	// lowest copy_id; when nothing is queued yet, the lowest copy still
	// in circulation. NULL means the book has no usable copy row.
	const q = `
	SELECT COALESCE(
		(SELECT r.copy_id
		 FROM reservations r
		 WHERE r.book_id = $1 AND r.status = 'PENDING'
		 GROUP BY r.copy_id
		 ORDER BY COUNT(*) ASC, r.copy_id ASC
		 LIMIT 1),
		(SELECT MIN(c.copy_id)
		 FROM book_copies c
		 WHERE c.book_id = $1 AND c.status <> 'DECOMMISSIONED'))`
	var copyID sql.NullInt64
	if err := tx.QueryRowContext(ctx, q, bookID).Scan(&copyID); err != nil {
		return 0, err
	}
	if !copyID.Valid {
		return 0, sql.ErrNoRows
	}
	return copyID.Int64, nil
}

func (r *repo) PendingQueueForUpdate(ctx context.Context, tx *sql.Tx, bookID, copyID int64) ([]QueueEntry, error) {
	// Locks the whole line so concurrent inserts cannot both renumber it.
	const q = `
		SELECT id, queue_position, priority
		FROM reservations
		WHERE book_id = $1 AND copy_id = $2 AND status = 'PENDING'
		ORDER BY queue_position ASC
		FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, bookID, copyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueueEntry
	for rows.Next() {
		var e QueueEntry
		if err := rows.Scan(&e.ID, &e.Position, &e.Priority); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repo) InsertReservation(ctx context.Context, tx *sql.Tx, bookID, copyID, readerID int64, position, priority int) (int64, error) {
	const q = `
		INSERT INTO reservations (copy_id, book_id, reader_id, status, queue_position, priority)
		VALUES ($1, $2, $3, 'PENDING', $4, $5)
		RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, copyID, bookID, readerID, position, priority).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) UpdatePosition(ctx context.Context, tx *sql.Tx, reservationID int64, position int) error {
	const q = `
		UPDATE reservations
		SET queue_position = $2
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, reservationID, position)
	return err
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, reservationID int64) (ReservationRow, error) {
	const q = `
		SELECT id, copy_id, book_id, reader_id, status
		FROM reservations
		WHERE id = $1
		FOR UPDATE`
	var row ReservationRow
	err := tx.QueryRowContext(ctx, q, reservationID).Scan(&row.ID, &row.CopyID, &row.BookID, &row.ReaderID, &row.Status)
	return row, err
}

func (r *repo) MarkCancelled(ctx context.Context, tx *sql.Tx, reservationID int64) error {
	const q = `
		UPDATE reservations
		SET status = 'CANCELLED'
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, reservationID)
	return err
}

func (r *repo) MarkFulfilled(ctx context.Context, tx *sql.Tx, reservationID int64) (int64, error) {
	const q = `
		UPDATE reservations
		SET status = 'FULFILLED'
		WHERE id = $1
		RETURNING reader_id`
	var readerID int64
	err := tx.QueryRowContext(ctx, q, reservationID).Scan(&readerID)
	return readerID, err
}

func (r *repo) CancelPendingForBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]CancelledReservation, error) {
	const q = `
		UPDATE reservations
		SET status = 'CANCELLED'
		WHERE book_id = $1 AND status = 'PENDING'
		RETURNING id, reader_id`
	rows, err := tx.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CancelledReservation
	for rows.Next() {
		var c CancelledReservation
		if err := rows.Scan(&c.ReservationID, &c.ReaderID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repo) ListPendingForReader(ctx context.Context, readerID int64) ([]MyRow, error) {
	const q = `
			SELECT
			r.id             AS reservation_id,
			r.book_id        AS book_id,
			b.title          AS book_title,
			r.copy_id        AS copy_id,
			r.queue_position AS queue_position,
			r.created_at     AS created_at
			FROM reservations r
			JOIN books b ON b.id = r.book_id
			WHERE r.reader_id = $1 AND r.status = 'PENDING'
			ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MyRow
	for rows.Next() {
		var m MyRow
		if err := rows.Scan(&m.ReservationID, &m.BookID, &m.BookTitle, &m.CopyID, &m.QueuePosition, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
