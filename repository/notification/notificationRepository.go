// repository/notification/repo.go
package notifrepo

import (
	"context"
	"database/sql"
	"time"
)

type UnreadRow struct {
	ID            int64      `json:"id"`
	Kind          string     `json:"kind"`
	BookID        int64      `json:"book_id"`
	BookTitle     string     `json:"book_title"`
	LoanID        *int64     `json:"loan_id,omitempty"`
	ReservationID *int64     `json:"reservation_id,omitempty"`
	LoanEndDate   *time.Time `json:"loan_end_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Repo interface {
	Insert(ctx context.Context, kind string, readerID, bookID int64, loanID, reservationID *int64) error
	Unread(ctx context.Context, readerID int64) ([]UnreadRow, error)
	MarkViewed(ctx context.Context, ids []int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, kind string, readerID, bookID int64, loanID, reservationID *int64) error {
	const q = `
		INSERT INTO notifications (kind, viewed, reader_id, book_id, loan_id, reservation_id)
		VALUES ($1, FALSE, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, q, kind, readerID, bookID, loanID, reservationID)
	return err
}

func (r *repo) Unread(ctx context.Context, readerID int64) ([]UnreadRow, error) {
	const q = `
			SELECT
			n.id             AS id,
			n.kind           AS kind,
			n.book_id        AS book_id,
			b.title          AS book_title,
			n.loan_id        AS loan_id,
			n.reservation_id AS reservation_id,
			l.end_date       AS loan_end_date,
			n.created_at     AS created_at
			FROM notifications n
			JOIN books b ON b.id = n.book_id
			LEFT JOIN loans l ON l.id = n.loan_id
			WHERE n.reader_id = $1 AND NOT n.viewed
			ORDER BY n.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UnreadRow
	for rows.Next() {
		var u UnreadRow
		if err := rows.Scan(&u.ID, &u.Kind, &u.BookID, &u.BookTitle, &u.LoanID, &u.ReservationID, &u.LoanEndDate, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *repo) MarkViewed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `
		UPDATE notifications
		SET viewed = TRUE
		WHERE id = ANY($1)`
	_, err := r.db.ExecContext(ctx, q, ids)
	return err
}
