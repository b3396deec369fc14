// repository/loan/repo.go
package loanrepo

import (
	"context"
	"database/sql"
	"time"
)

type LoanRow struct {
	ID       int64
	CopyID   int64
	BookID   int64
	ReaderID int64
	Status   string
}

type HistoryRow struct {
	LoanID    int64     `json:"loan_id"`
	BookID    int64     `json:"book_id"`
	BookTitle string    `json:"book_title"`
	CopyID    int64     `json:"copy_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`
}

// CancelledLoan identifies a loan voided by a decommission, so the caller
// can notify the affected reader after the transaction commits.
type CancelledLoan struct {
	LoanID   int64
	ReaderID int64
}

type ReminderRow struct {
	LoanID   int64
	ReaderID int64
	BookID   int64
}

type Repo interface {
	// Readers & books
	LockReaderYearGroup(ctx context.Context, tx *sql.Tx, readerID int64) (int, error)
	BookMinYearGroup(ctx context.Context, tx *sql.Tx, bookID int64) (int, error)
	BookTitle(ctx context.Context, tx *sql.Tx, bookID int64) (string, error)

	// Admission
	CountActiveLoans(ctx context.Context, tx *sql.Tx, readerID int64) (int64, error)
	PickAvailableCopy(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	InsertLoan(ctx context.Context, tx *sql.Tx, readerID, bookID, copyID int64, start, end time.Time) (int64, error)

	// Return
	GetLoanForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (LoanRow, error)
	MarkEnded(ctx context.Context, tx *sql.Tx, loanID int64) error
	SetCopyStatus(ctx context.Context, tx *sql.Tx, bookID, copyID int64, status string) error

	// Decommission
	CancelActiveForBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]CancelledLoan, error)

	// History & reminders
	ListActiveForReader(ctx context.Context, readerID int64) ([]HistoryRow, error)
	DueSoon(ctx context.Context) ([]ReminderRow, error)
	Overdue(ctx context.Context) ([]ReminderRow, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

// Readers & books

func (r *repo) LockReaderYearGroup(ctx context.Context, tx *sql.Tx, readerID int64) (int, error) {
	// The row lock serializes the count-then-insert allowance check for
	// one reader against concurrent borrow attempts.
	const q = `
				SELECT year_group
				FROM readers
				WHERE id = $1
				FOR UPDATE`
	var yg int
	err := tx.QueryRowContext(ctx, q, readerID).Scan(&yg)
	return yg, err
}

func (r *repo) BookMinYearGroup(ctx context.Context, tx *sql.Tx, bookID int64) (int, error) {
	const q = `
			SELECT min_year_group
			FROM books
			WHERE id = $1`
	var min int
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&min)
	return min, err
}

func (r *repo) BookTitle(ctx context.Context, tx *sql.Tx, bookID int64) (string, error) {
	const q = `SELECT title FROM books WHERE id = $1`
	var title string
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&title)
	return title, err
}

// Admission

func (r *repo) CountActiveLoans(ctx context.Context, tx *sql.Tx, readerID int64) (int64, error) {
	const q = `
			SELECT COUNT(*)
			FROM loans
			WHERE reader_id = $1
			AND status = 'ACTIVE'`
	var n int64
	err := tx.QueryRowContext(ctx, q, readerID).Scan(&n)
	return n, err
}

func (r *repo) PickAvailableCopy(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	// SKIP LOCKED so two concurrent borrows never fight over one copy
	const q = `
				SELECT copy_id
				FROM book_copies
				WHERE book_id = $1
				AND status = 'AVAILABLE'
				ORDER BY copy_id
				FOR UPDATE SKIP LOCKED
				LIMIT 1`
	var copyID int64
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&copyID)
	return copyID, err
}

func (r *repo) InsertLoan(ctx context.Context, tx *sql.Tx, readerID, bookID, copyID int64, start, end time.Time) (int64, error) {
	const q = `
		INSERT INTO loans (copy_id, book_id, reader_id, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, 'ACTIVE')
		RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, copyID, bookID, readerID, start, end).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Return

func (r *repo) GetLoanForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (LoanRow, error) {
	const q = `
		SELECT id, copy_id, book_id, reader_id, status
		FROM loans
		WHERE id = $1
		FOR UPDATE`
	var row LoanRow
	err := tx.QueryRowContext(ctx, q, loanID).Scan(&row.ID, &row.CopyID, &row.BookID, &row.ReaderID, &row.Status)
	return row, err
}

func (r *repo) MarkEnded(ctx context.Context, tx *sql.Tx, loanID int64) error {
	const q = `
		UPDATE loans
		SET status = 'ENDED'
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, loanID)
	return err
}

func (r *repo) SetCopyStatus(ctx context.Context, tx *sql.Tx, bookID, copyID int64, status string) error {
	const q = `
		UPDATE book_copies
		SET status = $3
		WHERE book_id = $1 AND copy_id = $2`
	res, err := tx.ExecContext(ctx, q, bookID, copyID, status)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Decommission

func (r *repo) CancelActiveForBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]CancelledLoan, error) {
	const q = `
		UPDATE loans
		SET status = 'CANCELLED'
		WHERE book_id = $1 AND status = 'ACTIVE'
		RETURNING id, reader_id`
	rows, err := tx.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CancelledLoan
	for rows.Next() {
		var c CancelledLoan
		if err := rows.Scan(&c.LoanID, &c.ReaderID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// History & reminders

func (r *repo) ListActiveForReader(ctx context.Context, readerID int64) ([]HistoryRow, error) {
	const q = `
			SELECT
			l.id          AS loan_id,
			l.book_id     AS book_id,
			b.title       AS book_title,
			l.copy_id     AS copy_id,
			l.start_date  AS start_date,
			l.end_date    AS end_date,
			l.status      AS status
			FROM loans l
			JOIN books b ON b.id = l.book_id
			WHERE l.reader_id = $1 AND l.status = 'ACTIVE'
			ORDER BY l.start_date DESC, l.id DESC`
	rows, err := r.db.QueryContext(ctx, q, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(
			&h.LoanID, &h.BookID, &h.BookTitle, &h.CopyID,
			&h.StartDate, &h.EndDate, &h.Status,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *repo) DueSoon(ctx context.Context) ([]ReminderRow, error) {
	const q = `
		SELECT id, reader_id, book_id
		FROM loans
		WHERE status = 'ACTIVE'
		AND end_date = CURRENT_DATE + 1`
	return r.reminderRows(ctx, q)
}

func (r *repo) Overdue(ctx context.Context) ([]ReminderRow, error) {
	// Reminders fire at fixed points past the due date rather than daily.
	const q = `
		SELECT id, reader_id, book_id
		FROM loans
		WHERE status = 'ACTIVE'
		AND CURRENT_DATE - end_date IN (1, 5, 10, 15, 20)`
	return r.reminderRows(ctx, q)
}

func (r *repo) reminderRows(ctx context.Context, q string) ([]ReminderRow, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReminderRow
	for rows.Next() {
		var rr ReminderRow
		if err := rows.Scan(&rr.LoanID, &rr.ReaderID, &rr.BookID); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}
