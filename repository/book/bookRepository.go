// repository/book/repo.go
package bookrepo

import (
	"context"
	"database/sql"
	"errors"

	"schoollibrary/model"
)

type Repo interface {
	CreateBook(ctx context.Context, title, genre string, minYearGroup int) (int64, error)
	AddCopies(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
	Title(ctx context.Context, id int64) (string, error)

	ListCopies(ctx context.Context, bookID int64) ([]model.BookCopy, error)
	SetCopyStatus(ctx context.Context, bookID, copyID int64, status model.CopyStatus) error
	DecommissionCopies(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) CreateBook(ctx context.Context, title, genre string, minYearGroup int) (int64, error) {
	const q = `
INSERT INTO books (title, genre, min_year_group)
VALUES ($1,$2,$3)
RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, title, genre, minYearGroup).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) AddCopies(ctx context.Context, bookID int64, n int) (int64, error) {
	if n <= 0 {
		return 0, errors.New("n must be > 0")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	// copy_id continues the per-book sequence
	const ins = `
INSERT INTO book_copies (book_id, copy_id, status)
SELECT $1, COALESCE(MAX(copy_id),0)+1, 'AVAILABLE'
FROM book_copies WHERE book_id = $1`
	for i := 0; i < n; i++ {
		if _, err = tx.ExecContext(ctx, ins, bookID); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (r *repo) List(ctx context.Context) ([]model.Book, error) {
	const q = `
	SELECT b.id, b.title, b.genre, b.min_year_group,
		COALESCE(COUNT(c.*) FILTER (WHERE c.status='AVAILABLE'),0)::BIGINT AS copies_available
	FROM books b
	LEFT JOIN book_copies c ON c.book_id=b.id
	GROUP BY b.id
	ORDER BY b.id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Genre, &b.MinYearGroup, &b.CopiesAvailable); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Book, error) {
	const q = `
SELECT b.id, b.title, b.genre, b.min_year_group,
       COALESCE(COUNT(c.*) FILTER (WHERE c.status='AVAILABLE'),0)::BIGINT AS copies_available
FROM books b
LEFT JOIN book_copies c ON c.book_id=b.id
WHERE b.id=$1
GROUP BY b.id`
	var b model.Book
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Title, &b.Genre, &b.MinYearGroup, &b.CopiesAvailable); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) Title(ctx context.Context, id int64) (string, error) {
	const q = `SELECT title FROM books WHERE id=$1`
	var title string
	err := r.db.QueryRowContext(ctx, q, id).Scan(&title)
	return title, err
}

func (r *repo) ListCopies(ctx context.Context, bookID int64) ([]model.BookCopy, error) {
	const q = `
		SELECT book_id, copy_id, status
		FROM book_copies
		WHERE book_id = $1
		ORDER BY copy_id`
	rows, err := r.db.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BookCopy
	for rows.Next() {
		var c model.BookCopy
		if err := rows.Scan(&c.BookID, &c.CopyID, &c.Status); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repo) SetCopyStatus(ctx context.Context, bookID, copyID int64, status model.CopyStatus) error {
	const q = `
		UPDATE book_copies
		SET status = $3
		WHERE book_id = $1 AND copy_id = $2`
	res, err := r.db.ExecContext(ctx, q, bookID, copyID, status)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) DecommissionCopies(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	const q = `
		UPDATE book_copies
		SET status = 'DECOMMISSIONED'
		WHERE book_id = $1`
	res, err := tx.ExecContext(ctx, q, bookID)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
