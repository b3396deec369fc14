package booksvc

import (
	"context"
	"database/sql"
	"errors"

	"schoollibrary/model"
	loanrepo "schoollibrary/repository/loan"
	resrepo "schoollibrary/repository/reservation"
	"schoollibrary/service/notify"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrCopyNotFound = errors.New("copy not found")
)

type Book = model.Book

type Repo interface {
	CreateBook(ctx context.Context, title, genre string, minYearGroup int) (int64, error)
	AddCopies(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context) ([]Book, error)
	Detail(ctx context.Context, id int64) (*Book, error)
	ListCopies(ctx context.Context, bookID int64) ([]model.BookCopy, error)
	SetCopyStatus(ctx context.Context, bookID, copyID int64, status model.CopyStatus) error
	DecommissionCopies(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
}

// LoanCanceller and ReservationCanceller are the decommission hooks into the
// loan and reservation stores; both run inside the decommission transaction
// and report who was affected so notifications go out after commit.
type LoanCanceller interface {
	CancelActiveForBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]loanrepo.CancelledLoan, error)
}

type ReservationCanceller interface {
	CancelPendingForBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]resrepo.CancelledReservation, error)
}

type Service interface {
	Create(ctx context.Context, title, genre string, minYearGroup int) (int64, error)
	AddCopies(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context) ([]Book, error)
	Detail(ctx context.Context, id int64) (*Book, error)
	ListCopies(ctx context.Context, bookID int64) ([]model.BookCopy, error)

	// SetCopyStatus is the librarian override for a single copy, e.g. to pull
	// a damaged copy or put a repaired one back in circulation.
	SetCopyStatus(ctx context.Context, bookID, copyID int64, status model.CopyStatus) error

	// Decommission withdraws a book from circulation: every copy is marked
	// decommissioned, active loans and pending reservations are cancelled,
	// and each affected reader is notified.
	Decommission(ctx context.Context, bookID int64) error
}

type service struct {
	db *sql.DB
	r  Repo
	lc LoanCanceller
	rc ReservationCanceller
	n  notify.Notifier
}

func New(db *sql.DB, r Repo, lc LoanCanceller, rc ReservationCanceller, n notify.Notifier) Service {
	return &service{db: db, r: r, lc: lc, rc: rc, n: n}
}

func (s *service) Create(ctx context.Context, title, genre string, minYearGroup int) (int64, error) {
	if title == "" || minYearGroup < 0 || minYearGroup > 13 {
		return 0, errors.New("invalid payload")
	}
	return s.r.CreateBook(ctx, title, genre, minYearGroup)
}

func (s *service) AddCopies(ctx context.Context, bookID int64, n int) (int64, error) {
	added, err := s.r.AddCopies(ctx, bookID, n)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return 0, ErrBookNotFound
		}
		return 0, err
	}
	return added, nil
}

func (s *service) List(ctx context.Context) ([]Book, error)            { return s.r.List(ctx) }
func (s *service) Detail(ctx context.Context, id int64) (*Book, error) { return s.r.Detail(ctx, id) }

func (s *service) ListCopies(ctx context.Context, bookID int64) ([]model.BookCopy, error) {
	return s.r.ListCopies(ctx, bookID)
}

func (s *service) SetCopyStatus(ctx context.Context, bookID, copyID int64, status model.CopyStatus) error {
	switch status {
	case model.CopyAvailable, model.CopyOnLoan, model.CopyDecommissioned:
	default:
		return errors.New("invalid copy status")
	}
	if err := s.r.SetCopyStatus(ctx, bookID, copyID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCopyNotFound
		}
		return err
	}
	return nil
}

func (s *service) Decommission(ctx context.Context, bookID int64) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	affected, err := s.r.DecommissionCopies(ctx, tx, bookID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookNotFound
	}

	loans, err := s.lc.CancelActiveForBook(ctx, tx, bookID)
	if err != nil {
		return err
	}
	reservations, err := s.rc.CancelPendingForBook(ctx, tx, bookID)
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	for _, l := range loans {
		s.n.Notify(ctx, notify.Event{
			Kind:     model.NoteLoanCancelled,
			ReaderID: l.ReaderID,
			BookID:   bookID,
			LoanID:   l.LoanID,
		})
	}
	for _, r := range reservations {
		s.n.Notify(ctx, notify.Event{
			Kind:          model.NoteReservationCancelled,
			ReaderID:      r.ReaderID,
			BookID:        bookID,
			ReservationID: r.ReservationID,
		})
	}
	return nil
}
