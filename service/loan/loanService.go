package loan

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"schoollibrary/model"
	loanrepo "schoollibrary/repository/loan"
	resrepo "schoollibrary/repository/reservation"
	"schoollibrary/service/notify"
)

// errors used by controllers

type ErrCode string

const (
	ErrAgeRestricted     ErrCode = "AGE_RESTRICTED"
	ErrAllowanceExceeded ErrCode = "ALLOWANCE_EXCEEDED"
	ErrNoCopyAvailable   ErrCode = "NO_COPY_AVAILABLE"
	ErrBookNotFound      ErrCode = "BOOK_NOT_FOUND"
	ErrReaderNotFound    ErrCode = "READER_NOT_FOUND"
	ErrLoanNotFound      ErrCode = "LOAN_NOT_FOUND"
	ErrNotActive         ErrCode = "NOT_ACTIVE"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// dto

type Borrowed struct {
	LoanID  int64
	CopyID  int64
	DueDate time.Time
}

type HistoryRow = loanrepo.HistoryRow

// ReservationQueue is the slice of the reservation store the fulfillment
// step needs: promoting the head of a freed copy's waiting line inside the
// return's transaction.
type ReservationQueue interface {
	PendingQueueForUpdate(ctx context.Context, tx *sql.Tx, bookID, copyID int64) ([]resrepo.QueueEntry, error)
	MarkFulfilled(ctx context.Context, tx *sql.Tx, reservationID int64) (readerID int64, err error)
	UpdatePosition(ctx context.Context, tx *sql.Tx, reservationID int64, position int) error
}

type Service interface {
	// Borrow admits a new loan: age gate, allowance, copy pick, 14-day term.
	Borrow(ctx context.Context, readerID, bookID int64) (*Borrowed, error)

	// Return ends an active loan and either frees the copy or promotes the
	// head pending reservation onto it, atomically.
	Return(ctx context.Context, loanID int64) (bookTitle string, err error)

	// History lists a reader's active loans.
	History(ctx context.Context, readerID int64) ([]HistoryRow, error)
}

// now is swapped out in tests.
var now = time.Now

// ----- Service implementation -----

type service struct {
	db *sql.DB
	r  loanrepo.Repo
	rq ReservationQueue
	n  notify.Notifier
}

func New(db *sql.DB, r loanrepo.Repo, rq ReservationQueue, n notify.Notifier) Service {
	return &service{db: db, r: r, rq: rq, n: n}
}

func (s *service) Borrow(ctx context.Context, readerID, bookID int64) (*Borrowed, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// The reader row lock guards the count-then-insert allowance check.
	yearGroup, err := s.r.LockReaderYearGroup(ctx, tx, readerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrReaderNotFound)
		}
		return nil, err
	}

	minYearGroup, err := s.r.BookMinYearGroup(ctx, tx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBookNotFound)
		}
		return nil, err
	}
	if !model.MayBorrow(yearGroup, minYearGroup) {
		return nil, makeErr(ErrAgeRestricted)
	}

	active, err := s.r.CountActiveLoans(ctx, tx, readerID)
	if err != nil {
		return nil, err
	}
	if active >= int64(model.AllowanceFor(yearGroup)) {
		return nil, makeErr(ErrAllowanceExceeded)
	}

	copyID, err := s.r.PickAvailableCopy(ctx, tx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNoCopyAvailable)
		}
		return nil, err
	}

	start := now().UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, model.LoanTermDays)
	loanID, err := s.r.InsertLoan(ctx, tx, readerID, bookID, copyID, start, end)
	if err != nil {
		return nil, err
	}
	if err = s.r.SetCopyStatus(ctx, tx, bookID, copyID, string(model.CopyOnLoan)); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &Borrowed{LoanID: loanID, CopyID: copyID, DueDate: end}, nil
}

// promotion carries what the post-commit notification needs.
type promotion struct {
	reservationID int64
	readerID      int64
	loanID        int64
}

func (s *service) Return(ctx context.Context, loanID int64) (title string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row, err := s.r.GetLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", makeErr(ErrLoanNotFound)
		}
		return "", err
	}
	if row.Status != string(model.LoanActive) {
		return "", makeErr(ErrNotActive)
	}

	if err = s.r.MarkEnded(ctx, tx, loanID); err != nil {
		return "", err
	}
	if err = s.r.SetCopyStatus(ctx, tx, row.BookID, row.CopyID, string(model.CopyAvailable)); err != nil {
		return "", err
	}

	// Promotion happens in the same transaction, so the copy is never
	// observably available while someone is still waiting on it.
	promoted, err := s.promoteHead(ctx, tx, row.BookID, row.CopyID)
	if err != nil {
		return "", err
	}

	title, err = s.r.BookTitle(ctx, tx, row.BookID)
	if err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}

	if promoted != nil {
		s.n.Notify(ctx, notify.Event{
			Kind:          model.NoteReservationAvailable,
			ReaderID:      promoted.readerID,
			BookID:        row.BookID,
			ReservationID: promoted.reservationID,
		})
	}
	return title, nil
}

// promoteHead converts the head pending reservation for the freed copy into
// a fresh active loan. When nobody is waiting the copy simply stays
// available. The remaining line is renumbered so positions start at 1 again.
func (s *service) promoteHead(ctx context.Context, tx *sql.Tx, bookID, copyID int64) (*promotion, error) {
	queue, err := s.rq.PendingQueueForUpdate(ctx, tx, bookID, copyID)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, nil
	}

	head := queue[0]
	readerID, err := s.rq.MarkFulfilled(ctx, tx, head.ID)
	if err != nil {
		return nil, err
	}

	start := now().UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, model.LoanTermDays)
	newLoanID, err := s.r.InsertLoan(ctx, tx, readerID, bookID, copyID, start, end)
	if err != nil {
		return nil, err
	}
	if err = s.r.SetCopyStatus(ctx, tx, bookID, copyID, string(model.CopyOnLoan)); err != nil {
		return nil, err
	}

	for i, e := range queue[1:] {
		if e.Position != i+1 {
			if err = s.rq.UpdatePosition(ctx, tx, e.ID, i+1); err != nil {
				return nil, err
			}
		}
	}

	return &promotion{reservationID: head.ID, readerID: readerID, loanID: newLoanID}, nil
}

func (s *service) History(ctx context.Context, readerID int64) ([]HistoryRow, error) {
	return s.r.ListActiveForReader(ctx, readerID)
}
