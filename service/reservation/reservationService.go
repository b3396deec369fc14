package reservation

import (
	"context"
	"database/sql"
	"errors"

	"schoollibrary/model"
	resrepo "schoollibrary/repository/reservation"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// errors used by controllers

type ErrCode string

const (
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrReaderNotFound  ErrCode = "READER_NOT_FOUND"
	ErrAlreadyReserved ErrCode = "ALREADY_RESERVED"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrNotPending      ErrCode = "NOT_PENDING"
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

type Created struct {
	ReservationID int64
	CopyID        int64
	QueuePosition int
}

type MyRow = resrepo.MyRow

type Service interface {
	// Reserve queues the reader on the least-loaded copy of the book.
	Reserve(ctx context.Context, readerID, bookID int64) (*Created, error)

	// Cancel withdraws a pending reservation and closes the gap it leaves.
	Cancel(ctx context.Context, reservationID int64) (bookTitle string, err error)

	// Mine lists a reader's pending reservations.
	Mine(ctx context.Context, readerID int64) ([]MyRow, error)
}

// ----- Service implementation -----

type service struct {
	db *sql.DB
	r  resrepo.Repo
}

func New(db *sql.DB, r resrepo.Repo) Service {
	return &service{db: db, r: r}
}

// Reserve runs the whole read-insert-renumber-write sequence inside one
// transaction; the FOR UPDATE queue read serializes concurrent reserves on
// the same (book, copy) line.
func (s *service) Reserve(ctx context.Context, readerID, bookID int64) (*Created, error) {
	yearGroup, err := s.r.ReaderYearGroup(ctx, readerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrReaderNotFound)
		}
		return nil, err
	}
	priority := model.PriorityFor(yearGroup)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	copyID, err := s.r.PickCopy(ctx, tx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBookNotFound)
		}
		return nil, err
	}

	rows, err := s.r.PendingQueueForUpdate(ctx, tx, bookID, copyID)
	if err != nil {
		return nil, err
	}

	w := newWaitlist(rows)
	position := w.insert(priority)

	var reservationID int64
	for _, e := range w.entries {
		if e.id == 0 {
			reservationID, err = s.r.InsertReservation(ctx, tx, bookID, copyID, readerID, e.position, priority)
			if err != nil {
				if isUniqueViolation(err) {
					err = makeErr(ErrAlreadyReserved)
				}
				return nil, err
			}
			continue
		}
		if w.moved(e) {
			if err = s.r.UpdatePosition(ctx, tx, e.id, e.position); err != nil {
				return nil, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &Created{
		ReservationID: reservationID,
		CopyID:        copyID,
		QueuePosition: position,
	}, nil
}

// Cancel marks the reservation CANCELLED and renumbers the survivors so
// pending positions stay contiguous from 1.
func (s *service) Cancel(ctx context.Context, reservationID int64) (title string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row, err := s.r.GetForUpdate(ctx, tx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", makeErr(ErrNotFound)
		}
		return "", err
	}
	if row.Status != string(model.ReservationPending) {
		return "", makeErr(ErrNotPending)
	}

	if err = s.r.MarkCancelled(ctx, tx, reservationID); err != nil {
		return "", err
	}

	// reload excludes the row just cancelled
	rest, err := s.r.PendingQueueForUpdate(ctx, tx, row.BookID, row.CopyID)
	if err != nil {
		return "", err
	}
	for i, e := range rest {
		if e.Position != i+1 {
			if err = s.r.UpdatePosition(ctx, tx, e.ID, i+1); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return s.r.BookTitle(ctx, row.BookID)
}

func (s *service) Mine(ctx context.Context, readerID int64) ([]MyRow, error) {
	return s.r.ListPendingForReader(ctx, readerID)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
