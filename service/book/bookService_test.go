// service/book/book_service_test.go
package booksvc_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"schoollibrary/model"
	loanrepo "schoollibrary/repository/loan"
	resrepo "schoollibrary/repository/reservation"
	booksvc "schoollibrary/service/book"
	"schoollibrary/service/notify"
)

type nopDriver struct{}

func (nopDriver) Open(string) (driver.Conn, error) { return nopConn{}, nil }

type nopConn struct{}

func (nopConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (nopConn) Close() error                        { return nil }
func (nopConn) Begin() (driver.Tx, error)           { return nopTx{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

func init() { sql.Register("nopdb-book", nopDriver{}) }

type repoMock struct {
	createFn       func(ctx context.Context, title, genre string, minYearGroup int) (int64, error)
	addCopiesFn    func(ctx context.Context, bookID int64, n int) (int64, error)
	listFn         func(ctx context.Context) ([]booksvc.Book, error)
	detailFn       func(ctx context.Context, id int64) (*booksvc.Book, error)
	listCopiesFn   func(ctx context.Context, bookID int64) ([]model.BookCopy, error)
	setStatusFn    func(ctx context.Context, bookID, copyID int64, status model.CopyStatus) error
	decommissionFn func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
}

func (m *repoMock) CreateBook(ctx context.Context, title, genre string, minYearGroup int) (int64, error) {
	return m.createFn(ctx, title, genre, minYearGroup)
}
func (m *repoMock) AddCopies(ctx context.Context, bookID int64, n int) (int64, error) {
	return m.addCopiesFn(ctx, bookID, n)
}
func (m *repoMock) List(ctx context.Context) ([]booksvc.Book, error) { return m.listFn(ctx) }
func (m *repoMock) Detail(ctx context.Context, id int64) (*booksvc.Book, error) {
	return m.detailFn(ctx, id)
}
func (m *repoMock) ListCopies(ctx context.Context, bookID int64) ([]model.BookCopy, error) {
	return m.listCopiesFn(ctx, bookID)
}
func (m *repoMock) SetCopyStatus(ctx context.Context, bookID, copyID int64, status model.CopyStatus) error {
	return m.setStatusFn(ctx, bookID, copyID, status)
}
func (m *repoMock) DecommissionCopies(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	return m.decommissionFn(ctx, tx, bookID)
}

type loanCancelMock struct {
	rows []loanrepo.CancelledLoan
}

func (m *loanCancelMock) CancelActiveForBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]loanrepo.CancelledLoan, error) {
	return m.rows, nil
}

type resCancelMock struct {
	rows []resrepo.CancelledReservation
}

func (m *resCancelMock) CancelPendingForBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]resrepo.CancelledReservation, error) {
	return m.rows, nil
}

type notifierMock struct{ events []notify.Event }

func (m *notifierMock) Notify(ctx context.Context, ev notify.Event) {
	m.events = append(m.events, ev)
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("nopdb-book", "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreate_Validation(t *testing.T) {
	s := booksvc.New(testDB(t), &repoMock{}, &loanCancelMock{}, &resCancelMock{}, &notifierMock{})
	if _, err := s.Create(context.Background(), "", "fantasy", 7); err == nil {
		t.Fatal("expected error for empty title")
	}
	if _, err := s.Create(context.Background(), "Matilda", "fantasy", -1); err == nil {
		t.Fatal("expected error for negative min year group")
	}
	if _, err := s.Create(context.Background(), "Matilda", "fantasy", 14); err == nil {
		t.Fatal("expected error for min year group above 13")
	}
}

func TestCreate_Success(t *testing.T) {
	m := &repoMock{
		createFn: func(ctx context.Context, title, genre string, minYearGroup int) (int64, error) {
			if title != "Matilda" || genre != "fantasy" || minYearGroup != 4 {
				return 0, errors.New("bad args")
			}
			return 42, nil
		},
	}
	s := booksvc.New(testDB(t), m, &loanCancelMock{}, &resCancelMock{}, &notifierMock{})
	id, err := s.Create(context.Background(), "Matilda", "fantasy", 4)
	if err != nil || id != 42 {
		t.Fatalf("got id=%v err=%v; want 42 nil", id, err)
	}
}

func TestPassThroughs(t *testing.T) {
	m := &repoMock{
		addCopiesFn: func(ctx context.Context, bookID int64, n int) (int64, error) { return 3, nil },
		listFn:      func(ctx context.Context) ([]booksvc.Book, error) { return nil, nil },
		detailFn:    func(ctx context.Context, id int64) (*booksvc.Book, error) { return &booksvc.Book{}, nil },
	}
	s := booksvc.New(testDB(t), m, &loanCancelMock{}, &resCancelMock{}, &notifierMock{})

	if n, err := s.AddCopies(context.Background(), 7, 3); err != nil || n != 3 {
		t.Fatalf("AddCopies got %v %v; want 3 nil", n, err)
	}
	if _, err := s.List(context.Background()); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if _, err := s.Detail(context.Background(), 99); err != nil {
		t.Fatalf("Detail error: %v", err)
	}
}

func TestSetCopyStatus(t *testing.T) {
	var gotStatus model.CopyStatus
	m := &repoMock{
		setStatusFn: func(ctx context.Context, bookID, copyID int64, status model.CopyStatus) error {
			if bookID == 9 && copyID == 2 {
				gotStatus = status
				return nil
			}
			return sql.ErrNoRows
		},
	}
	s := booksvc.New(testDB(t), m, &loanCancelMock{}, &resCancelMock{}, &notifierMock{})

	if err := s.SetCopyStatus(context.Background(), 9, 2, model.CopyDecommissioned); err != nil {
		t.Fatalf("SetCopyStatus error: %v", err)
	}
	if gotStatus != model.CopyDecommissioned {
		t.Fatalf("repo saw status %q", gotStatus)
	}
	if err := s.SetCopyStatus(context.Background(), 9, 99, model.CopyAvailable); !errors.Is(err, booksvc.ErrCopyNotFound) {
		t.Fatalf("want ErrCopyNotFound, got %v", err)
	}
	if err := s.SetCopyStatus(context.Background(), 9, 2, "LOST"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestDecommission_CancelsAndNotifies(t *testing.T) {
	m := &repoMock{
		decommissionFn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) { return 2, nil },
	}
	lc := &loanCancelMock{rows: []loanrepo.CancelledLoan{{LoanID: 7, ReaderID: 5}}}
	rc := &resCancelMock{rows: []resrepo.CancelledReservation{
		{ReservationID: 61, ReaderID: 3},
		{ReservationID: 62, ReaderID: 4},
	}}
	n := &notifierMock{}
	s := booksvc.New(testDB(t), m, lc, rc, n)

	if err := s.Decommission(context.Background(), 9); err != nil {
		t.Fatalf("Decommission error: %v", err)
	}
	if len(n.events) != 3 {
		t.Fatalf("want 3 notifications, got %d", len(n.events))
	}
	if n.events[0].Kind != "LOAN_CANCELLED" || n.events[0].ReaderID != 5 || n.events[0].LoanID != 7 {
		t.Fatalf("unexpected first event: %+v", n.events[0])
	}
	if n.events[1].Kind != "RESERVATION_CANCELLED" || n.events[1].ReservationID != 61 {
		t.Fatalf("unexpected second event: %+v", n.events[1])
	}
}

func TestDecommission_UnknownBook(t *testing.T) {
	m := &repoMock{
		decommissionFn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) { return 0, nil },
	}
	s := booksvc.New(testDB(t), m, &loanCancelMock{}, &resCancelMock{}, &notifierMock{})

	err := s.Decommission(context.Background(), 999)
	if !errors.Is(err, booksvc.ErrBookNotFound) {
		t.Fatalf("want ErrBookNotFound, got %v", err)
	}
}
