package reservation

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	resrepo "schoollibrary/repository/reservation"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// no-op driver so service transactions run without Postgres; every real
// statement goes through the mocked repo anyway.

type nopDriver struct{}

func (nopDriver) Open(string) (driver.Conn, error) { return nopConn{}, nil }

type nopConn struct{}

func (nopConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (nopConn) Close() error                        { return nil }
func (nopConn) Begin() (driver.Tx, error)           { return nopTx{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

func init() { sql.Register("nopdb-reservation", nopDriver{}) }

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("nopdb-reservation", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// mock repo, function fields

type mockRepo struct {
	yearGroupFn      func(ctx context.Context, readerID int64) (int, error)
	bookTitleFn      func(ctx context.Context, bookID int64) (string, error)
	pickCopyFn       func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	pendingQueueFn   func(ctx context.Context, tx *sql.Tx, bookID, copyID int64) ([]resrepo.QueueEntry, error)
	insertFn         func(ctx context.Context, tx *sql.Tx, bookID, copyID, readerID int64, position, priority int) (int64, error)
	updatePositionFn func(ctx context.Context, tx *sql.Tx, reservationID int64, position int) error
	getForUpdateFn   func(ctx context.Context, tx *sql.Tx, reservationID int64) (resrepo.ReservationRow, error)
	markCancelledFn  func(ctx context.Context, tx *sql.Tx, reservationID int64) error
}

var _ resrepo.Repo = (*mockRepo)(nil)

func (m *mockRepo) ReaderYearGroup(ctx context.Context, readerID int64) (int, error) {
	return m.yearGroupFn(ctx, readerID)
}
func (m *mockRepo) BookTitle(ctx context.Context, bookID int64) (string, error) {
	if m.bookTitleFn == nil {
		return "", nil
	}
	return m.bookTitleFn(ctx, bookID)
}
func (m *mockRepo) PickCopy(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	return m.pickCopyFn(ctx, tx, bookID)
}
func (m *mockRepo) PendingQueueForUpdate(ctx context.Context, tx *sql.Tx, bookID, copyID int64) ([]resrepo.QueueEntry, error) {
	return m.pendingQueueFn(ctx, tx, bookID, copyID)
}
func (m *mockRepo) InsertReservation(ctx context.Context, tx *sql.Tx, bookID, copyID, readerID int64, position, priority int) (int64, error) {
	return m.insertFn(ctx, tx, bookID, copyID, readerID, position, priority)
}
func (m *mockRepo) UpdatePosition(ctx context.Context, tx *sql.Tx, reservationID int64, position int) error {
	return m.updatePositionFn(ctx, tx, reservationID, position)
}
func (m *mockRepo) GetForUpdate(ctx context.Context, tx *sql.Tx, reservationID int64) (resrepo.ReservationRow, error) {
	return m.getForUpdateFn(ctx, tx, reservationID)
}
func (m *mockRepo) MarkCancelled(ctx context.Context, tx *sql.Tx, reservationID int64) error {
	return m.markCancelledFn(ctx, tx, reservationID)
}
func (m *mockRepo) MarkFulfilled(ctx context.Context, tx *sql.Tx, reservationID int64) (int64, error) {
	return 0, errors.New("unexpected call")
}
func (m *mockRepo) CancelPendingForBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]resrepo.CancelledReservation, error) {
	return nil, errors.New("unexpected call")
}
func (m *mockRepo) ListPendingForReader(ctx context.Context, readerID int64) ([]resrepo.MyRow, error) {
	return nil, nil
}

// --- tests ---

func TestReserve_EmptyQueue(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		yearGroupFn: func(ctx context.Context, readerID int64) (int, error) { return 7, nil },
		pickCopyFn:  func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) { return 1, nil },
		pendingQueueFn: func(ctx context.Context, tx *sql.Tx, bookID, copyID int64) ([]resrepo.QueueEntry, error) {
			return nil, nil
		},
		insertFn: func(ctx context.Context, tx *sql.Tx, bookID, copyID, readerID int64, position, priority int) (int64, error) {
			require.Equal(t, 1, position)
			require.Equal(t, 2, priority) // year 7 queues at tier 2
			return 101, nil
		},
	}
	s := New(testDB(t), m)

	out, err := s.Reserve(ctx, 5, 9)
	require.NoError(t, err)
	require.Equal(t, int64(101), out.ReservationID)
	require.Equal(t, int64(1), out.CopyID)
	require.Equal(t, 1, out.QueuePosition)
}

func TestReserve_PriorityOneJumpsQueueAndShiftsOnlyMoved(t *testing.T) {
	// Queue holds a tier-2 entry; a year-13 reader (tier 1) takes position
	// 1 and only the displaced entry gets rewritten.
	ctx := context.Background()
	updated := map[int64]int{}
	m := &mockRepo{
		yearGroupFn: func(ctx context.Context, readerID int64) (int, error) { return 13, nil },
		pickCopyFn:  func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) { return 1, nil },
		pendingQueueFn: func(ctx context.Context, tx *sql.Tx, bookID, copyID int64) ([]resrepo.QueueEntry, error) {
			return []resrepo.QueueEntry{{ID: 40, Position: 1, Priority: 2}}, nil
		},
		insertFn: func(ctx context.Context, tx *sql.Tx, bookID, copyID, readerID int64, position, priority int) (int64, error) {
			require.Equal(t, 1, position)
			require.Equal(t, 1, priority)
			return 41, nil
		},
		updatePositionFn: func(ctx context.Context, tx *sql.Tx, reservationID int64, position int) error {
			updated[reservationID] = position
			return nil
		},
	}
	s := New(testDB(t), m)

	out, err := s.Reserve(ctx, 9, 3)
	require.NoError(t, err)
	require.Equal(t, 1, out.QueuePosition)
	require.Equal(t, map[int64]int{40: 2}, updated)
}

func TestReserve_SameTierQueuesBehind(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		yearGroupFn: func(ctx context.Context, readerID int64) (int, error) { return 8, nil },
		pickCopyFn:  func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) { return 2, nil },
		pendingQueueFn: func(ctx context.Context, tx *sql.Tx, bookID, copyID int64) ([]resrepo.QueueEntry, error) {
			return []resrepo.QueueEntry{
				{ID: 30, Position: 1, Priority: 1},
				{ID: 31, Position: 2, Priority: 2},
			}, nil
		},
		insertFn: func(ctx context.Context, tx *sql.Tx, bookID, copyID, readerID int64, position, priority int) (int64, error) {
			require.Equal(t, 3, position)
			return 32, nil
		},
		updatePositionFn: func(ctx context.Context, tx *sql.Tx, reservationID int64, position int) error {
			t.Fatalf("no existing entry should move, got update(%d, %d)", reservationID, position)
			return nil
		},
	}
	s := New(testDB(t), m)

	out, err := s.Reserve(ctx, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 3, out.QueuePosition)
}

func TestReserve_NoCopyRecord(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		yearGroupFn: func(ctx context.Context, readerID int64) (int, error) { return 7, nil },
		pickCopyFn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
			return 0, sql.ErrNoRows
		},
	}
	s := New(testDB(t), m)

	_, err := s.Reserve(ctx, 5, 9)
	require.Error(t, err)
	require.Equal(t, ErrBookNotFound, Code(err))
}

func TestReserve_UnknownReader(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		yearGroupFn: func(ctx context.Context, readerID int64) (int, error) { return 0, sql.ErrNoRows },
	}
	s := New(testDB(t), m)

	_, err := s.Reserve(ctx, 999, 9)
	require.Error(t, err)
	require.Equal(t, ErrReaderNotFound, Code(err))
}

func TestReserve_DuplicateMapsToAlreadyReserved(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		yearGroupFn: func(ctx context.Context, readerID int64) (int, error) { return 7, nil },
		pickCopyFn:  func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) { return 1, nil },
		pendingQueueFn: func(ctx context.Context, tx *sql.Tx, bookID, copyID int64) ([]resrepo.QueueEntry, error) {
			return nil, nil
		},
		insertFn: func(ctx context.Context, tx *sql.Tx, bookID, copyID, readerID int64, position, priority int) (int64, error) {
			return 0, &pgconn.PgError{Code: "23505", ConstraintName: "reservations_one_pending_per_reader"}
		},
	}
	s := New(testDB(t), m)

	_, err := s.Reserve(ctx, 5, 9)
	require.Error(t, err)
	require.Equal(t, ErrAlreadyReserved, Code(err))
}

func TestCancel_RenumbersSurvivors(t *testing.T) {
	ctx := context.Background()
	cancelled := int64(0)
	updated := map[int64]int{}
	m := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, reservationID int64) (resrepo.ReservationRow, error) {
			return resrepo.ReservationRow{ID: 50, CopyID: 1, BookID: 9, ReaderID: 4, Status: "PENDING"}, nil
		},
		markCancelledFn: func(ctx context.Context, tx *sql.Tx, reservationID int64) error {
			cancelled = reservationID
			return nil
		},
		pendingQueueFn: func(ctx context.Context, tx *sql.Tx, bookID, copyID int64) ([]resrepo.QueueEntry, error) {
			// the cancelled head is gone, survivors still at 2 and 3
			return []resrepo.QueueEntry{
				{ID: 51, Position: 2, Priority: 2},
				{ID: 52, Position: 3, Priority: 2},
			}, nil
		},
		updatePositionFn: func(ctx context.Context, tx *sql.Tx, reservationID int64, position int) error {
			updated[reservationID] = position
			return nil
		},
		bookTitleFn: func(ctx context.Context, bookID int64) (string, error) { return "Matilda", nil },
	}
	s := New(testDB(t), m)

	title, err := s.Cancel(ctx, 50)
	require.NoError(t, err)
	require.Equal(t, "Matilda", title)
	require.Equal(t, int64(50), cancelled)
	require.Equal(t, map[int64]int{51: 1, 52: 2}, updated)
}

func TestCancel_NotPending(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, reservationID int64) (resrepo.ReservationRow, error) {
			return resrepo.ReservationRow{ID: 50, Status: "FULFILLED"}, nil
		},
	}
	s := New(testDB(t), m)

	_, err := s.Cancel(ctx, 50)
	require.Error(t, err)
	require.Equal(t, ErrNotPending, Code(err))
}

func TestCancel_NotFound(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, reservationID int64) (resrepo.ReservationRow, error) {
			return resrepo.ReservationRow{}, sql.ErrNoRows
		},
	}
	s := New(testDB(t), m)

	_, err := s.Cancel(ctx, 404)
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))
}
