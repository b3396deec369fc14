package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"schoollibrary/model"
	notifrepo "schoollibrary/repository/notification"
)

// Event is one reader-facing notification. Exactly one of LoanID or
// ReservationID is set, depending on the kind.
type Event struct {
	Kind          model.NotificationKind `json:"kind"`
	ReaderID      int64                  `json:"reader_id"`
	BookID        int64                  `json:"book_id"`
	LoanID        int64                  `json:"loan_id,omitempty"`
	ReservationID int64                  `json:"reservation_id,omitempty"`
}

// Notifier is fire-and-forget: delivery failure never rolls back the loan or
// reservation change that triggered the event, it is only logged.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

type UnreadRow = notifrepo.UnreadRow

type Service interface {
	Notifier
	Unread(ctx context.Context, readerID int64) ([]UnreadRow, error)
	MarkViewed(ctx context.Context, ids []int64) error
}

type service struct {
	r          notifrepo.Repo
	webhookURL string
	client     *http.Client
	log        *slog.Logger
}

func New(r notifrepo.Repo, webhookURL string, client *http.Client, log *slog.Logger) Service {
	return &service{r: r, webhookURL: webhookURL, client: client, log: log}
}

func (s *service) Notify(ctx context.Context, ev Event) {
	var loanID, resID *int64
	if ev.LoanID != 0 {
		loanID = &ev.LoanID
	}
	if ev.ReservationID != 0 {
		resID = &ev.ReservationID
	}
	if err := s.r.Insert(ctx, string(ev.Kind), ev.ReaderID, ev.BookID, loanID, resID); err != nil {
		s.log.Error("notification insert failed",
			"kind", ev.Kind, "reader_id", ev.ReaderID, "book_id", ev.BookID, "err", err)
	}
	if s.webhookURL == "" {
		return
	}
	go s.post(ev)
}

func (s *service) post(ev Event) {
	b, _ := json.Marshal(ev)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(b))
	if err != nil {
		s.log.Error("notification webhook request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("notification webhook", "kind", ev.Kind, "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.log.Error("notification webhook", "kind", ev.Kind,
			"err", fmt.Errorf("webhook responded %s", resp.Status))
	}
}

func (s *service) Unread(ctx context.Context, readerID int64) ([]UnreadRow, error) {
	return s.r.Unread(ctx, readerID)
}

func (s *service) MarkViewed(ctx context.Context, ids []int64) error {
	return s.r.MarkViewed(ctx, ids)
}
