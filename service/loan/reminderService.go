package loan

import (
	"context"

	"schoollibrary/model"
	loanrepo "schoollibrary/repository/loan"
	"schoollibrary/service/notify"
)

// Reminder sends the periodic due-soon and overdue notifications. It is
// driven from a ticker in main, not from request handling.
type Reminder interface {
	SendDueSoon(ctx context.Context) (int64, error)
	SendOverdue(ctx context.Context) (int64, error)
}

type reminder struct {
	r loanrepo.Repo
	n notify.Notifier
}

func NewReminder(r loanrepo.Repo, n notify.Notifier) Reminder {
	return &reminder{r: r, n: n}
}

func (c *reminder) SendDueSoon(ctx context.Context) (int64, error) {
	rows, err := c.r.DueSoon(ctx)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		c.n.Notify(ctx, notify.Event{
			Kind:     model.NoteLoanDueSoon,
			ReaderID: row.ReaderID,
			BookID:   row.BookID,
			LoanID:   row.LoanID,
		})
	}
	return int64(len(rows)), nil
}

func (c *reminder) SendOverdue(ctx context.Context) (int64, error) {
	rows, err := c.r.Overdue(ctx)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		c.n.Notify(ctx, notify.Event{
			Kind:     model.NoteLoanOverdue,
			ReaderID: row.ReaderID,
			BookID:   row.BookID,
			LoanID:   row.LoanID,
		})
	}
	return int64(len(rows)), nil
}
