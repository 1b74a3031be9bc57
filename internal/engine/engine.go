package engine

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shiftlog/internal/activity"
	"shiftlog/internal/history"
	"shiftlog/internal/notify"
	"shiftlog/internal/repo"
)

// Notifier receives notices after a transaction commits. It must not fail or
// block the caller for external I/O.
type Notifier interface {
	Notify(ctx context.Context, notices ...notify.Notice)
}

// ActivityLogger is the best-effort audit sink.
type ActivityLogger interface {
	Log(ctx context.Context, e activity.Entry)
}

// Engine is the feature review workflow. Every mutation checks its guards,
// writes the entity and its history in one transaction, then records
// activity and sends notifications once the transaction has committed.
type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	History  history.Recorder
	Activity ActivityLogger
	Notifier Notifier
	Log      zerolog.Logger
	Now      func() time.Time
}

func New(db *sql.DB, notifier Notifier, log zerolog.Logger) Engine {
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Activity: activity.Writer{DB: db, Logger: log},
		Notifier: notifier,
		Log:      log,
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) recorder() history.Recorder {
	r := e.History
	if r.Now == nil {
		r.Now = e.now
	}
	return r
}

func (e Engine) logActivity(ctx context.Context, entry activity.Entry) {
	if e.Activity == nil {
		return
	}
	e.Activity.Log(ctx, entry)
}

func (e Engine) notify(ctx context.Context, notices []notify.Notice) {
	if e.Notifier == nil || len(notices) == 0 {
		return
	}
	e.Notifier.Notify(ctx, notices...)
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func requireText(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", ValidationError{Field: field, Message: "must not be empty"}
	}
	return v, nil
}
