// Package notify fans workflow notices out to in-app notifications and
// Telegram. Nothing here ever fails the workflow operation that triggered it.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"shiftlog/internal/domain"
	"shiftlog/internal/repo"
)

const defaultDeliveryTimeout = 30 * time.Second

// Notice is one message for one recipient.
type Notice struct {
	Recipient domain.Employee
	Type      domain.NotificationType
	Title     string
	Message   string
}

// Sender delivers a message to an external chat.
type Sender interface {
	Send(ctx context.Context, chatID, title, message string) error
}

type Options struct {
	// DeliveryTimeout bounds one external delivery including retries.
	DeliveryTimeout time.Duration
	// Concurrency bounds parallel external deliveries per Notify call.
	Concurrency int
	Now         func() time.Time
}

type Dispatcher struct {
	repo   repo.Repo
	sender Sender
	log    zerolog.Logger
	opts   Options
	wg     sync.WaitGroup
}

// NewDispatcher builds a dispatcher. A nil sender disables external delivery.
func NewDispatcher(r repo.Repo, sender Sender, log zerolog.Logger, opts Options) *Dispatcher {
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = defaultDeliveryTimeout
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		repo:   r,
		sender: sender,
		log:    log.With().Str("component", "notify").Logger(),
		opts:   opts,
	}
}

// Notify stores an in-app notification per notice and hands external
// delivery to a background goroutine. A recipient receives at most one
// notice per call.
func (d *Dispatcher) Notify(ctx context.Context, notices ...Notice) {
	ctx = context.WithoutCancel(ctx)
	seen := make(map[string]struct{}, len(notices))
	var deliveries []Notice
	for _, n := range notices {
		if n.Recipient.ID == "" {
			continue
		}
		if _, dup := seen[n.Recipient.ID]; dup {
			continue
		}
		seen[n.Recipient.ID] = struct{}{}
		d.store(ctx, n)
		if d.sender != nil && n.Recipient.TelegramID != "" {
			deliveries = append(deliveries, n)
		}
	}
	if len(deliveries) == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(deliveries)
	}()
}

// Wait blocks until every background delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) store(ctx context.Context, n Notice) {
	rec := domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: n.Recipient.ID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		SentAt:      d.opts.Now().UTC().Format(time.RFC3339),
	}
	if err := d.repo.InsertNotification(ctx, rec); err != nil {
		d.log.Warn().Err(err).
			Str("recipient_id", n.Recipient.ID).
			Str("type", string(n.Type)).
			Msg("store notification failed")
	}
}

func (d *Dispatcher) deliver(deliveries []Notice) {
	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for _, n := range deliveries {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), d.opts.DeliveryTimeout)
			defer cancel()
			if err := d.sender.Send(ctx, n.Recipient.TelegramID, n.Title, n.Message); err != nil {
				d.log.Warn().Err(err).
					Str("recipient_id", n.Recipient.ID).
					Str("type", string(n.Type)).
					Msg("telegram delivery failed")
				return nil
			}
			d.log.Debug().Str("recipient_id", n.Recipient.ID).Str("type", string(n.Type)).Msg("telegram delivered")
			return nil
		})
	}
	_ = g.Wait()
}
