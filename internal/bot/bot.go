// Package bot runs the poll loop: fetch a batch of updates, feed each message
// through the parser and dispatcher, send the replies, then sleep.
package bot

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ahsanfayaz52/notebot/internal/command"
	"github.com/ahsanfayaz52/notebot/internal/models"
)

type Transport interface {
	FetchUpdates(ctx context.Context, offset int64) ([]models.InboundMessage, int64, error)
	SendReply(ctx context.Context, userID int64, line string) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) []string
	Malformed(err error) []string
}

// temporary is implemented by transport errors that know whether a retry
// could succeed.
type temporary interface {
	Temporary() bool
}

type Bot struct {
	transport  Transport
	dispatcher Dispatcher
	interval   time.Duration
	logger     *zap.Logger

	offset   atomic.Int64
	lastPoll atomic.Int64 // unix nanos
}

func New(t Transport, d Dispatcher, interval time.Duration, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{transport: t, dispatcher: d, interval: interval, logger: logger}
}

// Offset is the update id the next fetch starts from.
func (b *Bot) Offset() int64 {
	return b.offset.Load()
}

// LastPoll is when the last successful fetch returned, zero before the first.
func (b *Bot) LastPoll() time.Time {
	n := b.lastPoll.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Run polls until ctx is cancelled. Errors from a single cycle are logged and
// never stop the loop.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("poll loop started", zap.Duration("interval", b.interval))
	for {
		if err := b.PollOnce(ctx); err != nil && ctx.Err() == nil {
			b.logger.Warn("poll cycle incomplete", zap.Error(err), zap.Int64("offset", b.Offset()))
		}

		select {
		case <-ctx.Done():
			b.logger.Info("poll loop stopped", zap.Int64("offset", b.Offset()))
			return nil
		case <-time.After(b.interval):
		}
	}
}

// PollOnce fetches and processes one batch. The offset moves past the batch
// only once every message in it has been handled; if a reply cannot be
// delivered for a reason that may pass, the offset stops at that message so
// it is fetched again next cycle.
func (b *Bot) PollOnce(ctx context.Context) error {
	msgs, next, err := b.transport.FetchUpdates(ctx, b.Offset())
	if err != nil {
		return err
	}
	b.lastPoll.Store(time.Now().UnixNano())

	for _, msg := range msgs {
		if err := b.handle(ctx, msg); err != nil {
			b.offset.Store(msg.UpdateID)
			return err
		}
	}
	if next > b.Offset() {
		b.offset.Store(next)
	}
	return nil
}

func (b *Bot) handle(ctx context.Context, msg models.InboundMessage) error {
	b.logger.Info("message received",
		zap.Int64("user_id", msg.UserID),
		zap.Int64("update_id", msg.UpdateID),
		zap.String("text", msg.Text),
	)

	cmd, err := command.Parse(msg)
	var lines []string
	switch {
	case err != nil:
		lines = b.dispatcher.Malformed(err)
	case cmd == nil:
		return nil
	default:
		lines = b.dispatcher.Dispatch(ctx, cmd)
	}

	for _, line := range lines {
		if err := b.transport.SendReply(ctx, msg.UserID, line); err != nil {
			b.logger.Error("reply not delivered",
				zap.Int64("user_id", msg.UserID),
				zap.Int64("update_id", msg.UpdateID),
				zap.Error(err),
			)
			if isPermanent(err) {
				continue
			}
			return err
		}
	}
	return nil
}

func isPermanent(err error) bool {
	var t temporary
	return errors.As(err, &t) && !t.Temporary()
}
