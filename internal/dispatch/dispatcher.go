// Package dispatch executes parsed commands against the store and formats
// the replies sent back to the user.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ahsanfayaz52/notebot/internal/command"
	"github.com/ahsanfayaz52/notebot/internal/models"
	"github.com/ahsanfayaz52/notebot/internal/store"
)

const (
	MsgNotUnderstood = "could not understand command"
	MsgFailure       = "something went wrong, please try again later"
)

// Store is the persistence the dispatcher needs. *store.Store satisfies it.
type Store interface {
	RegisterUser(ctx context.Context, userID int64, date time.Time) error
	CreateNote(ctx context.Context, date time.Time, text string, ownerID int64, tagNames []string) (int64, error)
	UpsertTag(ctx context.Context, name, definition string) error
	GetNote(ctx context.Context, noteID int64) (models.Note, error)
	LastNote(ctx context.Context, userID int64) (string, error)
	Notes(ctx context.Context, userID int64) ([]string, error)
	NotesByTag(ctx context.Context, userID int64, tagName string) ([]string, error)
	Tags(ctx context.Context, names []string) ([]models.Tag, error)
	AllTags(ctx context.Context) ([]models.Tag, error)
}

type Dispatcher struct {
	store  Store
	logger *zap.Logger
}

func New(s Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: s, logger: logger}
}

// Dispatch runs cmd and returns the lines to send, one transport call per
// line, each already encoded for the reply channel. A nil result means
// nothing is sent.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) []string {
	results, err := d.execute(ctx, cmd)
	if err != nil {
		d.logger.Error("command failed",
			zap.Stringer("command", cmd.Kind()),
			zap.Error(err),
		)
		return Lines(MsgFailure)
	}
	return Lines(results...)
}

// Malformed returns the reply for a command whose parameters did not parse.
func (d *Dispatcher) Malformed(err error) []string {
	d.logger.Info("malformed command", zap.Error(err))
	return Lines(MsgNotUnderstood)
}

func (d *Dispatcher) execute(ctx context.Context, cmd command.Command) ([]string, error) {
	switch c := cmd.(type) {
	case command.Start:
		return nil, d.store.RegisterUser(ctx, c.UserID, c.Date)

	case command.Write:
		id, err := d.store.CreateNote(ctx, c.Date, c.Text, c.UserID, c.TagNames)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("note %d saved", id)}, nil

	case command.WriteTag:
		return nil, d.store.UpsertTag(ctx, c.TagName, c.Definition)

	case command.ReadLast:
		text, err := d.store.LastNote(ctx, c.UserID)
		if err != nil {
			return nil, err
		}
		return []string{text}, nil

	case command.Read:
		note, err := d.store.GetNote(ctx, c.NoteID)
		if errors.Is(err, store.ErrNotFound) {
			return []string{fmt.Sprintf("note %d not found", c.NoteID)}, nil
		}
		if err != nil {
			return nil, err
		}
		if note.OwnerID != c.UserID {
			return []string{fmt.Sprintf("note %d belongs to another user", c.NoteID)}, nil
		}
		return []string{note.Text}, nil

	case command.ReadAll:
		return d.store.Notes(ctx, c.UserID)

	case command.ReadTag:
		return d.store.NotesByTag(ctx, c.UserID, c.TagName)

	case command.Tag:
		tags, err := d.store.Tags(ctx, c.TagNames)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(tags))
		for _, t := range tags {
			out = append(out, fmt.Sprintf("#%s - %s", t.Name, t.Definition))
		}
		return out, nil

	case command.TagAll:
		tags, err := d.store.AllTags(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(tags))
		for _, t := range tags {
			out = append(out, fmt.Sprintf("#%s-%s", t.Name, t.Definition))
		}
		return out, nil
	}
	return nil, nil
}
