// Package store persists bot users, notes and tags behind database/sql.
// Queries are written in the SQL subset shared by MySQL and SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahsanfayaz52/notebot/internal/models"
)

// ErrNotFound is returned when a requested note does not exist.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: %s: begin: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return fmt.Errorf("store: %s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: %s: commit: %w", op, err)
	}
	return nil
}

// RegisterUser records the user the first time they are seen. Calling it
// again for a known id is a no-op.
func (s *Store) RegisterUser(ctx context.Context, userID int64, date time.Time) error {
	return s.withTx(ctx, "register user", func(tx *sql.Tx) error {
		return ensureUser(ctx, tx, userID, date)
	})
}

func ensureUser(ctx context.Context, tx *sql.Tx, userID int64, date time.Time) error {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id = ?", userID).Scan(&count); err != nil {
		return err
	}
	if count != 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, "INSERT INTO users (id, first_seen_at) VALUES (?, ?)", userID, date)
	return err
}

// CreateNote stores a note, makes it the owner's last note and links it to
// every named tag that exists. Unknown tag names are skipped. An owner that
// never sent /start is registered on the way.
func (s *Store) CreateNote(ctx context.Context, date time.Time, text string, ownerID int64, tagNames []string) (int64, error) {
	var noteID int64
	err := s.withTx(ctx, "create note", func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, ownerID, date); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "INSERT INTO notes (date, text, user_id) VALUES (?, ?, ?)", date, text, ownerID)
		if err != nil {
			return err
		}
		if noteID, err = res.LastInsertId(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "UPDATE users SET last_note_id = ? WHERE id = ?", noteID, ownerID); err != nil {
			return err
		}

		tagIDs, err := tagIDsByName(ctx, tx, tagNames)
		if err != nil {
			return err
		}
		for _, tagID := range tagIDs {
			if _, err := tx.ExecContext(ctx, "INSERT INTO note_tags (note_id, tag_id) VALUES (?, ?)", noteID, tagID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return noteID, nil
}

// tagIDsByName resolves names to distinct tag ids, keeping first-seen order.
func tagIDsByName(ctx context.Context, tx *sql.Tx, names []string) ([]int64, error) {
	seen := make(map[int64]bool, len(names))
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		var id int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ? ORDER BY id LIMIT 1", name).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// UpsertTag overwrites the definition of an existing tag or creates it.
func (s *Store) UpsertTag(ctx context.Context, name, definition string) error {
	return s.withTx(ctx, "upsert tag", func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ? ORDER BY id LIMIT 1", name).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, "INSERT INTO tags (name, definition) VALUES (?, ?)", name, definition)
			return err
		case err != nil:
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE tags SET definition = ? WHERE id = ?", definition, id)
		return err
	})
}

// GetNote returns the id, text and owner of a note, or ErrNotFound.
func (s *Store) GetNote(ctx context.Context, noteID int64) (models.Note, error) {
	n := models.Note{ID: noteID}
	err := s.db.QueryRowContext(ctx, "SELECT text, user_id FROM notes WHERE id = ?", noteID).Scan(&n.Text, &n.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("store: get note %d: %w", noteID, err)
	}
	return n, nil
}

// LastNote returns the text of the user's most recently written note, or ""
// when there is none.
func (s *Store) LastNote(ctx context.Context, userID int64) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `
		SELECT notes.text FROM notes
		JOIN users ON users.last_note_id = notes.id
		WHERE users.id = ?`, userID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: last note: %w", err)
	}
	return text, nil
}

// Notes returns the text of every note owned by the user, in the order the
// database yields them.
func (s *Store) Notes(ctx context.Context, userID int64) ([]string, error) {
	texts, err := s.queryTexts(ctx, "SELECT text FROM notes WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("store: notes: %w", err)
	}
	return texts, nil
}

// NotesByTag returns the user's notes linked to the named tag.
func (s *Store) NotesByTag(ctx context.Context, userID int64, tagName string) ([]string, error) {
	texts, err := s.queryTexts(ctx, `
		SELECT notes.text FROM notes
		JOIN note_tags ON notes.id = note_tags.note_id
		JOIN tags ON tags.id = note_tags.tag_id
		WHERE notes.user_id = ? AND tags.name = ?`, userID, tagName)
	if err != nil {
		return nil, fmt.Errorf("store: notes by tag: %w", err)
	}
	return texts, nil
}

func (s *Store) queryTexts(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

// Tags looks up each name in order. Names without a tag are skipped.
func (s *Store) Tags(ctx context.Context, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var t models.Tag
		err := s.db.QueryRowContext(ctx,
			"SELECT id, name, definition FROM tags WHERE name = ? ORDER BY id LIMIT 1", name).
			Scan(&t.ID, &t.Name, &t.Definition)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store: tag %q: %w", name, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func (s *Store) AllTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, definition FROM tags ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: all tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Definition); err != nil {
			return nil, fmt.Errorf("store: all tags: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: all tags: %w", err)
	}
	return tags, nil
}

// DeleteNote removes a note together with its tag links and clears any
// last-note reference to it.
func (s *Store) DeleteNote(ctx context.Context, noteID int64) error {
	return s.withTx(ctx, "delete note", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE users SET last_note_id = NULL WHERE last_note_id = ?", noteID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM note_tags WHERE note_id = ?", noteID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", noteID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// User returns the stored record for userID, or ErrNotFound.
func (s *Store) User(ctx context.Context, userID int64) (models.User, error) {
	u := models.User{ID: userID}
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT last_note_id FROM users WHERE id = ?", userID).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("store: user %d: %w", userID, err)
	}
	if last.Valid {
		u.LastNoteID = &last.Int64
	}
	return u, nil
}
