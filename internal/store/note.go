package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/notes/internal/database"
	"github.com/dukerupert/notes/internal/model"
)

var (
	// ErrSlugTaken is returned when a write collides with the UNIQUE slug constraint.
	ErrSlugTaken = errors.New("slug already taken")

	// ErrNotFound is returned when an update targets a note that no longer exists.
	ErrNotFound = errors.New("note not found")
)

type NoteStore struct {
	db *sql.DB
}

func NewNoteStore(db *sql.DB) *NoteStore {
	return &NoteStore{db: db}
}

func scanNote(scanner interface{ Scan(...any) error }) (*model.Note, error) {
	var n model.Note
	err := scanner.Scan(
		&n.ID, &n.Title, &n.Text, &n.Slug, &n.AuthorID, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

const noteCols = `id, title, text, slug, author_id, created_at, updated_at`

func (s *NoteStore) Create(title, text, slug string, authorID int64) (*model.Note, error) {
	result, err := s.db.Exec(
		`INSERT INTO notes (title, text, slug, author_id) VALUES (?, ?, ?, ?)`,
		title, text, slug, authorID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("insert note: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *NoteStore) GetByID(id int64) (*model.Note, error) {
	row := s.db.QueryRow(`SELECT `+noteCols+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// GetBySlug looks a note up regardless of its author. Callers decide visibility.
func (s *NoteStore) GetBySlug(slug string) (*model.Note, error) {
	row := s.db.QueryRow(`SELECT `+noteCols+` FROM notes WHERE slug = ?`, slug)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note by slug: %w", err)
	}
	return n, nil
}

// ListByAuthor returns every note of the author, newest first. There is no limit.
func (s *NoteStore) ListByAuthor(authorID int64) ([]model.Note, error) {
	rows, err := s.db.Query(
		`SELECT `+noteCols+` FROM notes WHERE author_id = ? ORDER BY created_at DESC, id DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// SlugExists reports whether any note other than excludeID uses slug.
// Pass 0 to check against every note.
func (s *NoteStore) SlugExists(slug string, excludeID int64) (bool, error) {
	var exists int
	err := s.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM notes WHERE slug = ? AND id != ?)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists == 1, nil
}

// Update rewrites the editable fields. The author is never changed.
// A missing note yields ErrNotFound.
func (s *NoteStore) Update(id int64, title, text, slug string) (*model.Note, error) {
	result, err := s.db.Exec(
		`UPDATE notes SET title = ?, text = ?, slug = ? WHERE id = ?`,
		title, text, slug, id,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("update note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(id)
}

func (s *NoteStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (s *NoteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return n, nil
}
