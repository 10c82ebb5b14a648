package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/keepsite/apiserver/types"
)

// NoteRepository handles persistence for notes.
type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) List(ctx context.Context) ([]types.Note, error) {
	const query = `SELECT id, title, content FROM notes ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]types.Note, 0)
	for rows.Next() {
		var note types.Note
		if err := rows.Scan(&note.ID, &note.Title, &note.Content); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *NoteRepository) Get(ctx context.Context, id int) (types.Note, error) {
	const query = `SELECT id, title, content FROM notes WHERE id = $1`
	var note types.Note
	err := r.db.QueryRowContext(ctx, query, id).Scan(&note.ID, &note.Title, &note.Content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Note{}, ErrNotFound
		}
		return types.Note{}, err
	}
	return note, nil
}

func (r *NoteRepository) Create(ctx context.Context, note types.Note) (types.Note, error) {
	const query = `
		INSERT INTO notes (title, content)
		VALUES ($1, $2)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, note.Title, note.Content).Scan(&note.ID); err != nil {
		return types.Note{}, err
	}
	return note, nil
}

// Update replaces the full note row.
func (r *NoteRepository) Update(ctx context.Context, note types.Note) (types.Note, error) {
	const query = `
		UPDATE notes
		SET title = $1,
			content = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, note.Title, note.Content, note.ID)
	if err != nil {
		return types.Note{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Note{}, err
	}
	if affected == 0 {
		return types.Note{}, ErrNotFound
	}
	return note, nil
}

// Patch updates only the provided fields. Nil pointers leave the
// corresponding column untouched.
func (r *NoteRepository) Patch(ctx context.Context, id int, title, content *string) (types.Note, error) {
	const query = `
		UPDATE notes
		SET title = COALESCE($1, title),
			content = COALESCE($2, content)
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, title, content, id)
	if err != nil {
		return types.Note{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Note{}, err
	}
	if affected == 0 {
		return types.Note{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *NoteRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM notes WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
