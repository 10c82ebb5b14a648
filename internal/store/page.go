package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/keepsite/apiserver/types"
)

// pageColumns maps updatable request fields to their column names.
// The SET clause of a partial update is built exclusively from the
// values of this map; request keys never reach the SQL text.
var pageColumns = map[string]string{
	"title":    "title",
	"content":  "content",
	"slug":     "slug",
	"homepage": "homepage",
	"position": "position",
}

// PageRepository handles persistence for CMS pages.
type PageRepository struct {
	db *sql.DB
}

func NewPageRepository(db *sql.DB) *PageRepository {
	return &PageRepository{db: db}
}

func (r *PageRepository) List(ctx context.Context) ([]types.Page, error) {
	const query = `
		SELECT id, title, content, slug, homepage, position
		FROM pages
		ORDER BY position, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages := make([]types.Page, 0)
	for rows.Next() {
		var page types.Page
		if err := rows.Scan(
			&page.ID,
			&page.Title,
			&page.Content,
			&page.Slug,
			&page.Homepage,
			&page.Position,
		); err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

// ListPublic returns the reduced page shape served to visitors.
func (r *PageRepository) ListPublic(ctx context.Context) ([]types.PublicPage, error) {
	const query = `
		SELECT title, content
		FROM pages
		ORDER BY position, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages := make([]types.PublicPage, 0)
	for rows.Next() {
		var page types.PublicPage
		if err := rows.Scan(&page.Title, &page.Content); err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (r *PageRepository) Get(ctx context.Context, id int) (types.Page, error) {
	const query = `
		SELECT id, title, content, slug, homepage, position
		FROM pages
		WHERE id = $1`
	var page types.Page
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&page.ID,
		&page.Title,
		&page.Content,
		&page.Slug,
		&page.Homepage,
		&page.Position,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Page{}, ErrNotFound
		}
		return types.Page{}, err
	}
	return page, nil
}

// GetHomepage returns the page flagged as the site root. When more than
// one page carries the flag, the lowest id wins.
func (r *PageRepository) GetHomepage(ctx context.Context) (types.Page, error) {
	const query = `
		SELECT id, title, content, slug, homepage, position
		FROM pages
		WHERE homepage
		ORDER BY id
		LIMIT 1`
	var page types.Page
	err := r.db.QueryRowContext(ctx, query).Scan(
		&page.ID,
		&page.Title,
		&page.Content,
		&page.Slug,
		&page.Homepage,
		&page.Position,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Page{}, ErrNotFound
		}
		return types.Page{}, err
	}
	return page, nil
}

func (r *PageRepository) Create(ctx context.Context, page types.Page) (types.Page, error) {
	const query = `
		INSERT INTO pages (title, content, slug, homepage, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		page.Title,
		page.Content,
		page.Slug,
		page.Homepage,
		page.Position,
	).Scan(&page.ID); err != nil {
		return types.Page{}, err
	}
	return page, nil
}

// Update replaces the full page row.
func (r *PageRepository) Update(ctx context.Context, page types.Page) (types.Page, error) {
	const query = `
		UPDATE pages
		SET title = $1,
			content = $2,
			slug = $3,
			homepage = $4,
			position = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		page.Title,
		page.Content,
		page.Slug,
		page.Homepage,
		page.Position,
		page.ID,
	)
	if err != nil {
		return types.Page{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Page{}, err
	}
	if affected == 0 {
		return types.Page{}, ErrNotFound
	}
	return page, nil
}

// UpdateFields applies a partial update. Every key in fields must be in
// the updatable-column allow-list; any other key yields ErrUnknownField
// and nothing is written. The updated row is re-fetched so callers
// observe post-mutation state.
func (r *PageRepository) UpdateFields(ctx context.Context, id int, fields map[string]any) (types.Page, error) {
	if len(fields) == 0 {
		return r.Get(ctx, id)
	}

	assignments := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for field, value := range fields {
		column, ok := pageColumns[field]
		if !ok {
			return types.Page{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE pages SET %s WHERE id = $%d",
		strings.Join(assignments, ", "),
		len(args),
	)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return types.Page{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Page{}, err
	}
	if affected == 0 {
		return types.Page{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *PageRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM pages WHERE id = $1`
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

// Reorder assigns position i to the page with the i-th id, all inside a
// single transaction so a partially applied order is never visible.
// Ids absent from the table are no-op updates; pages not named keep
// their prior position.
func (r *PageRepository) Reorder(ctx context.Context, orderedIDs []int) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `UPDATE pages SET position = $1 WHERE id = $2`
	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, query, i, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}
