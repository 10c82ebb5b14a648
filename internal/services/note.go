package services

import (
	"context"

	"github.com/keepsite/apiserver/types"
)

// NoteRepository defines persistence operations for notes.
type NoteRepository interface {
	List(ctx context.Context) ([]types.Note, error)
	Get(ctx context.Context, id int) (types.Note, error)
	Create(ctx context.Context, note types.Note) (types.Note, error)
	Update(ctx context.Context, note types.Note) (types.Note, error)
	Patch(ctx context.Context, id int, title, content *string) (types.Note, error)
	Delete(ctx context.Context, id int) error
}

// NoteService encapsulates note use-cases.
type NoteService struct {
	repo NoteRepository
}

func NewNoteService(repo NoteRepository) *NoteService {
	return &NoteService{repo: repo}
}

func (s *NoteService) List(ctx context.Context) ([]types.Note, error) {
	return s.repo.List(ctx)
}

func (s *NoteService) Get(ctx context.Context, id int) (types.Note, error) {
	return s.repo.Get(ctx, id)
}

func (s *NoteService) Create(ctx context.Context, note types.Note) (types.Note, error) {
	return s.repo.Create(ctx, note)
}

func (s *NoteService) Update(ctx context.Context, note types.Note) (types.Note, error) {
	return s.repo.Update(ctx, note)
}

func (s *NoteService) Patch(ctx context.Context, id int, title, content *string) (types.Note, error) {
	return s.repo.Patch(ctx, id, title, content)
}

func (s *NoteService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
