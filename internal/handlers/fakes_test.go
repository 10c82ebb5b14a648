package handlers

import (
	"context"
	"sort"

	"github.com/keepsite/apiserver/internal/store"
	"github.com/keepsite/apiserver/types"
)

// In-memory repositories backing the handler tests. The services
// consume interfaces, so the handlers can be exercised end to end
// without a database.

type fakeUserRepo struct {
	nextID int
	users  map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[string]types.User)}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	user, ok := f.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := f.users[user.Username]; ok {
		return types.User{}, store.ErrDuplicate
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.Username] = user
	return user, nil
}

type fakeNoteRepo struct {
	nextID int
	notes  map[int]types.Note
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{nextID: 1, notes: make(map[int]types.Note)}
}

func (f *fakeNoteRepo) List(ctx context.Context) ([]types.Note, error) {
	notes := make([]types.Note, 0, len(f.notes))
	for _, note := range f.notes {
		notes = append(notes, note)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	return notes, nil
}

func (f *fakeNoteRepo) Get(ctx context.Context, id int) (types.Note, error) {
	note, ok := f.notes[id]
	if !ok {
		return types.Note{}, store.ErrNotFound
	}
	return note, nil
}

func (f *fakeNoteRepo) Create(ctx context.Context, note types.Note) (types.Note, error) {
	note.ID = f.nextID
	f.nextID++
	f.notes[note.ID] = note
	return note, nil
}

func (f *fakeNoteRepo) Update(ctx context.Context, note types.Note) (types.Note, error) {
	if _, ok := f.notes[note.ID]; !ok {
		return types.Note{}, store.ErrNotFound
	}
	f.notes[note.ID] = note
	return note, nil
}

func (f *fakeNoteRepo) Patch(ctx context.Context, id int, title, content *string) (types.Note, error) {
	note, ok := f.notes[id]
	if !ok {
		return types.Note{}, store.ErrNotFound
	}
	if title != nil {
		note.Title = *title
	}
	if content != nil {
		note.Content = *content
	}
	f.notes[id] = note
	return note, nil
}

func (f *fakeNoteRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.notes[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.notes, id)
	return nil
}

type fakePageRepo struct {
	nextID   int
	pages    map[int]types.Page
	reorders [][]int
}

func newFakePageRepo() *fakePageRepo {
	return &fakePageRepo{nextID: 1, pages: make(map[int]types.Page)}
}

func (f *fakePageRepo) sorted() []types.Page {
	pages := make([]types.Page, 0, len(f.pages))
	for _, page := range f.pages {
		pages = append(pages, page)
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Position != pages[j].Position {
			return pages[i].Position < pages[j].Position
		}
		return pages[i].ID < pages[j].ID
	})
	return pages
}

func (f *fakePageRepo) List(ctx context.Context) ([]types.Page, error) {
	return f.sorted(), nil
}

func (f *fakePageRepo) ListPublic(ctx context.Context) ([]types.PublicPage, error) {
	pages := f.sorted()
	public := make([]types.PublicPage, 0, len(pages))
	for _, page := range pages {
		public = append(public, types.PublicPage{Title: page.Title, Content: page.Content})
	}
	return public, nil
}

func (f *fakePageRepo) Get(ctx context.Context, id int) (types.Page, error) {
	page, ok := f.pages[id]
	if !ok {
		return types.Page{}, store.ErrNotFound
	}
	return page, nil
}

func (f *fakePageRepo) GetHomepage(ctx context.Context) (types.Page, error) {
	best := types.Page{}
	found := false
	for _, page := range f.pages {
		if !page.Homepage {
			continue
		}
		if !found || page.ID < best.ID {
			best = page
			found = true
		}
	}
	if !found {
		return types.Page{}, store.ErrNotFound
	}
	return best, nil
}

func (f *fakePageRepo) Create(ctx context.Context, page types.Page) (types.Page, error) {
	page.ID = f.nextID
	f.nextID++
	f.pages[page.ID] = page
	return page, nil
}

func (f *fakePageRepo) Update(ctx context.Context, page types.Page) (types.Page, error) {
	if _, ok := f.pages[page.ID]; !ok {
		return types.Page{}, store.ErrNotFound
	}
	f.pages[page.ID] = page
	return page, nil
}

func (f *fakePageRepo) UpdateFields(ctx context.Context, id int, fields map[string]any) (types.Page, error) {
	page, ok := f.pages[id]
	if !ok {
		return types.Page{}, store.ErrNotFound
	}
	for field, value := range fields {
		switch field {
		case "title":
			page.Title = value.(string)
		case "content":
			page.Content = value.(string)
		case "slug":
			page.Slug = value.(string)
		case "homepage":
			page.Homepage = value.(bool)
		case "position":
			page.Position = value.(int)
		default:
			return types.Page{}, store.ErrUnknownField
		}
	}
	f.pages[id] = page
	return page, nil
}

func (f *fakePageRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.pages[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.pages, id)
	return nil
}

func (f *fakePageRepo) Reorder(ctx context.Context, orderedIDs []int) error {
	f.reorders = append(f.reorders, orderedIDs)
	for i, id := range orderedIDs {
		page, ok := f.pages[id]
		if !ok {
			continue
		}
		page.Position = i
		f.pages[id] = page
	}
	return nil
}
