package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/keepsite/apiserver/internal/services"
	"github.com/keepsite/apiserver/types"
	"github.com/rs/zerolog"
)

func newNoteTestRouter(t *testing.T) (*chi.Mux, *fakeNoteRepo) {
	t.Helper()

	repo := newFakeNoteRepo()
	router := chi.NewRouter()
	NoteRouter(router, services.NewNoteService(repo), zerolog.Nop())
	return router, repo
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateNoteAndList(t *testing.T) {
	t.Parallel()

	router, _ := newNoteTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/note", `{"title":"A","content":"B"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status: got %d (%s)", rec.Code, rec.Body)
	}
	var created types.Note
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created note: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected a newly assigned id")
	}

	list := httptest.NewRecorder()
	router.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/notes", nil))
	if list.Code != http.StatusOK {
		t.Fatalf("list status: got %d", list.Code)
	}
	var notes []types.Note
	if err := json.NewDecoder(list.Body).Decode(&notes); err != nil {
		t.Fatalf("decode notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected one note, got %d", len(notes))
	}
	if notes[0].ID != created.ID || notes[0].Title != "A" || notes[0].Content != "B" {
		t.Fatalf("unexpected note: %+v", notes[0])
	}
}

func TestUpdateNote(t *testing.T) {
	t.Parallel()

	router, repo := newNoteTestRouter(t)
	note, _ := repo.Create(nil, types.Note{Title: "old", Content: "old"})

	rec := doJSON(t, router, http.MethodPut, "/note/1", `{"title":"new title","content":"new content"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status: got %d (%s)", rec.Code, rec.Body)
	}
	var updated types.Note
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode updated note: %v", err)
	}
	if updated.ID != note.ID || updated.Title != "new title" || updated.Content != "new content" {
		t.Fatalf("unexpected note: %+v", updated)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	t.Parallel()

	router, _ := newNoteTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/note/99", `{"title":"x","content":"y"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("update status: got %d want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPatchNote_PartialFields(t *testing.T) {
	t.Parallel()

	router, repo := newNoteTestRouter(t)
	repo.Create(nil, types.Note{Title: "keep", Content: "original"})

	rec := doJSON(t, router, http.MethodPatch, "/note/1", `{"content":"patched"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status: got %d (%s)", rec.Code, rec.Body)
	}
	var patched types.Note
	if err := json.NewDecoder(rec.Body).Decode(&patched); err != nil {
		t.Fatalf("decode patched note: %v", err)
	}
	if patched.Title != "keep" {
		t.Fatalf("title should be untouched, got %q", patched.Title)
	}
	if patched.Content != "patched" {
		t.Fatalf("content mismatch: got %q", patched.Content)
	}
}

func TestDeleteNote(t *testing.T) {
	t.Parallel()

	router, repo := newNoteTestRouter(t)
	repo.Create(nil, types.Note{Title: "doomed", Content: ""})

	req := httptest.NewRequest(http.MethodDelete, "/note/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d", rec.Code)
	}
	if len(repo.notes) != 0 {
		t.Fatalf("expected note removed, %d left", len(repo.notes))
	}
}

func TestDeleteNote_NotFound(t *testing.T) {
	t.Parallel()

	router, repo := newNoteTestRouter(t)
	repo.Create(nil, types.Note{Title: "survivor", Content: ""})

	req := httptest.NewRequest(http.MethodDelete, "/note/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete status: got %d want %d", rec.Code, http.StatusNotFound)
	}
	if len(repo.notes) != 1 {
		t.Fatalf("table should be unchanged, got %d rows", len(repo.notes))
	}
}

func TestCreateNote_InvalidBody(t *testing.T) {
	t.Parallel()

	router, _ := newNoteTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/note", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("create status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}
