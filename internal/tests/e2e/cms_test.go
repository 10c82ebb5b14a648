//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/keepsite/apiserver/config"
	"github.com/keepsite/apiserver/internal/db"
	"github.com/keepsite/apiserver/internal/server"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

type tokenResponse struct {
	Token string `json:"token"`
}

type pageResponse struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Slug     string `json:"slug"`
	Homepage bool   `json:"homepage"`
	Position int    `json:"position"`
}

type noteResponse struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func TestAdminPageLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("admin_%d", time.Now().UnixNano())
	password := "testpass123!"

	registerUser(t, baseURL, username, password)
	token := loginUser(t, baseURL, username, password)

	// The admin surface rejects anonymous and garbage tokens differently.
	if status := request(t, http.MethodGet, baseURL+"/admin/pages", "", nil, nil); status != http.StatusForbidden {
		t.Fatalf("anonymous admin access: got %d want %d", status, http.StatusForbidden)
	}
	if status := request(t, http.MethodGet, baseURL+"/admin/pages", "not-a-token", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("bad-token admin access: got %d want %d", status, http.StatusUnauthorized)
	}

	var created pageResponse
	status := request(t, http.MethodPost, baseURL+"/admin/page", token,
		map[string]any{"title": "Home", "content": "welcome", "slug": "home", "homepage": true, "position": 0},
		&created)
	if status != http.StatusCreated {
		t.Fatalf("create page status: got %d", status)
	}
	if created.ID == 0 || created.Title != "Home" {
		t.Fatalf("unexpected created page: %+v", created)
	}

	var second pageResponse
	status = request(t, http.MethodPost, baseURL+"/admin/page", token,
		map[string]any{"title": "About", "content": "about us", "slug": "about", "position": 1},
		&second)
	if status != http.StatusCreated {
		t.Fatalf("create second page status: got %d", status)
	}

	var patched pageResponse
	status = request(t, http.MethodPatch, fmt.Sprintf("%s/admin/page/%d", baseURL, second.ID), token,
		map[string]any{"title": "About Us"}, &patched)
	if status != http.StatusOK {
		t.Fatalf("patch page status: got %d", status)
	}
	if patched.Title != "About Us" || patched.Content != "about us" {
		t.Fatalf("patch touched the wrong fields: %+v", patched)
	}

	status = request(t, http.MethodPatch, fmt.Sprintf("%s/admin/page/%d", baseURL, second.ID), token,
		map[string]any{"owner": "mallory"}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("unknown patch field status: got %d want %d", status, http.StatusBadRequest)
	}

	status = request(t, http.MethodPost, baseURL+"/admin/pages/reorder", token,
		map[string]any{"order": []int{second.ID, created.ID}}, nil)
	if status != http.StatusOK {
		t.Fatalf("reorder status: got %d", status)
	}

	var pages []pageResponse
	status = request(t, http.MethodGet, baseURL+"/admin/pages", token, nil, &pages)
	if status != http.StatusOK {
		t.Fatalf("list pages status: got %d", status)
	}
	if len(pages) < 2 || pages[0].ID != second.ID || pages[1].ID != created.ID {
		t.Fatalf("unexpected order after reorder: %+v", pages)
	}

	var homepage struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	status = request(t, http.MethodGet, baseURL+"/homepage", "", nil, &homepage)
	if status != http.StatusOK {
		t.Fatalf("homepage status: got %d", status)
	}
	if homepage.Title != "Home" || homepage.Content != "welcome" {
		t.Fatalf("unexpected homepage: %+v", homepage)
	}

	for _, id := range []int{created.ID, second.ID} {
		if status := request(t, http.MethodDelete, fmt.Sprintf("%s/admin/page/%d", baseURL, id), token, nil, nil); status != http.StatusOK {
			t.Fatalf("delete page %d status: got %d", id, status)
		}
	}
	if status := request(t, http.MethodGet, fmt.Sprintf("%s/admin/page/%d", baseURL, created.ID), token, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected deleted page to be missing, got %d", status)
	}
}

func TestNoteLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)

	var created noteResponse
	status := request(t, http.MethodPost, baseURL+"/note", "",
		map[string]any{"title": "groceries", "content": "milk"}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create note status: got %d", status)
	}

	var patchedNote noteResponse
	status = request(t, http.MethodPatch, fmt.Sprintf("%s/note/%d", baseURL, created.ID), "",
		map[string]any{"content": "milk, eggs"}, &patchedNote)
	if status != http.StatusOK {
		t.Fatalf("patch note status: got %d", status)
	}
	if patchedNote.Title != "groceries" || patchedNote.Content != "milk, eggs" {
		t.Fatalf("unexpected patched note: %+v", patchedNote)
	}

	if status := request(t, http.MethodDelete, fmt.Sprintf("%s/note/%d", baseURL, created.ID), "", nil, nil); status != http.StatusOK {
		t.Fatalf("delete note status: got %d", status)
	}
	if status := request(t, http.MethodDelete, fmt.Sprintf("%s/note/%d", baseURL, created.ID), "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("second delete status: got %d want %d", status, http.StatusNotFound)
	}
}

func registerUser(t *testing.T, baseURL, username, password string) {
	t.Helper()

	var registered struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	}
	status := request(t, http.MethodPost, baseURL+"/register", "",
		map[string]string{"username": username, "password": password}, &registered)
	if status != http.StatusCreated {
		t.Fatalf("register status: got %d", status)
	}
	if registered.ID == 0 || registered.Username != username {
		t.Fatalf("unexpected register response: %+v", registered)
	}
}

func loginUser(t *testing.T, baseURL, username, password string) string {
	t.Helper()

	var parsed tokenResponse
	status := request(t, http.MethodPost, baseURL+"/login", "",
		map[string]string{"username": username, "password": password}, &parsed)
	if status != http.StatusOK {
		t.Fatalf("login status: got %d", status)
	}
	if parsed.Token == "" {
		t.Fatalf("missing token in login response")
	}
	return parsed.Token
}

// request performs a JSON round-trip and decodes the response into out
// when it is non-nil. An empty token leaves the request anonymous.
func request(t *testing.T, method, url, token string, payload, out any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, url, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.BuildPostgresURL(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New("file://"+migrationsPath, db.BuildPostgresURL(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "keepsite")
	_ = os.Setenv("DB_PASSWORD", "keepsite")
	_ = os.Setenv("DB_NAME", "keepsite")
	_ = os.Setenv("DB_USE_SSL", "false")

	cfg := config.LoadConfig()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
