package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joescharf/bleue/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
// It serves as a local backend for offline use and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer; the TUI issues store calls
	// from background commands, so serialize through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Comments cascade on issue delete
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullString maps "" to NULL.
func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// --- Issues ---

const issueColumns = `id, title, description, status, type, assigned_to, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(sc rowScanner) (*models.Issue, error) {
	issue := &models.Issue{}
	var title, issueType, assignedTo sql.NullString
	var status string

	if err := sc.Scan(&issue.ID, &title, &issue.Description, &status, &issueType, &assignedTo,
		&issue.CreatedAt, &issue.UpdatedAt); err != nil {
		return nil, err
	}

	issue.Title = title.String
	issue.Status = models.IssueStatus(status)
	if issue.Status == "" {
		issue.Status = models.IssueStatusPending
	}
	issue.Workflow = models.Workflow(issueType.String)
	issue.AssignedTo = assignedTo.String
	return issue, nil
}

func (s *SQLiteStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now
	if issue.Status == "" {
		issue.Status = models.IssueStatusPending
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO issues (title, description, status, type, assigned_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullString(issue.Title), issue.Description, string(issue.Status),
		nullString(string(issue.Workflow)), nullString(issue.AssignedTo),
		issue.CreatedAt, issue.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	issue.ID = id
	return nil
}

func (s *SQLiteStore) GetIssue(ctx context.Context, id int64) (*models.Issue, error) {
	issue, err := scanIssue(s.db.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue %d: %w", id, err)
	}
	return issue, nil
}

func (s *SQLiteStore) ListIssues(ctx context.Context) ([]*models.Issue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+issueColumns+` FROM issues ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	issues := []*models.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (s *SQLiteStore) UpdateIssue(ctx context.Context, id int64, patch IssuePatch) (*models.Issue, error) {
	var sets []string
	var args []any

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Workflow != nil {
		sets = append(sets, "type = ?")
		args = append(args, nullString(string(*patch.Workflow)))
	}
	if patch.AssignedTo != nil {
		sets = append(sets, "assigned_to = ?")
		args = append(args, nullString(*patch.AssignedTo))
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE issues SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update issue %d: %w", id, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	return s.GetIssue(ctx, id)
}

func (s *SQLiteStore) DeleteIssue(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM issues WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete issue %d: %w", id, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	return nil
}

// --- Comments ---

func (s *SQLiteStore) CreateComment(ctx context.Context, c *models.Comment) error {
	if c.Raw == nil {
		c.Raw = map[string]any{}
	}
	raw, err := json.Marshal(c.Raw)
	if err != nil {
		return fmt.Errorf("encode comment raw payload: %w", err)
	}
	c.CreatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (issue_id, comment, raw, source, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.IssueID, c.Comment, string(raw), nullString(c.Source), nullString(c.Type), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create comment on issue %d: %w", c.IssueID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create comment on issue %d: %w", c.IssueID, err)
	}
	c.ID = id
	return nil
}

func (s *SQLiteStore) ListComments(ctx context.Context, issueID int64) ([]*models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, issue_id, comment, raw, source, type, created_at
		FROM comments WHERE issue_id = ? ORDER BY created_at DESC, id DESC`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list comments for issue %d: %w", issueID, err)
	}
	defer func() { _ = rows.Close() }()

	comments := []*models.Comment{}
	for rows.Next() {
		c := &models.Comment{}
		var raw string
		var source, commentType sql.NullString
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Comment, &raw, &source, &commentType, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.Source = source.String
		c.Type = commentType.String
		c.Raw = map[string]any{}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &c.Raw); err != nil {
				return nil, fmt.Errorf("decode comment %d raw payload: %w", c.ID, err)
			}
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
