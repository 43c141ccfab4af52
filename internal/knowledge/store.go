// internal/knowledge/store.go
package knowledge

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store holds ingested knowledge-base content and serves search hits
// that the citation harvester turns into knowledge citations.
type Store struct {
	db *sql.DB
}

// Base is one knowledge base.
type Base struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Hit is a search result from a knowledge base.
type Hit struct {
	ID        int64
	BaseID    string
	Title     string
	SourceURL string
	Content   string
}

// Open opens (creating if needed) the knowledge database at path. An
// empty path resolves to the default data directory.
func Open(path string) (*Store, error) {
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "knowledge.db")
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func dataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "conduit"), nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bases (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_id TEXT NOT NULL REFERENCES bases(id),
		title TEXT,
		source_url TEXT,
		content TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_base ON items(base_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateBase creates a knowledge base and returns its ID.
func (s *Store) CreateBase(name string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO bases (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListBases returns all knowledge bases ordered by creation time.
func (s *Store) ListBases() ([]Base, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM bases ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bases []Base
	for rows.Next() {
		var b Base
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		bases = append(bases, b)
	}
	return bases, rows.Err()
}

// AddItem stores one ingested item in a base.
func (s *Store) AddItem(baseID string, item Item) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO items (base_id, title, source_url, content) VALUES (?, ?, ?, ?)`,
		baseID, item.Title, item.SourceURL, item.Content,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Search returns up to limit items from a base whose title or content
// matches the query.
func (s *Store) Search(baseID, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + query + "%"
	rows, err := s.db.Query(
		`SELECT id, base_id, title, source_url, content
		 FROM items
		 WHERE base_id = ? AND (title LIKE ? OR content LIKE ?)
		 ORDER BY id LIMIT ?`,
		baseID, pattern, pattern, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanHits(rows)
}

// SearchAll returns up to limit items across every base whose title or
// content matches the query. Used for request-time retrieval where no
// particular base is selected.
func (s *Store) SearchAll(query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + query + "%"
	rows, err := s.db.Query(
		`SELECT id, base_id, title, source_url, content
		 FROM items
		 WHERE title LIKE ? OR content LIKE ?
		 ORDER BY id LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanHits(rows)
}

func scanHits(rows *sql.Rows) ([]Hit, error) {
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var title, sourceURL sql.NullString
		if err := rows.Scan(&h.ID, &h.BaseID, &title, &sourceURL, &h.Content); err != nil {
			return nil, err
		}
		h.Title = title.String
		h.SourceURL = sourceURL.String
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
