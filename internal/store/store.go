package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no document exists for a collection/id pair.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned by Set when the id is already taken.
	ErrExists = errors.New("document already exists")
)

// Collection names.
const (
	Questions  = "questions"
	Flashcards = "flashcards"
	Files      = "files"
	ReviewLogs = "review_logs"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Filter is an equality match on a top-level JSON field.
type Filter struct {
	Field string
	Value string
}

// Document is a raw stored document.
type Document struct {
	ID        string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentStore persists JSON documents grouped in named collections.
type DocumentStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Set writes a new document under a caller-generated id.
func (s *DocumentStore) Set(ctx context.Context, collection, id string, doc any) error {
	if id == "" {
		return fmt.Errorf("set %s: empty id", collection)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", collection, err)
	}

	now := s.now().UnixNano()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?);
	`, collection, id, string(data), now, now)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint") {
			return fmt.Errorf("set %s/%s: %w", collection, id, ErrExists)
		}
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Add writes a new document under a store-generated id and returns it.
func (s *DocumentStore) Add(ctx context.Context, collection string, doc any) (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Get decodes the document into dst.
func (s *DocumentStore) Get(ctx context.Context, collection, id string, dst any) error {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = ? AND id = ?;
	`, collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update replaces an existing document.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", collection, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?;
	`, string(data), s.now().UnixNano(), collection, id)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

// Find returns documents matching every filter, oldest first. limit <= 0 means no limit.
func (s *DocumentStore) Find(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error) {
	var (
		query strings.Builder
		args  = []any{collection}
	)
	query.WriteString(`SELECT id, data, created_at, updated_at FROM documents WHERE collection = ?`)
	for _, f := range filters {
		if !fieldPattern.MatchString(f.Field) {
			return nil, fmt.Errorf("invalid filter field %q", f.Field)
		}
		query.WriteString(` AND json_extract(data, ?) = ?`)
		args = append(args, "$."+f.Field, f.Value)
	}
	query.WriteString(` ORDER BY created_at ASC, id ASC`)
	if limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc              Document
			data             string
			created, updated int64
		)
		if err := rows.Scan(&doc.ID, &data, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc.Data = json.RawMessage(data)
		doc.CreatedAt = time.Unix(0, created).UTC()
		doc.UpdatedAt = time.Unix(0, updated).UTC()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return docs, nil
}
