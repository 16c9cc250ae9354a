package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"quizgen/internal/db"
	"quizgen/internal/store"
)

func newTestStore(t *testing.T) *store.DocumentStore {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return store.NewDocumentStore(conn)
}

// flakyStore fails Set/Add calls whose 0-based call number is listed.
type flakyStore struct {
	*store.DocumentStore
	failSet map[int]bool
	failAdd map[int]bool
	sets    int
	adds    int
}

func (f *flakyStore) Set(ctx context.Context, collection, id string, doc any) error {
	n := f.sets
	f.sets++
	if f.failSet[n] {
		return errors.New("disk full")
	}
	return f.DocumentStore.Set(ctx, collection, id, doc)
}

func (f *flakyStore) Add(ctx context.Context, collection string, doc any) (string, error) {
	n := f.adds
	f.adds++
	if f.failAdd[n] {
		return "", errors.New("disk full")
	}
	return f.DocumentStore.Add(ctx, collection, doc)
}

type fakeModel struct {
	reply string
	err   error
	calls int
	last  string
}

func (m *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	m.calls++
	m.last = prompt
	return m.reply, m.err
}

type fakeExtractor struct {
	text string
	err  error
}

func (e fakeExtractor) ExtractText(path string) (string, error) {
	return e.text, e.err
}
