package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizgen/internal/models"
	"quizgen/internal/store"
)

// DocumentStore is the subset of the document database the services rely on.
type DocumentStore interface {
	Set(ctx context.Context, collection, id string, doc any) error
	Add(ctx context.Context, collection string, doc any) (string, error)
	Get(ctx context.Context, collection, id string, dst any) error
	Update(ctx context.Context, collection, id string, doc any) error
	Find(ctx context.Context, collection string, filters []store.Filter, limit int) ([]store.Document, error)
}

// DocumentService stores uploaded PDFs on disk and records them in the files collection.
type DocumentService struct {
	store     DocumentStore
	uploadDir string
}

func NewDocumentService(s DocumentStore, uploadDir string) *DocumentService {
	return &DocumentService{store: s, uploadDir: uploadDir}
}

func (s *DocumentService) Create(ctx context.Context, userID, fileID, original string, src io.Reader) (*models.FileRecord, error) {
	if strings.TrimSpace(original) == "" {
		return nil, &UploadError{Reason: "No selected file"}
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(original))
	storedPath := filepath.Join(s.uploadDir, uuid.NewString()+ext)
	out, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	record := &models.FileRecord{
		UserID:     userID,
		FileID:     fileID,
		FileName:   filepath.Base(original),
		FileType:   strings.TrimPrefix(ext, "."),
		StoredPath: storedPath,
		UploadedAt: time.Now().UTC(),
	}
	if _, err := s.store.Add(ctx, store.Files, record); err != nil {
		return nil, fmt.Errorf("record file: %w", err)
	}
	return record, nil
}
