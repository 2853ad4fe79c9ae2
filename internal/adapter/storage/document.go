package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/niksmo/storefront/internal/core/codec"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.DocumentWriter = (*FileDocuments)(nil)

// FileDocuments keeps the product document in a JSON file, the same file
// the store is seeded from.
type FileDocuments struct {
	mu   *sync.Mutex
	path string
}

// NewFileDocuments makes sure the file exists, creating an empty
// document when it does not.
func NewFileDocuments(path string) (FileDocuments, error) {
	const op = "NewFileDocuments"

	d := FileDocuments{mu: new(sync.Mutex), path: path}

	_, err := os.Stat(path)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return FileDocuments{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return FileDocuments{}, fmt.Errorf("%s: %w", op, err)
	}
	empty := domain.Document{Products: []domain.Product{}}
	if err := d.WriteDocument(context.Background(), empty); err != nil {
		return FileDocuments{}, fmt.Errorf("%s: %w", op, err)
	}
	slog.Info("empty document is created", "op", op, "path", path)
	return d, nil
}

func (d FileDocuments) ReadDocument(ctx context.Context) (domain.Document, error) {
	const op = "FileDocuments.ReadDocument"

	if err := ctx.Err(); err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", op, err)
	}

	d.mu.Lock()
	b, err := os.ReadFile(d.path)
	d.mu.Unlock()
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", op, err)
	}

	doc, err := codec.UnmarshalDocument(b)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc, nil
}

// WriteDocument replaces the file contents. Readers never see a partly
// written file.
func (d FileDocuments) WriteDocument(
	ctx context.Context, doc domain.Document,
) error {
	const op = "FileDocuments.WriteDocument"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	b, err := codec.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
