// Package archive packs snapshot directories into zip files for download.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kadirbelkuyu/dbsaver/internal/models"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

// Archive is a finished zip file on disk. Close removes it.
type Archive struct {
	file *os.File
	Size int64
}

func (a *Archive) Read(p []byte) (int, error) {
	return a.file.Read(p)
}

func (a *Archive) Close() error {
	closeErr := a.file.Close()
	if err := os.Remove(a.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return closeErr
}

type Packager struct {
	tempDir string
}

// NewPackager writes archives under tempDir, or the system temp directory
// when tempDir is empty.
func NewPackager(tempDir string) *Packager {
	return &Packager{tempDir: tempDir}
}

// Package zips every file and directory below dir. Paths inside the archive
// are relative to dir, and empty directories are kept as explicit entries.
func (p *Packager) Package(ctx context.Context, dir string) (*Archive, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat snapshot directory: %w", err)
	}
	if !info.IsDir() {
		return nil, models.ErrNotFound
	}

	tempDir := p.tempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare archive directory: %w", err)
	}

	path := filepath.Join(tempDir, "snapshot-"+uuid.NewString()+".zip")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	archive := &Archive{file: file}
	if err := writeZip(ctx, file, dir); err != nil {
		_ = archive.Close()
		return nil, err
	}

	size, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		_ = archive.Close()
		return nil, fmt.Errorf("failed to size archive: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		_ = archive.Close()
		return nil, fmt.Errorf("failed to rewind archive: %w", err)
	}
	archive.Size = size

	return archive, nil
}

func writeZip(ctx context.Context, w io.Writer, root string) error {
	writer := zip.NewWriter(w)

	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if info.IsDir() {
			header.Name += "/"
			header.Method = zip.Store
			_, err = writer.CreateHeader(header)
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		header.Method = zip.Deflate
		entry, err := writer.CreateHeader(header)
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(entry, src)
		return err
	})
	if err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write archive: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}
