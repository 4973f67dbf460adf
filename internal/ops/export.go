package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/postclip/internal/entry"
	"github.com/hpungsan/postclip/internal/errors"
)

// CopyOutput contains the CSV text for the clipboard.
type CopyOutput struct {
	CSV   string `json:"csv"`
	Count int    `json:"count"`
}

// CopyCSV renders the saved list as CSV text.
func CopyCSV(ctx context.Context, env *Env) (*CopyOutput, error) {
	entries, err := env.Store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NewInvalidRequest(MsgNothingToCopy)
	}
	return &CopyOutput{CSV: entry.ToCSV(entries), Count: len(entries)}, nil
}

// ExportInput contains parameters for the ExportCSV operation.
type ExportInput struct {
	Path string // optional, default: <ExportDir>/support-links-<timestamp>.csv
}

// ExportOutput contains the result of the ExportCSV operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt string `json:"exported_at"`
}

// ExportCSV writes the saved list to a CSV file.
func ExportCSV(ctx context.Context, env *Env, input ExportInput) (*ExportOutput, error) {
	now := env.now()

	entries, err := env.Store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NewInvalidRequest(MsgNothingToExport)
	}

	exportPath := input.Path
	if exportPath == "" {
		if env.ExportDir == "" {
			return nil, errors.NewInvalidRequest("no export directory configured")
		}
		exportPath = filepath.Join(env.ExportDir, entry.ExportFilename(now))
	}

	if err := ValidatePath(exportPath, PathCheckWrite, env.Config, env.ExportDir, ".csv"); err != nil {
		return nil, err
	}

	if err := writeFileAtomic(exportPath, []byte(entry.ToCSV(entries))); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Count:      len(entries),
		ExportedAt: entry.ISOTimestamp(now),
	}, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into
// place, so an existing file survives a failed write.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before rename (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	// On Windows os.Rename fails if the destination exists; the existing file is kept.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows yet (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}
