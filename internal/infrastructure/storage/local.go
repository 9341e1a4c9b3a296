package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/errors"
)

// Kinds of processed files written per job
const (
	KindNormalized = "normalized"
	KindLLMInput   = "llm_input"
)

// LocalStorage keeps uploads and job outputs under a base directory:
//
//	<base>/uploads/<job>/<file>
//	<base>/processed/<job>/<kind>/<file>
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// LocalStorageConfig configures local storage
type LocalStorageConfig struct {
	BasePath string
}

// FileMetadata describes a stored upload
type FileMetadata struct {
	ID           string
	OriginalName string
	StoredPath   string
	Size         int64
	Hash         string
	ContentType  string
	CreatedAt    time.Time
}

// NewLocalStorage creates the base directory if needed
func NewLocalStorage(cfg *LocalStorageConfig, logger *slog.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BasePath == "" {
		return nil, apperrors.InvalidInput("storage base path is required")
	}

	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, apperrors.StorageError(err, "failed to create base directory")
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		logger:   logger,
	}, nil
}

// BasePath returns the storage root
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// SaveUpload copies reader into the job's upload directory, hashing the
// content on the way
func (s *LocalStorage) SaveUpload(ctx context.Context, jobID string, filename string, reader io.Reader) (*FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkSegment(jobID); err != nil {
		return nil, err
	}

	uploadDir := filepath.Join(s.basePath, "uploads", jobID)
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, apperrors.StorageError(err, "failed to create upload directory")
	}

	safeName := filepath.Base(filename)
	destPath := filepath.Join(uploadDir, safeName)

	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, apperrors.StorageError(err, "failed to create destination file")
	}
	defer destFile.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(destFile, hash), reader)
	if err != nil {
		return nil, apperrors.StorageError(err, "failed to copy file")
	}

	fileHash := hex.EncodeToString(hash.Sum(nil))

	metadata := &FileMetadata{
		ID:           jobID,
		OriginalName: filename,
		StoredPath:   destPath,
		Size:         size,
		Hash:         fileHash,
		ContentType:  getContentType(filename),
		CreatedAt:    time.Now(),
	}

	s.logger.Info("file uploaded",
		slog.String("job_id", jobID),
		slog.String("filename", safeName),
		slog.Int64("size", size),
		slog.String("hash", fileHash))

	return metadata, nil
}

// GetUpload opens a stored upload
func (s *LocalStorage) GetUpload(ctx context.Context, jobID string, filename string) (io.ReadCloser, error) {
	if err := checkSegment(jobID); err != nil {
		return nil, err
	}

	filePath := filepath.Join(s.basePath, "uploads", jobID, filepath.Base(filename))

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.RecordNotFound("upload")
		}
		return nil, apperrors.StorageError(err, "failed to open file")
	}

	return file, nil
}

// SaveProcessedFile writes a job output and returns its path
func (s *LocalStorage) SaveProcessedFile(ctx context.Context, jobID string, kind string, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, segment := range []string{jobID, kind} {
		if err := checkSegment(segment); err != nil {
			return "", err
		}
	}

	processedDir := filepath.Join(s.basePath, "processed", jobID, kind)
	if err := os.MkdirAll(processedDir, 0755); err != nil {
		return "", apperrors.StorageError(err, "failed to create processed directory")
	}

	filePath := filepath.Join(processedDir, filepath.Base(filename))

	// write then rename so readers never see a partial file
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", apperrors.StorageError(err, "failed to write processed file")
	}
	if err := os.Rename(tmp, filePath); err != nil {
		_ = os.Remove(tmp)
		return "", apperrors.StorageError(err, "failed to move processed file")
	}

	s.logger.Info("processed file saved",
		slog.String("job_id", jobID),
		slog.String("kind", kind),
		slog.String("filename", filepath.Base(filename)),
		slog.Int("size", len(data)))

	return filePath, nil
}

// GetProcessedFile reads a job output
func (s *LocalStorage) GetProcessedFile(ctx context.Context, jobID string, kind string, filename string) ([]byte, error) {
	for _, segment := range []string{jobID, kind} {
		if err := checkSegment(segment); err != nil {
			return nil, err
		}
	}

	filePath := filepath.Join(s.basePath, "processed", jobID, kind, filepath.Base(filename))

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.RecordNotFound("processed file").
				WithDetails("path", filepath.Join(jobID, kind, filepath.Base(filename)))
		}
		return nil, apperrors.StorageError(err, "failed to read processed file")
	}

	return data, nil
}

// ListProcessedFiles lists a job's outputs grouped by kind, names sorted
func (s *LocalStorage) ListProcessedFiles(ctx context.Context, jobID string) (map[string][]string, error) {
	if err := checkSegment(jobID); err != nil {
		return nil, err
	}

	processedDir := filepath.Join(s.basePath, "processed", jobID)
	result := make(map[string][]string)

	kinds, err := os.ReadDir(processedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, apperrors.StorageError(err, "failed to read processed directory")
	}

	for _, kindEntry := range kinds {
		if !kindEntry.IsDir() {
			continue
		}

		kind := kindEntry.Name()
		files, err := os.ReadDir(filepath.Join(processedDir, kind))
		if err != nil {
			continue
		}

		var names []string
		for _, file := range files {
			if !file.IsDir() && !strings.HasSuffix(file.Name(), ".tmp") {
				names = append(names, file.Name())
			}
		}

		if len(names) > 0 {
			sort.Strings(names)
			result[kind] = names
		}
	}

	return result, nil
}

// DeleteJob removes the upload and every output of a job
func (s *LocalStorage) DeleteJob(ctx context.Context, jobID string) error {
	if err := checkSegment(jobID); err != nil {
		return err
	}

	for _, dir := range []string{
		filepath.Join(s.basePath, "uploads", jobID),
		filepath.Join(s.basePath, "processed", jobID),
	} {
		if err := os.RemoveAll(dir); err != nil {
			return apperrors.StorageError(err, "failed to delete job files")
		}
	}

	s.logger.Info("job files deleted", slog.String("job_id", jobID))

	return nil
}

// CleanupOldFiles removes job directories not modified within olderThan
func (s *LocalStorage) CleanupOldFiles(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	for _, area := range []string{"uploads", "processed"} {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		n, err := s.cleanupDirectory(filepath.Join(s.basePath, area), cutoff)
		removed += n
		if err != nil {
			return removed, apperrors.StorageError(err, "failed to clean up "+area)
		}
	}

	s.logger.Info("cleanup completed",
		slog.Duration("older_than", olderThan),
		slog.Int("removed", removed))

	return removed, nil
}

func (s *LocalStorage) cleanupDirectory(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to get file info",
				slog.String("path", dirPath),
				"error", err)
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			s.logger.Warn("failed to remove directory",
				slog.String("path", dirPath),
				"error", err)
			continue
		}
		removed++
		s.logger.Debug("removed old directory",
			slog.String("path", dirPath),
			slog.Time("mod_time", info.ModTime()))
	}

	return removed, nil
}

// checkSegment rejects IDs and kinds that would escape the base directory
func checkSegment(segment string) error {
	if segment == "" || segment == "." || segment == ".." ||
		strings.ContainsAny(segment, `/\`) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid path segment %q", segment))
	}
	return nil
}

// getContentType returns the content type based on file extension
func getContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".jsonl", ".ndjson":
		return "application/x-ndjson"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
