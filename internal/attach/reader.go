// internal/attach/reader.go
package attach

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the maximum attachment size we'll load (1MB)
const MaxFileSize = 1024 * 1024

// Reader resolves attachment references to their content. Implementations
// own all I/O concerns; callers treat failures as fatal and do not retry.
type Reader interface {
	// Read returns the text content of an attachment.
	Read(ref string) (string, error)

	// Base64Image returns the attachment encoded as a data URL.
	Base64Image(ref string) (string, error)
}

// FileReader is the filesystem-backed Reader.
type FileReader struct {
	maxSize int64
}

func NewFileReader() *FileReader {
	return &FileReader{maxSize: MaxFileSize}
}

func (r *FileReader) Read(ref string) (string, error) {
	absPath, err := filepath.Abs(ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", absPath)
	}

	if info.Size() > r.maxSize {
		return "", fmt.Errorf("file too large (%d bytes, max %d)", info.Size(), r.maxSize)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return string(content), nil
}

func (r *FileReader) Base64Image(ref string) (string, error) {
	absPath, err := filepath.Abs(ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat image: %w", err)
	}

	if info.Size() > r.maxSize {
		return "", fmt.Errorf("image too large (%d bytes, max %d)", info.Size(), r.maxSize)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType(absPath), base64.StdEncoding.EncodeToString(data)), nil
}

// mimeType maps an image extension to its MIME type, defaulting to PNG.
func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
