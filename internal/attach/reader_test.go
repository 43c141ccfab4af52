// internal/attach/reader_test.go
package attach

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileReaderRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello attachment"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewFileReader()
	content, err := r.Read(path)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if content != "hello attachment" {
		t.Errorf("Unexpected content %q", content)
	}
}

func TestFileReaderReadErrors(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(big, make([]byte, MaxFileSize+1), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"missing file", filepath.Join(dir, "nope.txt"), "stat"},
		{"directory", dir, "directory"},
		{"too large", big, "too large"},
	}

	r := NewFileReader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Read(tt.ref)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFileReaderBase64Image(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pixel.jpg")
	if err := os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF}, 0644); err != nil {
		t.Fatal(err)
	}

	r := NewFileReader()
	url, err := r.Base64Image(path)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("Expected jpeg data URL, got %q", url)
	}
}

func TestMimeType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.jpg", "image/jpeg"},
		{"a.JPEG", "image/jpeg"},
		{"a.gif", "image/gif"},
		{"a.webp", "image/webp"},
		{"a.png", "image/png"},
		{"a.bmp", "image/png"},
	}

	for _, tt := range tests {
		if got := mimeType(tt.path); got != tt.want {
			t.Errorf("mimeType(%q): expected %q, got %q", tt.path, tt.want, got)
		}
	}
}
