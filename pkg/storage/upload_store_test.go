package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUploadStoreSaveRenamesFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewUploadStore(dir)
	if err != nil {
		t.Fatalf("new upload store: %v", err)
	}

	name, err := s.Save("cover photo.PNG", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(name, ".png") {
		t.Fatalf("expected lowercased original extension, got %q", name)
	}
	if strings.Contains(name, "cover") {
		t.Fatalf("original name should not survive, got %q", name)
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestUploadStoreUniqueNames(t *testing.T) {
	s, err := NewUploadStore(t.TempDir())
	if err != nil {
		t.Fatalf("new upload store: %v", err)
	}
	first, err := s.Save("a.jpg", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := s.Save("a.jpg", strings.NewReader("y"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first == second {
		t.Fatalf("expected unique generated names")
	}
}

func TestUploadStoreRequiresBasePath(t *testing.T) {
	if _, err := NewUploadStore("  "); err == nil {
		t.Fatalf("expected error for blank base path")
	}
}

func TestUploadStoreExtensionlessFile(t *testing.T) {
	s, err := NewUploadStore(t.TempDir())
	if err != nil {
		t.Fatalf("new upload store: %v", err)
	}
	name, err := s.Save("README", strings.NewReader("text"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if strings.Contains(name, ".") {
		t.Fatalf("expected no extension, got %q", name)
	}
}
