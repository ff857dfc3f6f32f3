package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     string
	}{
		{name: "lowercase passthrough", location: "docs", want: "docs"},
		{name: "uppercase lowered", location: "MyDocs", want: "mydocs"},
		{name: "spaces to hyphens", location: "my docs", want: "my-docs"},
		{name: "underscores to hyphens", location: "my_docs", want: "my-docs"},
		{name: "mixed", location: " My_Doc Folder ", want: "my-doc-folder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeLocation(tt.location); got != tt.want {
				t.Errorf("NormalizeLocation() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want string
	}{
		{name: "bytes", size: 512, want: "512 B"},
		{name: "kilobytes", size: 2048, want: "2.0 KB"},
		{name: "megabytes", size: 5 * 1024 * 1024, want: "5.0 MB"},
		{name: "gigabytes", size: 3 * 1024 * 1024 * 1024, want: "3.0 GB"},
		{name: "zero", size: 0, want: "0 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFileSize(tt.size); got != tt.want {
				t.Errorf("FormatFileSize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUploadEmptyFileRejected(t *testing.T) {
	s := &Service{}
	err := s.Upload(context.Background(), "docs", "empty.pdf", strings.NewReader(""), 0)
	if err == nil {
		t.Fatal("Upload() expected error for empty file")
	}
	if errors.Is(err, ErrNotConfigured) {
		t.Error("empty file should be rejected before configuration check")
	}
}

func TestUnconfiguredOperations(t *testing.T) {
	s := &Service{}
	ctx := context.Background()

	if s.Configured() {
		t.Error("Configured() = true, want false")
	}

	if err := s.Upload(ctx, "docs", "a.pdf", strings.NewReader("x"), 1); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Upload() error = %v, want ErrNotConfigured", err)
	}
	if _, err := s.List(ctx, "docs"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("List() error = %v, want ErrNotConfigured", err)
	}
	if err := s.Delete(ctx, "docs", "a.pdf"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Delete() error = %v, want ErrNotConfigured", err)
	}
	if _, err := s.Get(ctx, "docs", "a.pdf"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Get() error = %v, want ErrNotConfigured", err)
	}
}

func TestUploadManyPartialFailure(t *testing.T) {
	s := &Service{}
	ctx := context.Background()

	uploaded, results := s.UploadMany(ctx, "docs", []UploadFile{
		{Name: "empty.pdf", Reader: strings.NewReader(""), Size: 0},
		{Name: "also-empty.pdf", Reader: strings.NewReader(""), Size: 0},
	})

	if uploaded != 0 {
		t.Errorf("uploaded = %d, want 0", uploaded)
	}
	if len(results) != 2 {
		t.Fatalf("results count = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Error == "" {
			t.Errorf("result for %s should carry an error", r.Name)
		}
	}
}
