package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFileSearch_Ranking(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	touch(t, root,
		"work/budget.xlsx",
		"Documents/2025/budget.xlsx",
		"Desktop/notes/budget.xlsx",
		".secret/budget.xlsx",
	)
	fs := NewFileSearch(FileSearchConfig{Root: root})

	m, ok, err := fs.Search(context.Background(), "budget", nil)
	if err != nil || !ok {
		t.Fatalf("Search = %v, %v", ok, err)
	}
	if want := filepath.Join(root, "Desktop/notes/budget.xlsx"); m.Path != want {
		t.Errorf("Path = %q, want %q", m.Path, want)
	}
	if m.Location != "Desktop" {
		t.Errorf("Location = %q", m.Location)
	}
}

func TestFileSearch_ShortestPathWithinPriority(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	touch(t, root, "projects/deep/nested/plan.txt", "misc/plan.txt")
	m, ok, err := NewFileSearch(FileSearchConfig{Root: root}).Search(context.Background(), "plan", nil)
	if err != nil || !ok {
		t.Fatalf("Search = %v, %v", ok, err)
	}
	if want := filepath.Join(root, "misc/plan.txt"); m.Path != want {
		t.Errorf("Path = %q, want %q", m.Path, want)
	}
	if m.Location != "misc folder" {
		t.Errorf("Location = %q", m.Location)
	}
}

func TestFileSearch_SimilarBeatsSubstring(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	touch(t, root, "Desktop/my invoice collection from last year.pdf", "invoices.pdf")
	m, ok, err := NewFileSearch(FileSearchConfig{Root: root}).Search(context.Background(), "invoice", nil)
	if err != nil || !ok {
		t.Fatalf("Search = %v, %v", ok, err)
	}
	if want := filepath.Join(root, "invoices.pdf"); m.Path != want {
		t.Errorf("Path = %q, want %q", m.Path, want)
	}
	if m.Location != "home folder" {
		t.Errorf("Location = %q", m.Location)
	}
}

func TestFileSearch_ExtensionFilterAndDepth(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	touch(t, root, "a/b/c/report.pdf", "report.txt")
	fs := NewFileSearch(FileSearchConfig{Root: root, MaxDepth: 2})

	if _, ok, _ := fs.Search(context.Background(), "report", []string{".pdf"}); ok {
		t.Error("found pdf beyond MaxDepth")
	}
	m, ok, _ := fs.Search(context.Background(), "report", []string{".txt"})
	if !ok || m.Path != filepath.Join(root, "report.txt") {
		t.Errorf("txt = %+v, %v", m, ok)
	}
	if _, ok, _ := fs.Search(context.Background(), "", nil); ok {
		t.Error("empty query matched")
	}
}
