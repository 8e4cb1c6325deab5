package invoice

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDoc(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDocumentRepositoryAll(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "invoice.html")
	writeDoc(t, dir, "export.csv")
	// no renderer handles .txt, dotfiles are skipped entirely
	writeDoc(t, dir, "readme.txt")
	writeDoc(t, dir, ".hidden.html")
	if err := os.Mkdir(filepath.Join(dir, "sub.html"), 0755); err != nil {
		t.Fatal(err)
	}

	docs := NewDocumentRepository(dir).All()
	if len(docs) != 2 {
		t.Fatalf("All() = %d documents, want 2: %+v", len(docs), docs)
	}
	// sorted by name
	if docs[0].Name != "export" || docs[1].Name != "invoice" {
		t.Errorf("unexpected order: %q, %q", docs[0].Name, docs[1].Name)
	}
	if docs[1].Ext != ".html" {
		t.Errorf("Ext = %q, want .html", docs[1].Ext)
	}
}

func TestDocumentRepositoryShadowing(t *testing.T) {
	custom := t.TempDir()
	builtin := t.TempDir()
	writeDoc(t, custom, "invoice.csv")
	writeDoc(t, builtin, "invoice.html")
	writeDoc(t, builtin, "letter.html")

	repo := NewDocumentRepository(custom, builtin)
	docs := repo.All()
	if len(docs) != 2 {
		t.Fatalf("All() = %d documents, want 2", len(docs))
	}

	// the custom directory is scanned first and wins on name collisions
	doc, ok := repo.ByName("invoice")
	if !ok {
		t.Fatal("document invoice not found")
	}
	if doc.Ext != ".csv" {
		t.Errorf("invoice resolved to %q, custom upload should shadow the built-in", doc.Path)
	}
	if filepath.Dir(doc.Path) != custom {
		t.Errorf("Path = %q, want file in %q", doc.Path, custom)
	}
}

func TestDocumentRepositoryMissingDir(t *testing.T) {
	repo := NewDocumentRepository(filepath.Join(t.TempDir(), "does-not-exist"))
	if docs := repo.All(); len(docs) != 0 {
		t.Errorf("All() = %d documents, want none for a missing directory", len(docs))
	}
	if _, ok := repo.ByName("invoice"); ok {
		t.Error("ByName should report absence")
	}
}
