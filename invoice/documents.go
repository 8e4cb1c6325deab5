package invoice

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// document file extensions with a renderer behind them
var documentExtensions = map[string]bool{
	".html":   true,
	".csv":    true,
	".xlsx":   true,
	".xml":    true,
	".layout": true,
}

// DocumentRepository lists the invoice documents found in a fixed set of
// directories. Directories are scanned in order, the first document with a
// given name wins, so custom uploads shadow built-in documents.
type DocumentRepository struct {
	dirs []string
}

func NewDocumentRepository(dirs ...string) *DocumentRepository {
	return &DocumentRepository{dirs: dirs}
}

// All returns every known document, sorted by name.
func (r *DocumentRepository) All() []Document {
	seen := map[string]bool{}
	var docs []Document

	for _, dir := range r.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // missing directories are not an error
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !documentExtensions[ext] {
				continue
			}
			name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			if seen[name] {
				continue
			}
			seen[name] = true
			docs = append(docs, Document{
				Name: name,
				Path: filepath.Join(dir, e.Name()),
				Ext:  ext,
			})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs
}

// ByName resolves a document by its name. The second return value is false
// when no such document exists.
func (r *DocumentRepository) ByName(name string) (Document, bool) {
	for _, doc := range r.All() {
		if doc.Name == name {
			return doc, true
		}
	}
	return Document{}, false
}
