// Package importer bootstraps the note store from a directory tree of
// Markdown files.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"grimoire-editor/internal/contextutil"
	"grimoire-editor/internal/storage"
)

// Importer walks a directory tree and loads every Markdown file it finds
// into the note store.
type Importer struct {
	root  string
	notes storage.NoteStore
}

// New creates an importer rooted at a directory.
func New(root string, notes storage.NoteStore) *Importer {
	return &Importer{root: root, notes: notes}
}

// Run imports every .md file under the root and returns how many notes were
// written. The note id is the slashed relative path without the extension;
// the title derives from the filename. Hidden directories are skipped.
func (im *Importer) Run(ctx context.Context) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	count := 0
	err := filepath.Walk(im.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}

		if info.IsDir() {
			// Skip configuration directories such as .git or .obsidian
			if strings.HasPrefix(info.Name(), ".") && path != im.root {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(path) != ".md" {
			return nil
		}

		relPath, err := filepath.Rel(im.root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", path, err)
		}

		id := strings.TrimSuffix(relPath, ".md")
		note := &storage.NoteRecord{
			ID:      id,
			Title:   TitleFromID(id),
			Content: string(content),
		}
		if err := im.notes.Upsert(ctx, note); err != nil {
			return fmt.Errorf("failed to upsert note %s: %w", id, err)
		}

		logger.DebugContext(ctx, "imported note", "note_id", id)
		count++
		return nil
	})

	return count, err
}

// TitleFromID derives a display title from a note id: the leaf path segment
// with underscores read as spaces.
func TitleFromID(id string) string {
	leaf := id
	if i := strings.LastIndex(id, "/"); i >= 0 {
		leaf = id[i+1:]
	}
	title := strings.TrimSpace(strings.ReplaceAll(leaf, "_", " "))
	if title == "" {
		return "Untitled"
	}
	return title
}
