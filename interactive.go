package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
)

// errPickCancelled reports that the user closed a picker without choosing.
var errPickCancelled = errors.New("selection cancelled")

// pickFolder lets the user choose a directory below start. It returns the
// absolute path, or errPickCancelled.
func pickFolder(start string) (string, error) {
	absStart, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("error resolving path %s: %w", start, err)
	}

	candidates := []string{absStart}
	err = filepath.WalkDir(absStart, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() || path == absStart {
			return nil
		}
		if inGitDir(filepath.ToSlash(path)) || d.Name() == "node_modules" {
			return fs.SkipDir
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("error scanning for directories: %w", err)
	}

	idx, err := fuzzyfinder.Find(
		candidates,
		func(i int) string {
			rel, relErr := filepath.Rel(absStart, candidates[i])
			if relErr != nil {
				return candidates[i]
			}
			return rel
		},
		fuzzyfinder.WithPromptString("folder> "),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return "", errPickCancelled
		}
		return "", fmt.Errorf("fuzzy finder error: %w", err)
	}
	return candidates[idx], nil
}

// pickFiles lets the user multi-select text files from a scan. It returns
// the selected absolute paths, or errPickCancelled.
func pickFiles(records []FileRecord, root string) (map[string]bool, error) {
	var candidates []FileRecord
	for _, r := range records {
		if r.IsText() && r.FileKind == KindRegular {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no text files found to select from")
	}

	idx, err := fuzzyfinder.FindMulti(
		candidates,
		func(i int) string {
			return relOrPath(root, candidates[i].Path)
		},
		fuzzyfinder.WithPromptString("files> "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return "Press Tab to multi-select, Enter to confirm."
			}
			r := candidates[i]
			return fmt.Sprintf("Path: %s\nSection: %s\nTokens: %d\nSize: %d bytes\n\n%s",
				relOrPath(root, r.Path), r.SectionID, r.TokenCount, r.Size, r.Content)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, errPickCancelled
		}
		return nil, fmt.Errorf("fuzzy finder error: %w", err)
	}

	selected := make(map[string]bool, len(idx))
	for _, i := range idx {
		selected[candidates[i].Path] = true
	}
	return selected, nil
}
