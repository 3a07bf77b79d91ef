package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
	gitpattern "github.com/go-git/go-git/v5/plumbing/format/gitignore"
	gitignore "github.com/monochromegane/go-gitignore"
	"go.uber.org/zap"
)

// defaultExcludes is always applied, with or without a .gitignore.
var defaultExcludes = []string{
	"node_modules",
	"bower_components",
	"dist",
	"build",
	"out",
	"coverage",
	".next",
	".nuxt",
	".cache",
	".parcel-cache",
	".turbo",
	"__pycache__",
	".pytest_cache",
	".mypy_cache",
	".venv",
	"venv",
	".idea",
	".vscode",
	".DS_Store",
	"Thumbs.db",
	"*.log",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"*.min.js",
	"*.min.css",
	"*.map",
}

// defaultAllowed wins over both the exclusion list and .gitignore.
var defaultAllowed = []string{
	".gitignore",
	".env.example",
	".editorconfig",
	".dockerignore",
}

// IgnoreRules is the compiled ignore predicate for one scan root.
// Precedence: anything inside .git is excluded, then the allow-list
// includes, then the static exclusions and .gitignore exclude.
//
// The built-in list holds only slash-free names and globs and goes through
// go-gitignore. User excludes and the project .gitignore may contain
// anchored or ** patterns, so they go through go-git's matcher, which
// follows git's anchoring rules.
type IgnoreRules struct {
	root     string
	allow    []string
	builtin  gitignore.IgnoreMatcher
	excludes gitpattern.Matcher
	project  gitpattern.Matcher
}

// LoadIgnoreRules builds the ruleset for root. A missing or unreadable
// .gitignore is not an error; it only means fewer rules.
func LoadIgnoreRules(root string, excludes, allow []string, logger *zap.Logger) *IgnoreRules {
	if logger == nil {
		logger = zap.NewNop()
	}
	root = filepath.Clean(root)

	rules := &IgnoreRules{
		root:     root,
		allow:    append(append([]string{}, defaultAllowed...), allow...),
		builtin:  gitignore.NewGitIgnoreFromReader(root, strings.NewReader(strings.Join(defaultExcludes, "\n"))),
		excludes: gitpattern.NewMatcher(parsePatterns(excludes)),
	}

	gitIgnorePath := filepath.Join(root, ".gitignore")
	f, err := os.Open(gitIgnorePath)
	if err == nil {
		var patterns []gitpattern.Pattern
		patterns, err = readPatterns(f)
		_ = f.Close()
		if err == nil {
			rules.project = gitpattern.NewMatcher(patterns)
			logger.Debug("Loaded .gitignore", zap.String("file", gitIgnorePath), zap.Int("patterns", len(patterns)))
		}
	}
	switch {
	case err == nil:
	case os.IsNotExist(err):
		logger.Debug("No .gitignore found", zap.String("root", root))
	default:
		logger.Warn("Could not read .gitignore, continuing without it", zap.String("file", gitIgnorePath), zap.Error(err))
	}

	for _, p := range rules.allow {
		if _, err := doublestar.Match(p, ""); err != nil {
			logger.Warn("Invalid allow-list pattern", zap.String("pattern", p), zap.Error(err))
		}
	}
	return rules
}

// Ignored reports whether the entry at rel (relative to the root, forward
// slashes) should be left out of the scan.
func (r *IgnoreRules) Ignored(rel string, isDir bool) bool {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}
	if inGitDir(rel) {
		return true
	}
	if r.Allowed(rel) {
		return false
	}
	abs := filepath.Join(r.root, filepath.FromSlash(rel))
	if r.builtin != nil && r.builtin.Match(abs, isDir) {
		return true
	}
	segments := strings.Split(rel, "/")
	if r.excludes != nil && r.excludes.Match(segments, isDir) {
		return true
	}
	return r.project != nil && r.project.Match(segments, isDir)
}

// readPatterns parses gitignore lines, skipping blanks and comments.
func readPatterns(r io.Reader) ([]gitpattern.Pattern, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return parsePatterns(lines), nil
}

func parsePatterns(lines []string) []gitpattern.Pattern {
	var ps []gitpattern.Pattern
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		// Patterns are relative to the scan root.
		ps = append(ps, gitpattern.ParsePattern(line, nil))
	}
	return ps
}

// Allowed reports whether rel matches the allow-list, by base name or by
// full relative path.
func (r *IgnoreRules) Allowed(rel string) bool {
	base := path.Base(rel)
	for _, p := range r.allow {
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func inGitDir(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".git" {
			return true
		}
	}
	return false
}

// String describes the ruleset for debug output.
func (r *IgnoreRules) String() string {
	return fmt.Sprintf("IgnoreRules{root=%s allow=%d gitignore=%t}", r.root, len(r.allow), r.project != nil)
}
