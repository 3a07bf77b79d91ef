package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

// isGitURL checks if the input string looks like a Git repository URL.
// A local folder named "x.git" is not one.
func isGitURL(input string) bool {
	return strings.HasPrefix(input, "git@") ||
		strings.HasSuffix(input, ".git") && strings.Contains(input, "://")
}

// cloneGitRepo shallow-clones url into a temporary directory and returns
// its path. The caller removes it.
func cloneGitRepo(url string, logger *zap.Logger) (string, error) {
	tempDir, err := os.MkdirTemp("", "lens-git-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}

	logger.Info("Cloning Git repository", zap.String("url", url), zap.String("dir", tempDir))
	_, err = git.PlainClone(tempDir, false, &git.CloneOptions{
		URL:           url,
		Depth:         1,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
	})
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return "", fmt.Errorf("failed to clone repository '%s': %w", url, err)
	}
	return tempDir, nil
}

// resolveFolder turns a command argument into a local folder. For Git URLs
// the returned cleanup removes the clone.
func resolveFolder(arg string, logger *zap.Logger) (string, func(), error) {
	if !isGitURL(arg) {
		return arg, func() {}, nil
	}
	dir, err := cloneGitRepo(arg, logger)
	if err != nil {
		return "", func() {}, err
	}
	return dir, func() {
		logger.Debug("Cleaning up temporary directory", zap.String("dir", dir))
		_ = os.RemoveAll(dir)
	}, nil
}
