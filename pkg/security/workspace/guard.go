// Package workspace keeps directive writes inside the repository working
// copy. It rejects paths that escape the working copy, paths that target
// git metadata, and paths filtered out by operator glob patterns.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard enforces working-copy boundaries on directive paths.
type Guard struct {
	workspaceDir string          // Absolute, symlink-evaluated root
	patterns     *PatternMatcher // Operator allow/deny rules
}

// NewGuard creates a guard rooted at workspaceDir. allowed and denied are
// glob patterns matched against slash-separated relative paths. Denied
// patterns take precedence; an empty allow list allows everything.
func NewGuard(workspaceDir string, allowed, denied []string) (*Guard, error) {
	if workspaceDir == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}

	absPath, err := filepath.Abs(workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory: %w", err)
	}

	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate workspace directory symlinks: %w", err)
	}

	patterns, err := NewPatternMatcher(allowed, denied)
	if err != nil {
		return nil, err
	}

	return &Guard{
		workspaceDir: evalPath,
		patterns:     patterns,
	}, nil
}

// WorkspaceDir returns the absolute path of the working copy.
func (g *Guard) WorkspaceDir() string {
	return g.workspaceDir
}

// Resolve validates a relative directive path and returns its absolute
// location inside the working copy.
//
// Returns an error if:
// - The path is empty or absolute
// - The cleaned path leaves the working copy
// - The path points into the .git directory
// - The path is rejected by the pattern rules
func (g *Guard) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "~") {
		return "", fmt.Errorf("path '%s' must be relative to the repository", path)
	}

	cleanPath := filepath.Clean(filepath.FromSlash(path))
	if cleanPath == "." {
		return "", fmt.Errorf("path '%s' does not name a file", path)
	}

	absPath := filepath.Join(g.workspaceDir, cleanPath)
	if !g.IsWithinWorkspace(absPath) || absPath == g.workspaceDir {
		return "", fmt.Errorf("path '%s' is outside workspace boundaries", path)
	}

	relPath := filepath.ToSlash(cleanPath)
	if relPath == ".git" || strings.HasPrefix(relPath, ".git/") {
		return "", fmt.Errorf("path '%s' targets repository metadata", path)
	}

	if !g.patterns.IsAllowed(relPath) {
		return "", fmt.Errorf("path '%s' is not allowed by path patterns", path)
	}

	return absPath, nil
}

// IsWithinWorkspace checks if an absolute path is the working copy or one
// of its children after symlink evaluation.
func (g *Guard) IsWithinWorkspace(absPath string) bool {
	evalPath := resolveSymlinks(absPath)

	return evalPath == g.workspaceDir ||
		strings.HasPrefix(evalPath+string(filepath.Separator), g.workspaceDir+string(filepath.Separator))
}

// MakeRelative converts an absolute path to a slash-separated path
// relative to the working copy.
func (g *Guard) MakeRelative(absPath string) (string, error) {
	if !g.IsWithinWorkspace(absPath) {
		return "", fmt.Errorf("path '%s' is not within workspace", absPath)
	}

	relPath, err := filepath.Rel(g.workspaceDir, resolveSymlinks(absPath))
	if err != nil {
		return "", fmt.Errorf("failed to make path relative: %w", err)
	}

	return filepath.ToSlash(relPath), nil
}

// resolveSymlinks resolves symlinks in a path, handling non-existent paths
// by resolving the deepest existing ancestor.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	var components []string
	currentPath := path

	for {
		if resolved, err := filepath.EvalSymlinks(currentPath); err == nil {
			result := resolved
			for i := len(components) - 1; i >= 0; i-- {
				result = filepath.Join(result, components[i])
			}
			return result
		}

		dir := filepath.Dir(currentPath)
		if dir == currentPath || dir == "." || dir == string(filepath.Separator) {
			return path
		}

		components = append(components, filepath.Base(currentPath))
		currentPath = dir
	}
}

// EnsureParent creates the directory chain above absPath.
func EnsureParent(absPath string) error {
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	return nil
}
