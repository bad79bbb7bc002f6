package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrFileNotFound is matched by every NotFoundError.
var ErrFileNotFound = errors.New("submitted file not found")

// NotFoundError lists every candidate path that was checked.
type NotFoundError struct {
	Path  string
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("submitted file %s not found (tried: %s)", e.Path, strings.Join(e.Tried, ", "))
}

// Is lets errors.Is match ErrFileNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrFileNotFound }

// Root maps a stored path prefix onto a directory on this host.
type Root struct {
	Prefix string
	Dir    string
}

// Resolver turns stored file paths into existing local paths.
type Resolver struct {
	roots []Root
}

// NewResolver returns a resolver over roots, consulted in order.
func NewResolver(roots []Root) *Resolver {
	return &Resolver{roots: append([]Root(nil), roots...)}
}

// Candidates lists the paths TryRoots checks for path, in order.
func (r *Resolver) Candidates(path string) []string {
	path = strings.TrimSpace(path)
	candidates := []string{path}
	seen := map[string]struct{}{path: {}}

	add := func(candidate string) {
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		candidates = append(candidates, candidate)
	}

	slashed := filepath.ToSlash(path)
	for _, root := range r.roots {
		if root.Prefix == "" || !strings.HasPrefix(slashed, root.Prefix) {
			continue
		}
		rel := strings.TrimPrefix(slashed, root.Prefix)
		add(filepath.Join(root.Dir, filepath.FromSlash(rel)))
	}
	if !filepath.IsAbs(path) {
		for _, root := range r.roots {
			add(filepath.Join(root.Dir, filepath.FromSlash(strings.TrimPrefix(slashed, "/"))))
		}
	}
	return candidates
}

// TryRoots returns the first candidate that exists as a regular file.
func (r *Resolver) TryRoots(path string) (string, error) {
	candidates := r.Candidates(path)
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", &NotFoundError{Path: path, Tried: candidates}
}
