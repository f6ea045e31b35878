package main

import (
	gitignore "github.com/sabhiram/go-gitignore"
)

// ExcludeList matches relative paths against gitignore style patterns. A nil
// *ExcludeList excludes nothing.
type ExcludeList struct {
	patterns []string
	ignore   *gitignore.GitIgnore
}

func NewExcludeList(patterns []string) *ExcludeList {
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != "" {
			lines = append(lines, p)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	return &ExcludeList{
		patterns: lines,
		ignore:   gitignore.CompileIgnoreLines(lines...),
	}
}

func (e *ExcludeList) Excludes(relPath string) bool {
	if e == nil {
		return false
	}
	return e.ignore.MatchesPath(relPath)
}

// ExcludesFile reports whether a file is excluded by its own path or by any
// directory above it. A negated pattern cannot re-include a file whose
// directory is excluded, which matches how the scanner prunes directories.
func (e *ExcludeList) ExcludesFile(relPath string) bool {
	if e == nil {
		return false
	}
	for i := 0; i < len(relPath); i++ {
		if relPath[i] != '/' {
			continue
		}
		if e.excludesDir(relPath[:i]) {
			return true
		}
	}
	return e.Excludes(relPath)
}

func (e *ExcludeList) excludesDir(relPath string) bool {
	return e.Excludes(relPath) || e.Excludes(relPath+"/")
}

func (e *ExcludeList) Patterns() []string {
	if e == nil {
		return nil
	}
	return e.patterns
}
