package main

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRelPath = errors.New("invalid relative path")

// RelPath is a forward-slash separated path relative to the sync root. It has
// no leading slash, no trailing slash and no empty, "." or ".." segments.
// Values are only built by NewRelPath.
type RelPath string

func NewRelPath(p string) (RelPath, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidRelPath)
	}
	if strings.Contains(p, `\`) {
		return "", fmt.Errorf("%w: %q contains a backslash separator", ErrInvalidRelPath, p)
	}
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidRelPath, p)
	}
	if strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("%w: %q names a directory", ErrInvalidRelPath, p)
	}
	for _, segment := range strings.Split(p, "/") {
		switch segment {
		case "":
			return "", fmt.Errorf("%w: %q has an empty segment", ErrInvalidRelPath, p)
		case ".", "..":
			return "", fmt.Errorf("%w: %q has a %q segment", ErrInvalidRelPath, p, segment)
		}
	}

	return RelPath(p), nil
}

func (p RelPath) String() string {
	return string(p)
}

// Key joins the path onto an already normalized prefix.
func (p RelPath) Key(prefix string) string {
	return prefix + string(p)
}
