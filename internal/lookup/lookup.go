// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

// Package lookup resolves command names to executable paths.
package lookup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

//go:generate go tool github.com/golang/mock/mockgen -source=lookup.go -destination=mocks/finder.go -package=mocks

// ErrNotFound is returned when a name does not resolve to an executable.
var ErrNotFound = errors.New("command not found")

// Finder resolves a command name to the path of an executable.
type Finder interface {
	// Find returns the executable path for name or an error wrapping ErrNotFound.
	Find(name string) (string, error)
}

// PathFinder searches a colon separated list of directories.
type PathFinder struct {
	appFs afero.Fs
	path  string
}

// New creates a PathFinder backed by appFs. An empty path searches the
// PATH environment variable at lookup time.
func New(
	appFs afero.Fs,
	path string,
) *PathFinder {
	return &PathFinder{
		appFs: appFs,
		path:  path,
	}
}

// Find resolves name. Names containing a path separator are used as given
// when executable. Otherwise each search directory is tried in order, and a
// name containing underscores is retried with dashes in the same directory.
func (f *PathFinder) Find(
	name string,
) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrNotFound)
	}

	if strings.ContainsRune(name, filepath.Separator) {
		if f.isExecutable(name) {
			return name, nil
		}

		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	dashed := strings.ReplaceAll(name, "_", "-")
	for _, dir := range filepath.SplitList(f.searchPath()) {
		if dir == "" {
			dir = "."
		}

		candidate := filepath.Join(dir, name)
		if f.isExecutable(candidate) {
			return candidate, nil
		}

		if dashed != name {
			candidate = filepath.Join(dir, dashed)
			if f.isExecutable(candidate) {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

func (f *PathFinder) searchPath() string {
	if f.path != "" {
		return f.path
	}

	return os.Getenv("PATH")
}

func (f *PathFinder) isExecutable(
	path string,
) bool {
	info, err := f.appFs.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir() && info.Mode().Perm()&0o111 != 0
}
