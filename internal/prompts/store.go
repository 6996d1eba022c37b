// Package prompts serves named system-prompt templates stored as *.txt files.
package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"inferd/internal/common/fsutil"
)

// Ext is the template file extension.
const Ext = ".txt"

// Store reads templates from a directory on every call, so edits show up
// without a restart.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir ("~" is expanded).
func New(dir string) Store {
	if d, err := fsutil.ExpandHome(dir); err == nil {
		dir = d
	}
	return Store{Dir: dir}
}

// List returns the template names (file stems), sorted.
func (s Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read prompts dir: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, Ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, Ext))
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the contents of template name. The name must be a bare stem.
func (s Store) Read(name string) (string, error) {
	if !validName(name) {
		return "", invalidNameError{name: name}
	}
	b, err := os.ReadFile(filepath.Join(s.Dir, name+Ext))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", notFoundError{name: name}
		}
		return "", fmt.Errorf("read prompt %s: %w", name, err)
	}
	return string(b), nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}
