package pkgjson

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Manifest is a package.json document. Keys keep their original order;
// edits address entries by exact key and the document is always written
// back whole.
type Manifest struct {
	path string
	data []byte
}

// Load reads and checks the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	m.path = path
	return m, nil
}

// Parse wraps raw JSON. The root must be an object.
func Parse(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("manifest root is not an object")
	}
	return &Manifest{data: append([]byte(nil), data...)}, nil
}

// Path returns the file the manifest was loaded from.
func (m *Manifest) Path() string { return m.path }

// Get returns the string value at a top-level key.
func (m *Manifest) Get(key string) string {
	return gjson.GetBytes(m.data, escapePath(key)).String()
}

// Dependencies returns the entries of a dependency group in document order.
func (m *Manifest) Dependencies(group string) []Dependency {
	var deps []Dependency
	gjson.GetBytes(m.data, escapePath(group)).ForEach(func(k, v gjson.Result) bool {
		deps = append(deps, Dependency{Name: k.String(), Spec: v.String()})
		return true
	})
	return deps
}

// Has reports whether a dependency group contains name.
func (m *Manifest) Has(group, name string) bool {
	return gjson.GetBytes(m.data, escapePath(group)+"."+escapePath(name)).Exists()
}

// Remove deletes names from a dependency group and returns the ones that
// were present. Absent names are not an error.
func (m *Manifest) Remove(group string, names ...string) ([]string, error) {
	var removed []string
	for _, name := range names {
		if !m.Has(group, name) {
			continue
		}
		data, err := sjson.DeleteBytes(m.data, escapePath(group)+"."+escapePath(name))
		if err != nil {
			return removed, fmt.Errorf("removing %s.%s: %w", group, name, err)
		}
		m.data = data
		removed = append(removed, name)
	}
	return removed, nil
}

// Bytes returns the document indented with two spaces and a trailing newline.
func (m *Manifest) Bytes() []byte {
	return pretty.PrettyOptions(m.data, &pretty.Options{
		Width:    80,
		Prefix:   "",
		Indent:   "  ",
		SortKeys: false,
	})
}

// Save replaces the manifest file with the current document in one rename,
// so readers never observe a partially written file.
func (m *Manifest) Save() error {
	if m.path == "" {
		return fmt.Errorf("manifest has no path")
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(m.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".manifest-*")
	if err != nil {
		return fmt.Errorf("creating temporary manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(m.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("setting manifest permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("replacing manifest %s: %w", m.path, err)
	}
	return nil
}

// Dependency is one entry of a dependency group.
type Dependency struct {
	Name string
	Spec string
}

// escapePath escapes the characters that have meaning in gjson/sjson paths.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
