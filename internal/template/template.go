package template

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed all:files
var embedded embed.FS

//go:embed template.yaml
var rawLayout []byte

// Toolchain names the files, dependency keys and build-config wiring that
// belong to one toolchain shipped with the template.
type Toolchain struct {
	Dependencies     []string `yaml:"dependencies"`
	RunControl       string   `yaml:"run_control,omitempty"`
	Config           string   `yaml:"config,omitempty"`
	ScratchArtifacts []string `yaml:"scratch_artifacts,omitempty"`
	ImportSource     string   `yaml:"import_source"`
	Plugin           string   `yaml:"plugin"`
}

// Layout describes the fixed file layout of the template tree.
type Layout struct {
	Manifest         string    `yaml:"manifest"`
	DependencyGroup  string    `yaml:"dependency_group"`
	BuildConfig      string    `yaml:"build_config"`
	EntryPoint       string    `yaml:"entry_point"`
	TypedExtension   string    `yaml:"typed_extension"`
	UntypedExtension string    `yaml:"untyped_extension"`
	LegacyTranspiler Toolchain `yaml:"legacy_transpiler"`
	TypedToolchain   Toolchain `yaml:"typed_toolchain"`
}

// Template is a read-only template tree plus its layout.
type Template struct {
	FS     fs.FS
	Layout *Layout
}

var (
	defaultOnce sync.Once
	defaultTmpl *Template
	defaultErr  error
)

// Default returns the embedded innerself app template.
func Default() (*Template, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embedded, "files")
		if err != nil {
			defaultErr = fmt.Errorf("opening embedded template: %w", err)
			return
		}
		layout, err := ParseLayout(rawLayout)
		if err != nil {
			defaultErr = fmt.Errorf("loading embedded layout: %w", err)
			return
		}
		defaultTmpl = &Template{FS: sub, Layout: layout}
	})
	return defaultTmpl, defaultErr
}

// ParseLayout decodes and validates a layout descriptor.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate reports the first missing or malformed layout field.
func (l *Layout) Validate() error {
	required := map[string]string{
		"manifest":          l.Manifest,
		"dependency_group":  l.DependencyGroup,
		"build_config":      l.BuildConfig,
		"entry_point":       l.EntryPoint,
		"typed_extension":   l.TypedExtension,
		"untyped_extension": l.UntypedExtension,
	}
	keys := make([]string, 0, len(required))
	for k := range required {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if required[k] == "" {
			return fmt.Errorf("layout is missing required field %q", k)
		}
	}

	for _, ext := range []string{l.TypedExtension, l.UntypedExtension} {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("layout extension %q must start with '.'", ext)
		}
	}
	if l.TypedExtension == l.UntypedExtension {
		return fmt.Errorf("typed and untyped extensions are both %q", l.TypedExtension)
	}

	if len(l.LegacyTranspiler.Dependencies) == 0 {
		return fmt.Errorf("layout lists no legacy transpiler dependencies")
	}
	if len(l.TypedToolchain.Dependencies) == 0 {
		return fmt.Errorf("layout lists no typed toolchain dependencies")
	}
	return nil
}

// UntypedEntryPoint returns the entry point with the typed extension
// replaced by the untyped one.
func (l *Layout) UntypedEntryPoint() string {
	return strings.TrimSuffix(l.EntryPoint, l.TypedExtension) + l.UntypedExtension
}

// Checksums returns the hex SHA-256 of every regular file in fsys, keyed by
// slash-separated path.
func Checksums(fsys fs.FS) (map[string]string, error) {
	sums := make(map[string]string)
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		sums[path] = hex.EncodeToString(sum[:])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hashing template files: %w", err)
	}
	return sums, nil
}

// Digest folds Checksums into one short hex digest, stable across runs.
func Digest(fsys fs.FS) (string, int, error) {
	sums, err := Checksums(fsys)
	if err != nil {
		return "", 0, err
	}
	paths := make([]string, 0, len(sums))
	for p := range sums {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s %s\n", sums[p], p)
	}
	return hex.EncodeToString(h.Sum(nil))[:12], len(paths), nil
}
