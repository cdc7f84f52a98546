package jsfmt

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/innerself-app/innerself-app/internal/jsscan"
)

// DefaultBlankLineMarkers are the line prefixes that get a blank line in
// front of them, applied in this order.
var DefaultBlankLineMarkers = []string{"export", "const", "attach", "/**"}

// ParseError is returned when a file cannot be parsed and printed.
type ParseError struct {
	Path     string
	Messages []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, strings.Join(e.Messages, "; "))
}

// RewriteFunc applies content-specific edits to an already formatted file.
type RewriteFunc func(path string, src []byte) ([]byte, error)

// Options configures a Reformatter.
type Options struct {
	// SingleQuote prefers single-quoted string literals.
	SingleQuote bool

	// BlankLineMarkers overrides DefaultBlankLineMarkers when non-nil.
	BlankLineMarkers []string

	// Rewrite runs last, on every file. May be nil.
	Rewrite RewriteFunc
}

// Reformatter turns compiler output into source that reads like it was
// written by hand.
type Reformatter struct {
	opts Options
}

// New creates a Reformatter.
func New(opts Options) *Reformatter {
	if opts.BlankLineMarkers == nil {
		opts.BlankLineMarkers = DefaultBlankLineMarkers
	}
	return &Reformatter{opts: opts}
}

// Format reformats src. path is used for diagnostics and is handed to the
// rewrite hook.
func (r *Reformatter) Format(path string, src []byte) ([]byte, error) {
	out, msgs := Print(src, PrintOptions{
		Sourcefile:   path,
		Loader:       api.LoaderJS,
		KeepComments: true,
	})
	if len(msgs) > 0 {
		return nil, &ParseError{Path: path, Messages: msgs}
	}

	quote := byte('"')
	if r.opts.SingleQuote {
		quote = '\''
	}
	out, err := requote(out, quote)
	if err != nil {
		return nil, &ParseError{Path: path, Messages: []string{err.Error()}}
	}

	out, err = insertBlankLines(out, r.opts.BlankLineMarkers)
	if err != nil {
		return nil, &ParseError{Path: path, Messages: []string{err.Error()}}
	}

	if r.opts.Rewrite != nil {
		out, err = r.opts.Rewrite(path, out)
		if err != nil {
			return nil, fmt.Errorf("rewriting %s: %w", path, err)
		}
	}
	return out, nil
}

// FormatFile reads path fully, formats it, and writes the result back in
// one write.
func (r *Reformatter) FormatFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	out, err := r.Format(path, src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// insertBlankLines puts one blank line before each code line that starts at
// column 0 with a marker. Lines inside comments, strings and template
// literals are left alone, and a declaration stays attached to the comment
// directly above it.
func insertBlankLines(src []byte, markers []string) ([]byte, error) {
	tokens, err := jsscan.Scan(src)
	if err != nil {
		return nil, err
	}

	lines := bytes.SplitAfter(src, []byte("\n"))
	var b bytes.Buffer
	b.Grow(len(src) + len(lines))

	offset := 0
	prev := ""
	for i, line := range lines {
		text := string(line)
		if i > 0 && strings.TrimSpace(prev) != "" && inCode(tokens, offset) {
			if m, ok := matchMarker(text, markers); ok && !(isKeyword(m) && endsComment(prev)) {
				b.WriteByte('\n')
			}
		}
		b.Write(line)
		offset += len(line)
		prev = text
	}
	return b.Bytes(), nil
}

func matchMarker(line string, markers []string) (string, bool) {
	for _, m := range markers {
		if !strings.HasPrefix(line, m) {
			continue
		}
		if isKeyword(m) && len(line) > len(m) && isWordByte(line[len(m)]) {
			continue
		}
		return m, true
	}
	return "", false
}

func isKeyword(marker string) bool {
	return marker != "" && isWordByte(marker[0])
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func endsComment(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasSuffix(t, "*/") || strings.HasPrefix(t, "//")
}

// inCode reports whether offset is not strictly inside a comment, string or
// template token. A token that starts exactly at offset counts as code.
func inCode(tokens []jsscan.Token, offset int) bool {
	i := sort.Search(len(tokens), func(i int) bool { return tokens[i].End > offset })
	if i == len(tokens) {
		return true
	}
	t := tokens[i]
	if t.Start >= offset {
		return true
	}
	switch t.Kind {
	case jsscan.Comment, jsscan.String, jsscan.Template:
		return false
	}
	return true
}
