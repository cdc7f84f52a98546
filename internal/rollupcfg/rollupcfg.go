// Package rollupcfg edits a rollup configuration file as a small document:
// its top-level imports, its input entry point and the ordered entries of its
// plugins array. The document structure comes from a syntax tree; each edit
// is spliced into the text at token positions and the document is read
// again, so everything that is not edited keeps its formatting byte for byte.
package rollupcfg

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	"github.com/innerself-app/innerself-app/internal/jsscan"
)

// Import is a top-level import declaration.
type Import struct {
	Source string
	start  int
	end    int
}

// Plugin is one entry of the plugins array. Name is the callee of a plain
// call entry such as babel(); it is empty for any other expression.
type Plugin struct {
	Name  string
	Text  string
	start int
	end   int
}

// Config is a parsed rollup configuration.
type Config struct {
	src     []byte
	imports []Import
	plugins []Plugin
	input   *span
}

type span struct{ start, end int }

type edit struct {
	start, end int
	text       string
}

// Parse reads the structure of a rollup configuration.
func Parse(src []byte) (*Config, error) {
	c := &Config{src: src}
	if err := c.parse(); err != nil {
		return nil, err
	}
	return c, nil
}

// outline is the part of the syntax tree the editor works with.
type outline struct {
	imports    []string
	input      []byte
	plugins    []string
	hasPlugins bool
}

func readOutline(tree *js.AST) outline {
	var o outline
	objects := map[string]*js.ObjectExpr{}
	for _, stmt := range tree.List {
		switch s := stmt.(type) {
		case *js.ImportStmt:
			o.imports = append(o.imports, jsscan.Unquote(string(s.Module)))
		case *js.VarDecl:
			for _, b := range s.List {
				v, ok := b.Binding.(*js.Var)
				if obj, isObj := b.Default.(*js.ObjectExpr); ok && isObj {
					objects[string(v.Name())] = obj
				}
			}
		case *js.ExportStmt:
			if s.Default {
				if obj := exportedObject(s.Decl, objects); obj != nil {
					o.readOptions(obj)
				}
			}
		}
	}
	return o
}

// exportedObject resolves the default export to an options object: a literal,
// a top-level const holding one, or a single-argument call such as
// defineConfig({...}).
func exportedObject(decl js.IExpr, objects map[string]*js.ObjectExpr) *js.ObjectExpr {
	switch d := decl.(type) {
	case *js.ObjectExpr:
		return d
	case *js.Var:
		return objects[string(d.Name())]
	case *js.CallExpr:
		if len(d.Args.List) == 1 {
			return exportedObject(d.Args.List[0].Value, objects)
		}
	}
	return nil
}

func (o *outline) readOptions(obj *js.ObjectExpr) {
	for _, prop := range obj.List {
		if prop.Name == nil || prop.Spread {
			continue
		}
		switch {
		case prop.Name.IsIdent([]byte("input")):
			if lit, ok := prop.Value.(*js.LiteralExpr); ok && lit.TokenType == js.StringToken {
				o.input = lit.Data
			}
		case prop.Name.IsIdent([]byte("plugins")):
			arr, ok := prop.Value.(*js.ArrayExpr)
			if !ok {
				continue
			}
			o.hasPlugins = true
			for _, el := range arr.List {
				o.plugins = append(o.plugins, calleeName(el))
			}
		}
	}
}

func calleeName(el js.Element) string {
	if el.Spread {
		return ""
	}
	call, ok := el.Value.(*js.CallExpr)
	if !ok || call.Optional {
		return ""
	}
	if v, ok := call.X.(*js.Var); ok {
		return string(v.Name())
	}
	return ""
}

func (c *Config) parse() error {
	src := c.src
	tree, err := js.Parse(parse.NewInputBytes(bytes.Clone(src)), js.Options{})
	if err != nil {
		return fmt.Errorf("parsing rollup config: %w", err)
	}
	o := readOutline(tree)

	tokens, err := jsscan.Scan(src)
	if err != nil {
		return fmt.Errorf("scanning rollup config: %w", err)
	}
	toks := jsscan.Significant(tokens)
	c.imports, c.plugins, c.input = nil, nil, nil

	depth := 0
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Is(src, "(") || t.Is(src, "[") || t.Is(src, "{"):
			depth++
		case t.Is(src, ")") || t.Is(src, "]") || t.Is(src, "}"):
			depth--
		case depth == 0 && t.Is(src, "import"):
			if sp, next, ok := importSpan(src, toks, i); ok {
				c.imports = append(c.imports, Import{start: sp.start, end: sp.end})
				i = next - 1
			}
		case o.input != nil && c.input == nil && t.Is(src, "input"):
			if i+2 < len(toks) && toks[i+1].Is(src, ":") && toks[i+2].Text(src) == string(o.input) {
				c.input = &span{toks[i+2].Start, toks[i+2].End}
			}
		case o.hasPlugins && c.plugins == nil && t.Is(src, "plugins"):
			if i+2 < len(toks) && toks[i+1].Is(src, ":") && toks[i+2].Is(src, "[") {
				spans, next, err := entrySpans(src, toks, i+2)
				if err != nil {
					return err
				}
				c.plugins = make([]Plugin, len(spans))
				for j, sp := range spans {
					c.plugins[j] = Plugin{Text: string(src[sp.start:sp.end]), start: sp.start, end: sp.end}
				}
				i = next - 1
			}
		}
	}

	if len(c.imports) != len(o.imports) {
		return fmt.Errorf("rollup config: found %d import declarations, syntax tree has %d", len(c.imports), len(o.imports))
	}
	for i := range c.imports {
		c.imports[i].Source = o.imports[i]
	}
	if len(c.plugins) != len(o.plugins) {
		return fmt.Errorf("rollup config: found %d plugin entries, syntax tree has %d", len(c.plugins), len(o.plugins))
	}
	for i := range c.plugins {
		c.plugins[i].Name = o.plugins[i]
	}
	return nil
}

// importSpan covers `import ... from 'x';` or `import 'x';` starting at
// toks[i]. It returns the index just past the declaration.
func importSpan(src []byte, toks []jsscan.Token, i int) (span, int, bool) {
	start := toks[i].Start
	for j := i + 1; j < len(toks); j++ {
		if toks[j].Kind != jsscan.String {
			if toks[j].Is(src, "(") || toks[j].Is(src, ".") {
				// import() or import.meta
				return span{}, 0, false
			}
			continue
		}
		end := toks[j].End
		next := j + 1
		if next < len(toks) && toks[next].Is(src, ";") {
			end = toks[next].End
			next++
		}
		return span{start, end}, next, true
	}
	return span{}, 0, false
}

// entrySpans splits the array opened at toks[open] into its top-level
// entries. It returns the index just past the closing bracket.
func entrySpans(src []byte, toks []jsscan.Token, open int) ([]span, int, error) {
	var (
		spans []span
		depth int
		first = -1
		last  = -1
	)
	flush := func() {
		if first >= 0 {
			spans = append(spans, span{toks[first].Start, toks[last].End})
		}
		first, last = -1, -1
	}

	for i := open + 1; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Is(src, "(") || t.Is(src, "[") || t.Is(src, "{"):
			depth++
		case t.Is(src, ")") || t.Is(src, "}"):
			depth--
		case t.Is(src, "]"):
			if depth == 0 {
				flush()
				return spans, i + 1, nil
			}
			depth--
		case t.Is(src, ",") && depth == 0:
			flush()
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	return nil, 0, fmt.Errorf("unterminated plugins array")
}

// Imports returns the import sources in file order.
func (c *Config) Imports() []string {
	out := make([]string, len(c.imports))
	for i, imp := range c.imports {
		out[i] = imp.Source
	}
	return out
}

// Plugins returns the plugin entries in array order.
func (c *Config) Plugins() []Plugin {
	return append([]Plugin(nil), c.plugins...)
}

// Input returns the entry point, if the config declares a string input.
func (c *Config) Input() (string, bool) {
	if c.input == nil {
		return "", false
	}
	return jsscan.Unquote(string(c.src[c.input.start:c.input.end])), true
}

// RemoveImport drops every import of source along with the rest of its
// line. It reports whether anything was removed.
func (c *Config) RemoveImport(source string) (bool, error) {
	var edits []edit
	for _, imp := range c.imports {
		if imp.Source != source {
			continue
		}
		start, end := imp.start, imp.end
		if ls := lineStart(c.src, start); ls >= 0 && restOfLineBlank(c.src, end) {
			start, end = ls, lineEnd(c.src, end)
		}
		edits = append(edits, edit{start: start, end: end})
	}
	return len(edits) > 0, c.apply(edits)
}

// RemovePlugin drops the first plugin entry whose callee is name, together
// with the separating comma, so the array stays well formed. It reports
// whether an entry was removed.
func (c *Config) RemovePlugin(name string) (bool, error) {
	for i, p := range c.plugins {
		if p.Name != name {
			continue
		}
		var e edit
		switch {
		case i > 0:
			// from the end of the previous entry through this one
			e = edit{start: c.plugins[i-1].end, end: p.end}
		case len(c.plugins) > 1:
			e = edit{start: p.start, end: c.plugins[1].start}
		default:
			e = edit{start: p.start, end: p.end}
		}
		return true, c.apply([]edit{e})
	}
	return false, nil
}

// SetInput replaces the entry point string. It reports whether the config
// declares one.
func (c *Config) SetInput(value string) (bool, error) {
	if c.input == nil {
		return false, nil
	}
	quote := string(c.src[c.input.start])
	text := quote + strings.ReplaceAll(value, quote, `\`+quote) + quote
	return true, c.apply([]edit{{start: c.input.start, end: c.input.end, text: text}})
}

// Bytes returns the current source.
func (c *Config) Bytes() []byte {
	return append([]byte(nil), c.src...)
}

// apply splices non-overlapping edits into the source and reads it again.
func (c *Config) apply(edits []edit) error {
	if len(edits) == 0 {
		return nil
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var b strings.Builder
	b.Grow(len(c.src))
	pos := 0
	for _, e := range edits {
		b.Write(c.src[pos:e.start])
		b.WriteString(e.text)
		pos = e.end
	}
	b.Write(c.src[pos:])

	prev := c.src
	c.src = []byte(b.String())
	if err := c.parse(); err != nil {
		c.src = prev
		_ = c.parse()
		return fmt.Errorf("re-reading edited rollup config: %w", err)
	}
	return nil
}

func lineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		if src[pos-1] != ' ' && src[pos-1] != '\t' {
			return -1
		}
		pos--
	}
	return pos
}

func restOfLineBlank(src []byte, pos int) bool {
	for ; pos < len(src) && src[pos] != '\n'; pos++ {
		if src[pos] != ' ' && src[pos] != '\t' && src[pos] != '\r' {
			return false
		}
	}
	return true
}

func lineEnd(src []byte, pos int) int {
	for pos < len(src) && src[pos] != '\n' {
		pos++
	}
	if pos < len(src) {
		pos++
	}
	return pos
}
