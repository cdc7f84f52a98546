package jsscan

import (
	"errors"
	"testing"
)

type tok struct {
	kind Kind
	text string
}

func scanAll(t *testing.T, src string) []tok {
	t.Helper()
	tokens, err := Scan([]byte(src))
	if err != nil {
		t.Fatalf("Scan(%q) error: %v", src, err)
	}
	out := make([]tok, len(tokens))
	for i, tk := range tokens {
		out[i] = tok{tk.Kind, tk.Text([]byte(src))}
	}
	return out
}

func TestScan(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []tok
	}{
		{
			"import statement",
			`import babel from 'rollup-plugin-babel';`,
			[]tok{
				{Ident, "import"}, {Ident, "babel"}, {Ident, "from"},
				{String, "'rollup-plugin-babel'"}, {Punct, ";"},
			},
		},
		{
			"comments",
			"// line\nx /* block */ y",
			[]tok{{Comment, "// line"}, {Ident, "x"}, {Comment, "/* block */"}, {Ident, "y"}},
		},
		{
			"escaped quotes",
			`"a\"b" 'c\'d'`,
			[]tok{{String, `"a\"b"`}, {String, `'c\'d'`}},
		},
		{
			"template with substitution",
			"html`<b>${fn({a: '}'})}</b>` + 1",
			[]tok{
				{Ident, "html"}, {Template, "`<b>${"}, {Ident, "fn"}, {Punct, "("}, {Punct, "{"},
				{Ident, "a"}, {Punct, ":"}, {String, "'}'"}, {Punct, "}"}, {Punct, ")"},
				{Template, "}</b>`"}, {Punct, "+"}, {Number, "1"},
			},
		},
		{
			"nested template",
			"`a${`b${c}`}d`",
			[]tok{{Template, "`a${"}, {Template, "`b${"}, {Ident, "c"}, {Template, "}`"}, {Template, "}d`"}},
		},
		{
			"plain template",
			"`a\nb`",
			[]tok{{Template, "`a\nb`"}},
		},
		{
			"string inside substitution",
			"`a${\"c\"}`",
			[]tok{{Template, "`a${"}, {String, `"c"`}, {Template, "}`"}},
		},
		{
			"regexp after paren",
			"x.replace(/\\]\\),\\n/g, '')",
			[]tok{
				{Ident, "x"}, {Punct, "."}, {Ident, "replace"}, {Punct, "("},
				{Regexp, "/\\]\\),\\n/g"}, {Punct, ","}, {String, "''"}, {Punct, ")"},
			},
		},
		{
			"division after ident",
			"a / b / c",
			[]tok{{Ident, "a"}, {Punct, "/"}, {Ident, "b"}, {Punct, "/"}, {Ident, "c"}},
		},
		{
			"division after postfix increment",
			"a = b++ / 2",
			[]tok{{Ident, "a"}, {Punct, "="}, {Ident, "b"}, {Punct, "++"}, {Punct, "/"}, {Number, "2"}},
		},
		{
			"division after postfix decrement",
			"x = a[i]-- / 2 /g",
			[]tok{
				{Ident, "x"}, {Punct, "="}, {Ident, "a"}, {Punct, "["}, {Ident, "i"}, {Punct, "]"},
				{Punct, "--"}, {Punct, "/"}, {Number, "2"}, {Punct, "/"}, {Ident, "g"},
			},
		},
		{
			"division after object literal",
			"const o = { a: 1 } / 2;",
			[]tok{
				{Ident, "const"}, {Ident, "o"}, {Punct, "="}, {Punct, "{"}, {Ident, "a"}, {Punct, ":"},
				{Number, "1"}, {Punct, "}"}, {Punct, "/"}, {Number, "2"}, {Punct, ";"},
			},
		},
		{
			"regexp after block",
			"{}\n/x/.test(s)",
			[]tok{
				{Punct, "{"}, {Punct, "}"}, {Regexp, "/x/"}, {Punct, "."}, {Ident, "test"},
				{Punct, "("}, {Ident, "s"}, {Punct, ")"},
			},
		},
		{
			"regexp after if condition",
			"if (ok) /a/.test(s)",
			[]tok{
				{Ident, "if"}, {Punct, "("}, {Ident, "ok"}, {Punct, ")"}, {Regexp, "/a/"},
				{Punct, "."}, {Ident, "test"}, {Punct, "("}, {Ident, "s"}, {Punct, ")"},
			},
		},
		{
			"division after keyword property",
			"n = a.default / 2 / 1",
			[]tok{
				{Ident, "n"}, {Punct, "="}, {Ident, "a"}, {Punct, "."}, {Ident, "default"},
				{Punct, "/"}, {Number, "2"}, {Punct, "/"}, {Number, "1"},
			},
		},
		{
			"regexp after division assignment operand",
			"x /= 2; y = /=/g",
			[]tok{
				{Ident, "x"}, {Punct, "/="}, {Number, "2"}, {Punct, ";"},
				{Ident, "y"}, {Punct, "="}, {Regexp, "/=/g"},
			},
		},
		{
			"regexp with class",
			"return /[/]x/i",
			[]tok{{Ident, "return"}, {Regexp, "/[/]x/i"}},
		},
		{
			"numbers",
			"1e+5 0x1F .5",
			[]tok{{Number, "1e+5"}, {Number, "0x1F"}, {Number, ".5"}},
		},
		{
			"shebang",
			"#!/usr/bin/env node\nrun()",
			[]tok{{Ident, "run"}, {Punct, "("}, {Punct, ")"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scanAll(t, tt.src)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %v %q, want %v %q", i, got[i].kind, got[i].text, tt.want[i].kind, tt.want[i].text)
				}
			}
		})
	}
}

func TestScanErrors(t *testing.T) {
	for _, src := range []string{
		"'open",
		"\"line\nbreak\"",
		"/* never closed",
		"`tmpl ${a",
		"`tmpl",
		"x = /open",
	} {
		_, err := Scan([]byte(src))
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("Scan(%q) error = %v, want *SyntaxError", src, err)
		}
	}
}

func TestSignificant(t *testing.T) {
	src := []byte("a /* c */ b // d")
	tokens, err := Scan(src)
	if err != nil {
		t.Fatal(err)
	}
	sig := Significant(tokens)
	if len(sig) != 2 || !sig[0].Is(src, "a") || !sig[1].Is(src, "b") {
		t.Errorf("Significant() = %v", sig)
	}
}

func TestUnquote(t *testing.T) {
	tests := map[string]string{
		`'rollup-plugin-babel'`: "rollup-plugin-babel",
		`"src/index.ts"`:        "src/index.ts",
		`'it\'s'`:               "it's",
		`"a\nb"`:                "a\nb",
	}
	for in, want := range tests {
		if got := Unquote(in); got != want {
			t.Errorf("Unquote(%s) = %q, want %q", in, got, want)
		}
	}
}
