package jsfmt

import (
	"strings"

	"github.com/innerself-app/innerself-app/internal/jsscan"
)

// requote rewrites every string literal to the preferred quote character,
// unless that would need more escapes than the alternative. Strings inside
// template substitutions are rewritten too; the literal parts of a template
// are left alone.
func requote(src []byte, preferred byte) ([]byte, error) {
	tokens, err := jsscan.Scan(src)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for _, t := range tokens {
		if t.Kind != jsscan.String {
			continue
		}
		b.Write(src[last:t.Start])
		b.WriteString(quoteLiteral(t.Text(src), preferred))
		last = t.End
	}
	b.Write(src[last:])
	return []byte(b.String()), nil
}

// quoteLiteral re-quotes one string literal.
func quoteLiteral(lit string, preferred byte) string {
	alternate := byte('"')
	if preferred == '"' {
		alternate = '\''
	}
	body := lit[1 : len(lit)-1]

	var nPreferred, nAlternate int
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			c = body[i+1]
			i++
		}
		switch c {
		case preferred:
			nPreferred++
		case alternate:
			nAlternate++
		}
	}

	quote := preferred
	if nPreferred > nAlternate {
		quote = alternate
	}
	if quote == lit[0] {
		return lit
	}

	var b strings.Builder
	b.Grow(len(lit) + 2)
	b.WriteByte(quote)
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			next := body[i+1]
			i++
			if next == '\'' || next == '"' {
				if next == quote {
					b.WriteByte('\\')
				}
				b.WriteByte(next)
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(next)
			continue
		}
		if c == quote {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte(quote)
	return b.String()
}
