// Package jsscan splits JavaScript source into positioned tokens. Lexing is
// done by github.com/tdewolff/parse/v2/js; this package adds byte offsets
// and the syntactic context the lexer needs to tell a regular expression
// apart from a division.
package jsscan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// Kind classifies a token.
type Kind int

const (
	Comment Kind = iota
	String
	Template
	Regexp
	Ident
	Number
	Punct
)

func (k Kind) String() string {
	switch k {
	case Comment:
		return "comment"
	case String:
		return "string"
	case Template:
		return "template"
	case Regexp:
		return "regexp"
	case Ident:
		return "ident"
	case Number:
		return "number"
	case Punct:
		return "punct"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token is a half-open byte range [Start, End) of the scanned source.
// A template literal with substitutions is split into its literal parts
// ("`a${", "}b${", "}c`"); the substitutions are scanned as ordinary tokens.
type Token struct {
	Kind  Kind
	Start int
	End   int
}

// Text returns the token's source text.
func (t Token) Text(src []byte) string {
	return string(src[t.Start:t.End])
}

// Is reports whether t is a Punct or Ident token with the given text.
func (t Token) Is(src []byte, text string) bool {
	return (t.Kind == Punct || t.Kind == Ident) && t.End-t.Start == len(text) && string(src[t.Start:t.End]) == text
}

// SyntaxError reports source the lexer cannot tokenize.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

// Scan tokenizes src. Whitespace and line terminators are skipped, as is a
// leading #! line.
func Scan(src []byte) ([]Token, error) {
	pos := 0
	if bytes.HasPrefix(src, []byte("#!")) {
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			pos = i
		} else {
			pos = len(src)
		}
	}

	s := &scanner{lexer: js.NewLexer(parse.NewInputBytes(bytes.Clone(src[pos:])))}
	var tokens []Token
	for {
		tt, text := s.lexer.Next()
		if tt == js.ErrorToken {
			if err := s.lexer.Err(); err != nil && err != io.EOF {
				return nil, &SyntaxError{Offset: pos, Msg: lexMessage(err)}
			}
			if s.templates > 0 {
				return nil, &SyntaxError{Offset: pos, Msg: "unterminated template literal"}
			}
			return tokens, nil
		}

		if (tt == js.DivToken || tt == js.DivEqToken) && s.regexAllowed() {
			if tt, text = s.lexer.RegExp(); tt == js.ErrorToken {
				return nil, &SyntaxError{Offset: pos, Msg: "unterminated regular expression"}
			}
		}

		start := pos
		pos += len(text)
		kind, ok := classify(tt)
		if !ok {
			continue
		}
		tokens = append(tokens, Token{Kind: kind, Start: start, End: pos})
		if kind != Comment {
			s.advance(tt)
		}
	}
}

func lexMessage(err error) string {
	var pe *parse.Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}

// classify maps a lexer token type to a Kind. Whitespace is reported as not
// ok.
func classify(tt js.TokenType) (Kind, bool) {
	switch {
	case tt == js.WhitespaceToken || tt == js.LineTerminatorToken:
		return 0, false
	case tt == js.CommentToken || tt == js.CommentLineTerminatorToken:
		return Comment, true
	case tt == js.StringToken:
		return String, true
	case tt == js.TemplateToken || tt == js.TemplateStartToken || tt == js.TemplateMiddleToken || tt == js.TemplateEndToken:
		return Template, true
	case tt == js.RegExpToken:
		return Regexp, true
	case tt == js.PrivateIdentifierToken || js.IsIdentifierName(tt):
		return Ident, true
	case js.IsNumeric(tt):
		return Number, true
	default:
		return Punct, true
	}
}

// scanner tracks just enough syntactic context to decide whether a slash
// begins a regular expression: whether the previous token ended an operand,
// which open parentheses belong to a statement head such as if (...), and
// which open braces started an object literal rather than a block.
type scanner struct {
	lexer      *js.Lexer
	prev       js.TokenType
	operandEnd bool
	parens     []bool
	braces     []bool
	templates  int
}

func (s *scanner) regexAllowed() bool {
	return !s.operandEnd
}

func (s *scanner) advance(tt js.TokenType) {
	switch tt {
	case js.OpenParenToken:
		s.parens = append(s.parens, s.prev == js.IfToken || s.prev == js.WhileToken ||
			s.prev == js.ForToken || s.prev == js.WithToken)
		s.operandEnd = false
	case js.CloseParenToken:
		s.operandEnd = !pop(&s.parens)
	case js.OpenBraceToken:
		s.braces = append(s.braces, s.expressionBrace())
		s.operandEnd = false
	case js.CloseBraceToken:
		s.operandEnd = pop(&s.braces)
	case js.CloseBracketToken:
		s.operandEnd = true
	case js.IncrToken, js.DecrToken:
		// postfix after an operand, prefix otherwise; either way the
		// operand state is unchanged
	case js.TemplateStartToken:
		s.templates++
		s.operandEnd = false
	case js.TemplateMiddleToken:
		s.operandEnd = false
	case js.TemplateEndToken:
		s.templates--
		s.operandEnd = true
	case js.StringToken, js.TemplateToken, js.RegExpToken, js.PrivateIdentifierToken,
		js.ThisToken, js.SuperToken, js.NullToken, js.TrueToken, js.FalseToken:
		s.operandEnd = true
	default:
		switch {
		case js.IsNumeric(tt):
			s.operandEnd = true
		case js.IsIdentifierName(tt) && (s.prev == js.DotToken || s.prev == js.OptChainToken):
			// property name, keywords included
			s.operandEnd = true
		case js.IsReservedWord(tt), tt == js.OfToken:
			s.operandEnd = false
		case js.IsIdentifierName(tt):
			s.operandEnd = true
		default:
			s.operandEnd = false
		}
	}
	s.prev = tt
}

// expressionBrace reports whether a brace following s.prev opens an object
// literal.
func (s *scanner) expressionBrace() bool {
	switch s.prev {
	case js.OpenParenToken, js.OpenBracketToken, js.CommaToken, js.ColonToken,
		js.QuestionToken, js.EllipsisToken, js.TemplateStartToken, js.TemplateMiddleToken,
		js.ReturnToken, js.TypeofToken, js.VoidToken, js.DeleteToken, js.ThrowToken,
		js.NewToken, js.InToken, js.OfToken, js.InstanceofToken, js.YieldToken,
		js.AwaitToken, js.DefaultToken, js.CaseToken:
		return true
	}
	return js.IsOperator(s.prev) && s.prev != js.IncrToken && s.prev != js.DecrToken
}

func pop(stack *[]bool) bool {
	n := len(*stack)
	if n == 0 {
		return false
	}
	v := (*stack)[n-1]
	*stack = (*stack)[:n-1]
	return v
}

// Significant returns tokens with comments removed.
func Significant(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind != Comment {
			out = append(out, t)
		}
	}
	return out
}

// Unquote returns the value of a string literal token's text. Only the
// escapes that matter for module specifiers and config values are decoded.
func Unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	body := lit[1 : len(lit)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\n':
			// line continuation
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
