package jsfmt

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/innerself-app/innerself-app/internal/jsscan"
)

// keepTag turns an ordinary comment into a legal comment for the duration of
// one esbuild pass. esbuild drops every comment except legal ones
// ("/*!" and "//!"), so comments are tagged on the way in and untagged on the
// way out. Only statement-level comments survive.
const keepTag = "!jsfmt:keep "

// PrintOptions configures one esbuild parse/print pass.
type PrintOptions struct {
	// Sourcefile is used in diagnostics only.
	Sourcefile string

	// Loader selects the input language (api.LoaderJS or api.LoaderTS).
	Loader api.Loader

	// Target is the output language level.
	Target api.Target

	// Format selects module emission; api.FormatDefault keeps the input form.
	Format api.Format

	// KeepComments preserves statement-level comments.
	KeepComments bool
}

// Print parses src and prints it back in esbuild's canonical layout. A
// non-empty message slice means the source could not be parsed; code is
// nil in that case.
func Print(src []byte, opts PrintOptions) ([]byte, []string) {
	input := src
	if opts.KeepComments {
		tagged, err := tagComments(src)
		if err != nil {
			return nil, []string{err.Error()}
		}
		input = tagged
	}

	target := opts.Target
	if target == 0 {
		target = api.ESNext
	}

	result := api.Transform(string(input), api.TransformOptions{
		Sourcefile:    opts.Sourcefile,
		Loader:        opts.Loader,
		Target:        target,
		Format:        opts.Format,
		Charset:       api.CharsetUTF8,
		LegalComments: api.LegalCommentsInline,
		LogLevel:      api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, formatMessages(result.Errors)
	}

	if !opts.KeepComments {
		return result.Code, nil
	}
	code, err := untagComments(result.Code)
	if err != nil {
		return nil, []string{fmt.Sprintf("printed output: %v", err)}
	}
	return code, nil
}

func formatMessages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			out = append(out, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		out = append(out, m.Text)
	}
	return out
}

func tagComments(src []byte) ([]byte, error) {
	tokens, err := jsscan.Scan(src)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.Grow(len(src) + 64)
	last := 0
	for _, t := range tokens {
		if t.Kind != jsscan.Comment {
			continue
		}
		b.Write(src[last : t.Start+2])
		b.WriteString(keepTag)
		last = t.Start + 2
	}
	b.Write(src[last:])
	return []byte(b.String()), nil
}

func untagComments(src []byte) ([]byte, error) {
	tokens, err := jsscan.Scan(src)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for _, t := range tokens {
		if t.Kind != jsscan.Comment || !strings.HasPrefix(string(src[t.Start+2:t.End]), keepTag) {
			continue
		}
		b.Write(src[last : t.Start+2])
		last = t.Start + 2 + len(keepTag)
	}
	b.Write(src[last:])
	return []byte(b.String()), nil
}
