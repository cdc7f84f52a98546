// Package jsfmt reformats machine-emitted JavaScript so it reads like source a
// person wrote: esbuild's canonical layout, single-quoted strings, and blank
// lines in front of exports, constants, attach calls and doc comments.
package jsfmt
