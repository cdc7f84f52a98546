// Package template bundles the canonical innerself app template and the
// layout descriptor that names its manifest, build configuration and
// toolchain files. The tree is embedded into the binary and is never written
// to; every run copies it by value.
package template
