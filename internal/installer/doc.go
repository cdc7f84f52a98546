// Package installer runs the package manager in a freshly materialized
// project to install its dependencies.
package installer
