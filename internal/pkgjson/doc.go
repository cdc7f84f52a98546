// Package pkgjson reads, edits and validates package.json manifests. Edits
// delete entries by exact key with the remaining keys kept in document order,
// and the file is always rewritten whole. Validation runs an embedded JSON
// Schema and checks dependency specs as semver ranges.
package pkgjson
