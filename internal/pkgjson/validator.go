package pkgjson

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/package.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// DependencyGroups are the package.json keys holding name -> version spec maps.
var DependencyGroups = []string{"dependencies", "devDependencies", "peerDependencies", "optionalDependencies"}

// ValidationResult contains the outcome of a manifest validation.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue represents a single problem found in the manifest.
type ValidationIssue struct {
	Path    string // Instance location (e.g., "/devDependencies/rollup")
	Message string // Human-readable error message
	Keyword string // Schema keyword that failed, or "semver"
}

// String formats the issue as "path: message".
func (i ValidationIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// getSchema compiles the embedded JSON schema once and returns it.
func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("package.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("package.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate checks the manifest against the package schema and checks that
// the version and every registry dependency spec parse as semver. The error
// return is for schema compilation failures; problems with the document are
// returned as issues.
func (m *Manifest) Validate() (*ValidationResult, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(m.data))
	if err != nil {
		return nil, fmt.Errorf("preparing JSON for validation: %w", err)
	}

	var issues []ValidationIssue
	if err := schema.Validate(inst); err != nil {
		validationErr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return nil, fmt.Errorf("unexpected validation error type: %w", err)
		}
		issues = append(issues, extractIssues(validationErr)...)
	}
	issues = append(issues, m.semverIssues()...)

	return &ValidationResult{Valid: len(issues) == 0, Issues: issues}, nil
}

// semverIssues reports a version or dependency spec that does not parse.
// Specs using a protocol (git+, file:, npm:) or a path, and dist-tags such
// as "latest", are not semver ranges and are skipped.
func (m *Manifest) semverIssues() []ValidationIssue {
	var issues []ValidationIssue
	if v := m.Get("version"); v != "" {
		if _, err := semver.NewVersion(v); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "/version",
				Message: fmt.Sprintf("%q is not a semantic version: %v", v, err),
				Keyword: "semver",
			})
		}
	}

	for _, group := range DependencyGroups {
		for _, dep := range m.Dependencies(group) {
			if !isRangeSpec(dep.Spec) {
				continue
			}
			if _, err := semver.NewConstraint(dep.Spec); err != nil {
				issues = append(issues, ValidationIssue{
					Path:    "/" + group + "/" + dep.Name,
					Message: fmt.Sprintf("%q is not a valid version range: %v", dep.Spec, err),
					Keyword: "semver",
				})
			}
		}
	}
	return issues
}

var distTags = map[string]bool{"latest": true, "next": true, "beta": true, "canary": true}

func isRangeSpec(spec string) bool {
	if spec == "" || distTags[spec] {
		return false
	}
	return !strings.ContainsAny(spec, ":/")
}

// extractIssues walks the ValidationError tree and returns leaf-level issues.
func extractIssues(ve *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	collectValidationIssues(ve, &issues)

	if len(issues) == 0 {
		return []ValidationIssue{{
			Message: ve.Error(),
		}}
	}
	return deduplicateIssues(issues)
}

// collectValidationIssues recursively walks the error tree to find leaf errors
// with specific property information.
func collectValidationIssues(ve *jsonschema.ValidationError, issues *[]ValidationIssue) {
	if len(ve.Causes) == 0 {
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		if len(ve.InstanceLocation) == 0 {
			path = ""
		}

		keyword := ""
		msg := ""
		if ve.ErrorKind != nil {
			if kwPath := ve.ErrorKind.KeywordPath(); len(kwPath) > 0 {
				keyword = kwPath[len(kwPath)-1]
			}
			msg = ve.ErrorKind.LocalizedString(printer)
		}

		if keyword == "allOf" || keyword == "$ref" || keyword == "" {
			return
		}

		*issues = append(*issues, ValidationIssue{
			Path:    path,
			Message: msg,
			Keyword: keyword,
		})
		return
	}

	for _, cause := range ve.Causes {
		collectValidationIssues(cause, issues)
	}
}

// deduplicateIssues removes duplicate issues (same path + keyword + message).
func deduplicateIssues(issues []ValidationIssue) []ValidationIssue {
	seen := make(map[string]bool)
	var result []ValidationIssue
	for _, issue := range issues {
		key := issue.Path + "|" + issue.Keyword + "|" + issue.Message
		if !seen[key] {
			seen[key] = true
			result = append(result, issue)
		}
	}
	return result
}
