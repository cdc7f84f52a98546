package branding

import (
	"bytes"
	"testing"

	"go.yaml.in/yaml/v3"
)

func TestEmbeddedBranding(t *testing.T) {
	if CLIName() != "innerself-app" {
		t.Errorf("CLIName() = %q", CLIName())
	}
	if HomeDir() != ".innerself-app" {
		t.Errorf("HomeDir() = %q", HomeDir())
	}
	if got := EnvVar("work_dir"); got != "INNERSELF_APP_WORK_DIR" {
		t.Errorf("EnvVar() = %q", got)
	}
}

func TestEmbeddedBrandingHasOnlyKnownKeys(t *testing.T) {
	dec := yaml.NewDecoder(bytes.NewReader(rawBranding))
	dec.KnownFields(true)
	var b brand
	if err := dec.Decode(&b); err != nil {
		t.Fatalf("branding.yaml: %v", err)
	}
}
