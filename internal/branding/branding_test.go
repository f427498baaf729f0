package branding

import "testing"

func TestEmbeddedValues(t *testing.T) {
	if got := CLIName(); got != "fleetsync" {
		t.Errorf("CLIName() = %q, want fleetsync", got)
	}
	if got := HomeDir(); got != ".fleetsync" {
		t.Errorf("HomeDir() = %q, want .fleetsync", got)
	}
}

func TestEnvVar(t *testing.T) {
	tests := []struct {
		suffix string
		want   string
	}{
		{"registry", "FLEETSYNC_REGISTRY"},
		{"LINK_DIR", "FLEETSYNC_LINK_DIR"},
	}
	for _, tt := range tests {
		if got := EnvVar(tt.suffix); got != tt.want {
			t.Errorf("EnvVar(%q) = %q, want %q", tt.suffix, got, tt.want)
		}
	}
}
