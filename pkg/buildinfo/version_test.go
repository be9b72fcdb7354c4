package buildinfo

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	tests := []struct {
		version, commit string
		want            string
	}{
		{"dev", "none", "gamemap/dev"},
		{"v0.3.0", "a1b2c3d", "gamemap/v0.3.0 (a1b2c3d)"},
	}
	for _, tt := range tests {
		Version, Commit = tt.version, tt.commit
		if got := UserAgent(); got != tt.want {
			t.Errorf("UserAgent() = %q, want %q", got, tt.want)
		}
	}
}

func TestTemplate(t *testing.T) {
	tmpl := Template()
	if !strings.HasPrefix(tmpl, Name+" "+Version) {
		t.Errorf("Template() = %q", tmpl)
	}
	if !strings.HasSuffix(tmpl, "\n") {
		t.Error("template should end with a newline")
	}
}
