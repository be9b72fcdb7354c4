package cli

import (
	"bytes"
	"strings"
	"testing"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

func TestPlural(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 games"},
		{1, "1 game"},
		{42, "42 games"},
	}
	for _, tt := range tests {
		if got := plural(tt.n, "game", "games"); got != tt.want {
			t.Errorf("plural(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestPrintStats(t *testing.T) {
	tests := []struct {
		name   string
		games  int
		links  int
		cached bool
		want   []string
	}{
		{"fresh", 3, 2, false, []string{"3 games", "2 links", "fresh"}},
		{"cached", 1, 0, true, []string{"1 game", "0 links", "cached"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureStdout(t)
			printStats(tt.games, tt.links, tt.cached)
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("stats %q missing %q", buf.String(), want)
				}
			}
		})
	}
}

func TestStatusLines(t *testing.T) {
	buf := captureStdout(t)
	printSuccess("Cluster %d", 42)
	printFile("42-13.geojson")
	printNextStep("Explore", "gamemap view 42 13")

	out := buf.String()
	for _, want := range []string{iconSuccess + " Cluster 42", "42-13.geojson", "Explore:", "gamemap view 42 13"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if n := strings.Count(out, "\n"); n != 3 {
		t.Errorf("wrote %d lines, want 3", n)
	}
}
