package lumi

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestFile writes contents to a temp file and returns its path
func writeTestFile(t *testing.T, name, contents string) string {

	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed writing test file: %v", err)
	}

	return path
}

func TestLoadClasses(t *testing.T) {

	path := writeTestFile(t, "classes.json", `["rbc", "wbc", "ring"]`)

	classes, err := LoadClasses(path)

	if err != nil {
		t.Fatalf("LoadClasses failed: %v", err)
	}

	want := []string{"rbc", "wbc", "ring"}

	if len(classes) != len(want) {
		t.Fatalf("got %d classes; want %d", len(classes), len(want))
	}

	for i, name := range want {
		if classes[i] != name {
			t.Errorf("classes[%d] = %q; want %q", i, classes[i], name)
		}
	}
}

func TestLoadClassesErrors(t *testing.T) {

	tests := []struct {
		name     string
		contents string
	}{
		{"empty list", `[]`},
		{"duplicate class", `["rbc", "rbc"]`},
		{"not a list", `{"rbc": 1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			path := writeTestFile(t, "classes.json", tc.contents)

			if _, err := LoadClasses(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := LoadClasses("no-such-file.json"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestClassIndex(t *testing.T) {

	idx := ClassIndex([]string{"rbc", "wbc", "ring"})

	if len(idx) != 3 {
		t.Fatalf("got %d entries; want 3", len(idx))
	}

	if idx["rbc"] != 0 || idx["wbc"] != 1 || idx["ring"] != 2 {
		t.Errorf("unexpected index mapping: %v", idx)
	}
}

func TestLoadBinaryClasses(t *testing.T) {

	path := writeTestFile(t, "binary.json", `{
		"binary_labels": ["healthy", "infected"],
		"healthy": ["rbc", "wbc"],
		"infected": ["ring", "schizont", "trophozoite"]
	}`)

	bc, err := LoadBinaryClasses(path)

	if err != nil {
		t.Fatalf("LoadBinaryClasses failed: %v", err)
	}

	if bc.Labels[0] != "healthy" || bc.Labels[1] != "infected" {
		t.Errorf("Labels = %v; want [healthy infected]", bc.Labels)
	}

	if len(bc.Groups["healthy"]) != 2 || len(bc.Groups["infected"]) != 3 {
		t.Errorf("unexpected group sizes: %v", bc.Groups)
	}

	if got := bc.GroupOf("wbc"); got != 0 {
		t.Errorf("GroupOf(wbc) = %d; want 0", got)
	}

	if got := bc.GroupOf("ring"); got != 1 {
		t.Errorf("GroupOf(ring) = %d; want 1", got)
	}

	if got := bc.GroupOf("unknown"); got != -1 {
		t.Errorf("GroupOf(unknown) = %d; want -1", got)
	}
}

func TestLoadBinaryClassesErrors(t *testing.T) {

	tests := []struct {
		name     string
		contents string
	}{
		{
			name:     "missing binary_labels",
			contents: `{"healthy": ["rbc"], "infected": ["ring"]}`,
		},
		{
			name:     "three groups",
			contents: `{"binary_labels": ["a", "b", "c"], "a": ["x"], "b": ["y"], "c": ["z"]}`,
		},
		{
			name:     "missing group key",
			contents: `{"binary_labels": ["a", "b"], "a": ["x"]}`,
		},
		{
			name:     "empty group",
			contents: `{"binary_labels": ["a", "b"], "a": ["x"], "b": []}`,
		},
		{
			name:     "class in both groups",
			contents: `{"binary_labels": ["a", "b"], "a": ["x"], "b": ["x", "y"]}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			path := writeTestFile(t, "binary.json", tc.contents)

			if _, err := LoadBinaryClasses(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
