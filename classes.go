package lumi

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadClasses reads the class labels a detection model was trained on from
// the given JSON file.  It should contain a single JSON array of label
// strings, for example ["rbc", "wbc", "ring"].
func LoadClasses(file string) ([]string, error) {

	buf, err := os.ReadFile(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	var classes []string

	if err := json.Unmarshal(buf, &classes); err != nil {
		return nil, fmt.Errorf("error parsing classes file: %w", err)
	}

	if len(classes) == 0 {
		return nil, fmt.Errorf("classes file %s contains no labels", file)
	}

	// each class label may only be listed once
	seen := make(map[string]bool, len(classes))

	for _, name := range classes {
		if seen[name] {
			return nil, fmt.Errorf("duplicate class %q in %s", name, file)
		}
		seen[name] = true
	}

	return classes, nil
}

// ClassIndex builds a lookup of class label to its position in the class list
func ClassIndex(classes []string) map[string]int {

	idx := make(map[string]int, len(classes))

	for i, name := range classes {
		idx[name] = i
	}

	return idx
}

// BinaryClasses defines the grouping used to collapse a multi class confusion
// matrix down to a two class one
type BinaryClasses struct {
	// Labels are the two group names in reporting order
	Labels [2]string
	// Groups maps each group name to the class labels it covers
	Groups map[string][]string
}

// LoadBinaryClasses reads a binary grouping from the given JSON file.  The
// file holds a binary_labels key naming the two groups, plus one key per
// group mapping to the list of class labels it collapses, for example:
//
//	{
//	  "binary_labels": ["healthy", "infected"],
//	  "healthy": ["rbc", "wbc"],
//	  "infected": ["ring", "schizont", "trophozoite"]
//	}
func LoadBinaryClasses(file string) (*BinaryClasses, error) {

	buf, err := os.ReadFile(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	var raw map[string]json.RawMessage

	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("error parsing binary classes file: %w", err)
	}

	labelsRaw, ok := raw["binary_labels"]

	if !ok {
		return nil, fmt.Errorf("missing binary_labels key in %s", file)
	}

	var labels []string

	if err := json.Unmarshal(labelsRaw, &labels); err != nil {
		return nil, fmt.Errorf("error parsing binary_labels: %w", err)
	}

	if len(labels) != 2 {
		return nil, fmt.Errorf("binary_labels must name exactly two groups, got %d", len(labels))
	}

	bc := &BinaryClasses{
		Labels: [2]string{labels[0], labels[1]},
		Groups: make(map[string][]string, 2),
	}

	// track which group each class belongs to, a class may only appear in one
	owner := make(map[string]string)

	for _, name := range labels {

		groupRaw, ok := raw[name]

		if !ok {
			return nil, fmt.Errorf("no class list for group %q in %s", name, file)
		}

		var group []string

		if err := json.Unmarshal(groupRaw, &group); err != nil {
			return nil, fmt.Errorf("error parsing class list for group %q: %w", name, err)
		}

		if len(group) == 0 {
			return nil, fmt.Errorf("group %q in %s contains no classes", name, file)
		}

		for _, class := range group {
			if prev, dup := owner[class]; dup {
				return nil, fmt.Errorf("class %q appears in both group %q and %q", class, prev, name)
			}
			owner[class] = name
		}

		bc.Groups[name] = group
	}

	return bc, nil
}

// GroupOf returns the index of the binary group the given class label belongs
// to, being 0 or 1 matching the Labels order.  It returns -1 when the label
// is in neither group.
func (bc *BinaryClasses) GroupOf(label string) int {

	for i, name := range bc.Labels {
		for _, class := range bc.Groups[name] {
			if class == label {
				return i
			}
		}
	}

	return -1
}
