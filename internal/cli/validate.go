package cli

import (
	"fmt"
	"strings"

	"github.com/fpang/darkroom/internal/photo"
)

// ParseDecisions parses --decision flags of the form photoID=action,
// preserving flag order.
func ParseDecisions(flags []string) ([]photo.Decision, error) {
	decisions := make([]photo.Decision, 0, len(flags))
	seen := make(map[string]bool, len(flags))
	for _, f := range flags {
		id, raw, ok := strings.Cut(f, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid decision %q: want photoID=action", f)
		}
		action, err := photo.ParseAction(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return nil, fmt.Errorf("decision for %s: %w", id, err)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate decision for %s", id)
		}
		seen[id] = true
		decisions = append(decisions, photo.Decision{PhotoID: id, Action: action})
	}
	return decisions, nil
}

// ParseTags parses --tag flags of the form photoID=friend1,friend2.
// Repeated flags for one photo accumulate.
func ParseTags(flags []string) (map[string][]string, error) {
	tags := make(map[string][]string)
	for _, f := range flags {
		id, raw, ok := strings.Cut(f, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid tag %q: want photoID=friend1,friend2", f)
		}
		for _, friend := range strings.Split(raw, ",") {
			if friend = strings.TrimSpace(friend); friend != "" {
				tags[id] = append(tags[id], friend)
			}
		}
	}
	return tags, nil
}
