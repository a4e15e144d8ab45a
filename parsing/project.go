package parsing

import "strings"

// ProjectAlias maps name variants onto one canonical project name.
type ProjectAlias struct {
	Canonical string
	Variants  []string
}

// NormalizeProject lower-cases and trims a project cell, then returns the
// canonical name of the first alias with a variant contained in it.
// Unrecognised names pass through lower-cased; empty stays empty.
func NormalizeProject(raw string, aliases []ProjectAlias) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return ""
	}
	for _, a := range aliases {
		for _, v := range a.Variants {
			if v = strings.ToLower(v); v != "" && strings.Contains(name, v) {
				return a.Canonical
			}
		}
	}
	return name
}
