// Package texenv builds the environment handed to a TeX compiler.
//
// Everything here is pure: the inherited process environment is treated as a
// read-only baseline and every call returns a fresh slice.
package texenv

import (
	"os"
	"slices"
	"strings"
)

// Search-path variables understood by kpathsea-based compilers.
const (
	VarTexInputs     = "TEXINPUTS"
	VarTTFonts       = "TTFONTS"
	VarOpenTypeFonts = "OPENTYPEFONTS"
)

// JoinSearchPaths joins paths with the platform list separator and appends a
// trailing separator, which tells kpathsea to keep searching its own default
// locations after ours. Empty entries are dropped. With no usable entry the
// fallback is used alone.
func JoinSearchPaths(paths []string, fallback string) string {
	sep := string(os.PathListSeparator)

	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return fallback + sep
	}
	return strings.Join(kept, sep) + sep
}

// SearchPaths returns the search-path overlay for one compilation.
// Inputs feed TEXINPUTS, fonts feed both TTFONTS and OPENTYPEFONTS.
// Either list defaults to the workspace directory.
func SearchPaths(inputs, fonts []string, workspace string) map[string]string {
	fontPath := JoinSearchPaths(fonts, workspace)
	return map[string]string{
		VarTexInputs:     JoinSearchPaths(inputs, workspace),
		VarTTFonts:       fontPath,
		VarOpenTypeFonts: fontPath,
	}
}

// Build returns base overlaid with overlay. Keys already in base are replaced
// in place; new keys are appended in sorted order so the result is
// deterministic. Neither argument is modified.
func Build(base []string, overlay map[string]string) []string {
	env := make([]string, 0, len(base)+len(overlay))
	seen := make(map[string]bool, len(overlay))

	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if val, ok := overlay[key]; ok {
			if seen[key] {
				continue // drop duplicate baseline entries for overridden keys
			}
			seen[key] = true
			env = append(env, key+"="+val)
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+overlay[k])
	}
	return env
}

// Lookup returns the value of key in env, mirroring os.LookupEnv for an
// explicit environment slice. The last assignment wins.
func Lookup(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(env[i], "=")
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}
