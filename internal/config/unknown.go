package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you
// mean?" suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownGlobalKeys are the valid flat top-level keys in the config file.
var knownGlobalKeys = map[string]bool{
	"log_level": true, "data_dir": true, "poll_interval": true,
	"progress_timeout": true, "configure_timeout": true,
}

// knownAccountKeys are the valid keys inside an account section.
var knownAccountKeys = map[string]bool{
	"display_name": true,
	"imap_host":    true, "imap_port": true, "imap_security": true,
	"smtp_host": true, "smtp_port": true, "smtp_security": true,
	"auth": true, "password": true, "notify_url": true,
	"outbox_dir": true, "default": true,
}

// sortedKeys returns the map's keys sorted, for deterministic
// suggestions when two candidates have the same edit distance.
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

var (
	knownGlobalKeysList  = sortedKeys(knownGlobalKeys)
	knownAccountKeysList = sortedKeys(knownAccountKeys)
)

// checkUnknownKeys walks the decoder metadata and rejects any key not
// in the known sets. Account section names themselves are validated
// separately (they must parse as addresses).
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		parts := strings.Split(key.String(), ".")

		switch {
		case len(parts) == 1:
			errs = append(errs, unknownKeyError(parts[0], knownGlobalKeysList, "top-level"))
		case parts[0] == "account" && len(parts) >= 3:
			section := "account." + parts[1]
			errs = append(errs, unknownKeyError(parts[2], knownAccountKeysList, section))
		default:
			errs = append(errs, fmt.Errorf("unknown config section %q", key.String()))
		}
	}

	return errors.Join(errs...)
}

// unknownKeyError builds the error for one unknown key, with a
// suggestion when a known key is within edit distance.
func unknownKeyError(key string, known []string, section string) error {
	if suggestion := closestMatch(key, known); suggestion != "" {
		return fmt.Errorf("unknown %s config key %q (did you mean %q?)", section, key, suggestion)
	}

	return fmt.Errorf("unknown %s config key %q", section, key)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings using the
// single-row optimization to avoid allocating a full matrix.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
