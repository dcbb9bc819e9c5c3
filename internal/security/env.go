package security

import "strings"

// FilterEnv returns only env vars whose keys are in the allowlist.
// Entries without '=' are dropped. Key matching is case-sensitive.
// An empty result is returned as a non-nil slice so exec.Cmd does not
// fall back to inheriting the parent environment.
func FilterEnv(env []string, allowlist []string) []string {
	result := []string{}
	if len(env) == 0 || len(allowlist) == 0 {
		return result
	}

	allowed := make(map[string]bool, len(allowlist))
	for _, k := range allowlist {
		allowed[k] = true
	}

	for _, entry := range env {
		k, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if allowed[k] {
			result = append(result, entry)
		}
	}
	return result
}
