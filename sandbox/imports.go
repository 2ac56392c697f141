package sandbox

import "strings"

// DefaultAuthorizedImports is the fixed allow-list of modules callers
// may reference. The set is advisory: it is merged with caller
// additions and reported, but execution is gated only by
// BlockedImports. Enforcing it is an open product decision.
var DefaultAuthorizedImports = []string{
	"json",
	"math",
	"datetime",
	"re",
	"collections",
	"itertools",
	"functools",
	"typing",
	"dataclasses",
	"pathlib",
	"os.path",
	"statistics",
	"random",
	"string",
	"textwrap",
	"unicodedata",
}

// BlockedImports is the fixed deny-list of module identifiers that must
// never appear in executed code.
var BlockedImports = []string{
	"subprocess",
	"os.system",
	"os.popen",
	"os.spawn",
	"commands",
	"pty",
	"fcntl",
	"resource",
	"ctypes",
	"pickle",
	"marshal",
	"shelve",
	"__builtins__",
}

// CheckBlockedImports scans source text for deny-listed modules in
// common import idioms. The check is textual, not semantic: aliasing,
// string construction, or dynamic attribute access bypass it. It is a
// tripwire in front of the interpreter, not a guarantee.
func CheckBlockedImports(code string) []string {
	var found []string
	for _, blocked := range BlockedImports {
		patterns := []string{
			"import " + blocked,
			"from " + blocked,
			"__import__('" + blocked + "'",
			`__import__("` + blocked + `"`,
		}
		for _, p := range patterns {
			if strings.Contains(code, p) {
				found = append(found, blocked)
				break
			}
		}
	}
	return found
}

// MergeAuthorizedImports unions the default allow-list with caller
// additions, preserving first-seen order.
func MergeAuthorizedImports(additional []string) []string {
	seen := make(map[string]struct{}, len(DefaultAuthorizedImports)+len(additional))
	merged := make([]string, 0, len(DefaultAuthorizedImports)+len(additional))
	for _, lists := range [][]string{DefaultAuthorizedImports, additional} {
		for _, name := range lists {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			merged = append(merged, name)
		}
	}
	return merged
}
