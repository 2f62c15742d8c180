package semver

import (
	"fmt"
	"regexp"
	"strings"
)

var methodNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*(\.[a-zA-Z][a-zA-Z0-9_]*)*$`)

// MethodName holds the parts of a dotted method name.
type MethodName struct {
	// Namespace is everything before the last dot, e.g. "storage". Empty for
	// undotted names.
	Namespace string
	// Name is the last segment, e.g. "getItem".
	Name string
	// Full is the trimmed input.
	Full string
}

// ParseMethodName splits a method name such as "storage.getItem".
func ParseMethodName(input string) (*MethodName, error) {
	full := strings.TrimSpace(input)
	if !ValidateMethodName(full) {
		return nil, fmt.Errorf("%s - invalid method name: %q", logPrefix, input)
	}
	idx := strings.LastIndex(full, ".")
	if idx == -1 {
		return &MethodName{Name: full, Full: full}, nil
	}
	return &MethodName{Namespace: full[:idx], Name: full[idx+1:], Full: full}, nil
}

// ValidateMethodName reports whether name is a well-formed dotted method name.
func ValidateMethodName(name string) bool {
	return methodNameRegex.MatchString(name)
}

// GroupByNamespace groups method names by namespace. Names that do not parse
// are grouped under the empty namespace.
func GroupByNamespace(names []string) map[string][]string {
	groups := make(map[string][]string)
	for _, n := range names {
		parsed, err := ParseMethodName(n)
		if err != nil {
			groups[""] = append(groups[""], n)
			continue
		}
		groups[parsed.Namespace] = append(groups[parsed.Namespace], n)
	}
	return groups
}
