package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict replaces ${VAR} with the variable's value. Every variable
// must be set; the error names all that are not. "$$" is a literal dollar.
// Bare $VAR is left as written.
func ExpandEnvStrict(s string) (string, error) {
	const escaped = "\x00dollar\x00"
	s = strings.ReplaceAll(s, "$$", escaped)

	var missing []string
	s = envRefPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		v, ok := os.LookupEnv(name)
		if !ok {
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			return m
		}
		return v
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return strings.ReplaceAll(s, escaped, "$"), nil
}
