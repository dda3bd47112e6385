package layout

import (
	"strings"
	"unicode"
)

// HostName converts a Go identifier to the snake_case name a host runtime
// sees. Acronyms stay together.
// e.g., "ReadAll" → "read_all", "HTTPServer" → "http_server", "ID" → "id"
func HostName(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Selector converts a Go function/method name to a keyword-style selector.
// Go uses PascalCase; selectors use camelCase with one colon per argument.
// e.g., "ReadAll" with 0 params → "readAll", "Marshal" with 1 → "marshal:"
func Selector(name string, paramCount int) string {
	if len(name) == 0 {
		return name
	}
	sel := strings.ToLower(name[:1]) + name[1:]

	if paramCount == 0 {
		return sel
	}
	if paramCount == 1 {
		return sel + ":"
	}
	return sel + ":" + strings.Repeat("_:", paramCount-1)
}

// FileName returns a filesystem-safe name for an import path.
// e.g., "encoding/json" → "encoding_json"
func FileName(importPath string) string {
	r := strings.NewReplacer("/", "_", ".", "_", "-", "_", "\\", "_")
	return r.Replace(importPath)
}
