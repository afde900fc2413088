package script

import (
	"bufio"
	"strings"
)

// Meta is the identification front-matter of a script source.
type Meta struct {
	Name        string
	Description string
}

// ParseMeta reads the leading comment block of a script for
// `// @name:` and `// @description:` lines. Parsing stops at the first
// line that is neither blank nor a line comment.
func ParseMeta(source string) Meta {
	var m Meta
	scanner := bufio.NewScanner(strings.NewReader(source))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "//") {
			break
		}
		body := strings.TrimSpace(strings.TrimPrefix(line, "//"))
		switch {
		case strings.HasPrefix(body, "@name:"):
			m.Name = strings.TrimSpace(strings.TrimPrefix(body, "@name:"))
		case strings.HasPrefix(body, "@description:"):
			m.Description = strings.TrimSpace(strings.TrimPrefix(body, "@description:"))
		}
	}
	return m
}
