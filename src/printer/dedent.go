package printer

import "strings"

// Dedent removes the longest whitespace prefix common to every non-blank
// line. Lines holding only whitespace become empty.
func Dedent(text string) string {
	lines := strings.Split(text, "\n")
	margin := ""
	found := false
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !found {
			margin, found = lead, true
			continue
		}
		margin = commonPrefix(margin, lead)
	}
	if margin == "" {
		return strings.Join(lines, "\n")
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, margin)
	}
	return strings.Join(lines, "\n")
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
