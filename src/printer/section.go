package printer

import "strings"

// Section prints header (if any) through p and indents p's subsequent
// output. The returned func undoes the indent and must be deferred:
//
//	defer printer.Section(p, "Finding pods...")()
func Section(p Printer, header string) (end func()) {
	if header != "" {
		p.Print(Dedent(strings.TrimPrefix(header, "\n")))
	}
	indented := p.TrySetIndent(DefaultIndent)
	return func() {
		if indented {
			p.TrySetIndent(-DefaultIndent)
		}
	}
}

// WithSection runs fn inside a Section. The indent is restored when fn
// returns, whether or not it fails or panics.
func WithSection(p Printer, header string, fn func() error) error {
	defer Section(p, header)()
	return fn()
}
