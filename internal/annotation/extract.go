// Package annotation extracts and parses the sql-unit declaration blocks
// embedded in SQL comments.
//
// Extraction is two-phase: a generic pass pulls fenced regions out of
// /* ... */ block comments, then the region contents are parsed as YAML into
// mock and test declarations. The two phases are independent so either can be
// tested (and replaced) on its own.
package annotation

import (
	"fmt"
	"strings"
)

// Marker identifies a fenced region belonging to the harness. Block comments
// without it (formatter directives, plain documentation) are ignored.
const Marker = "# sql-unit"

// disabledMarker opts a region out without removing it from the file.
const disabledMarker = "# sql-unit.disabled"

// Region is one fenced region of structured data found in a block comment.
type Region struct {
	// Content is the dedented region text with the marker line removed.
	Content string
	// Line is the 1-based line of the opening /* in the source file.
	Line int
}

// MalformedAnnotationError reports a fenced region that could not be
// extracted or whose content failed to parse. It is fatal to the file.
type MalformedAnnotationError struct {
	File string
	Line int
	Msg  string
}

func (e *MalformedAnnotationError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: malformed annotation: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: malformed annotation: %s", e.Line, e.Msg)
}

// ExtractRegions scans source text for block comments carrying the sql-unit
// marker and returns them in source order. Regions may appear before and
// after the SQL body. An opened block comment that never closes is a
// MalformedAnnotationError.
func ExtractRegions(src string) ([]Region, error) {
	var regions []Region
	line := 1
	rest := src
	for {
		start := strings.Index(rest, "/*")
		if start < 0 {
			return regions, nil
		}
		startLine := line + strings.Count(rest[:start], "\n")

		end := strings.Index(rest[start+2:], "*/")
		if end < 0 {
			return nil, &MalformedAnnotationError{Line: startLine, Msg: "unterminated block comment"}
		}
		body := rest[start+2 : start+2+end]

		consumed := start + 2 + end + 2
		line += strings.Count(rest[:consumed], "\n")
		rest = rest[consumed:]

		if !strings.Contains(body, Marker) || strings.Contains(body, disabledMarker) {
			continue
		}
		regions = append(regions, Region{
			Content: dedent(stripMarker(body)),
			Line:    startLine,
		})
	}
}

// stripMarker removes the marker line, keeping any trailing text on it.
func stripMarker(body string) string {
	lines := strings.Split(body, "\n")
	out := lines[:0]
	for _, ln := range lines {
		if strings.TrimSpace(ln) == Marker {
			continue
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}

// dedent removes the common leading indentation from all non-empty lines and
// trims trailing whitespace, so the region parses as top-level YAML.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	minIndent := -1
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		indent := len(ln) - len(strings.TrimLeft(ln, " \t"))
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent <= 0 {
		return strings.TrimSpace(strings.Join(trimTrailing(lines), "\n"))
	}
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if len(ln) >= minIndent {
			ln = ln[minIndent:]
		} else {
			ln = strings.TrimSpace(ln)
		}
		out = append(out, strings.TrimRight(ln, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func trimTrailing(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		out = append(out, strings.TrimRight(ln, " \t"))
	}
	return out
}
