// Package debug renders indented trees for manual inspection of internal
// structures.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter accumulates indented lines. The zero value is not usable, use
// NewTreeWriter.
type TreeWriter struct {
	w      *strings.Builder
	indent string
}

// NewTreeWriter returns a writer indenting with two spaces per level.
func NewTreeWriter() *TreeWriter {
	return NewTreeWriterIndent("  ")
}

// NewTreeWriterIndent returns a writer using indent for every level.
func NewTreeWriterIndent(indent string) *TreeWriter {
	return &TreeWriter{
		w:      &strings.Builder{},
		indent: indent,
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) pad(depth int) {
	for range depth {
		tw.w.WriteString(tw.indent)
	}
}

// Line writes a formatted line at depth.
func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Section writes a header line followed by the number of children it has.
// Empty sections are written as well so dumps keep their shape.
func (tw TreeWriter) Section(depth int, title string, count int) {
	tw.pad(depth)
	tw.w.WriteString(title)
	tw.w.WriteString(" (")
	tw.w.WriteString(strconv.Itoa(count))
	tw.w.WriteString(")\n")
}

// TextBlock writes label and a quoted value.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.pad(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
