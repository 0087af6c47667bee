// Package format renders query trees as DuckDB SQL.
package format

import (
	"bytes"
	"strings"
)

const indentSize = 2

// Printer handles SQL formatting with proper indentation and style.
//
// A compact printer renders everything on one line: line breaks collapse
// to single spaces and indentation is ignored.
type Printer struct {
	output       *bytes.Buffer
	depth        int
	atLineStart  bool
	compact      bool
	pendingSpace bool
}

func newPrinter() *Printer {
	return &Printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
	}
}

func newCompactPrinter() *Printer {
	p := newPrinter()
	p.compact = true
	return p
}

// String returns the formatted output without trailing whitespace.
func (p *Printer) String() string {
	return strings.TrimRight(p.output.String(), " \n")
}

func (p *Printer) write(s string) {
	if s == "" {
		return
	}
	if p.compact {
		if p.pendingSpace && s[0] != ')' && !p.endsWith('(') {
			p.output.WriteByte(' ')
		}
		p.pendingSpace = false
		p.output.WriteString(s)
		return
	}
	if p.atLineStart && s[0] != '\n' {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *Printer) writeln() {
	if p.compact {
		p.pendingSpace = p.output.Len() > 0
		return
	}
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *Printer) endsWith(c byte) bool {
	b := p.output.Bytes()
	return len(b) > 0 && b[len(b)-1] == c
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

func (p *Printer) space() {
	p.write(" ")
}

// kw prints one or more keywords separated by spaces.
func (p *Printer) kw(words ...string) {
	for i, w := range words {
		if i > 0 {
			p.space()
		}
		p.write(strings.ToUpper(w))
	}
}

// formatList prints a list of items with separators.
// count is the number of items, format is called for each index,
// sep is the separator string, multiline adds newlines after separators.
func (p *Printer) formatList(count int, format func(i int), sep string, multiline bool) {
	for i := 0; i < count; i++ {
		format(i)
		if i < count-1 {
			p.write(sep)
			if multiline {
				p.writeln()
			} else {
				p.space()
			}
		}
	}
}
