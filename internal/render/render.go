// Package render turns analysis results into terminal output. Layout
// follows the kubectl-tree convention: branch glyphs with per-node
// attribute lines. Colors come from fatih/color and are dropped when
// the output is not a terminal or --no-color is set.
package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const rule = "================================================================================"

// Renderer writes reports to Out. Constructed without color, every
// paint function degrades to plain fmt.Sprint.
type Renderer struct {
	Out io.Writer

	header func(a ...interface{}) string
	ok     func(a ...interface{}) string
	info   func(a ...interface{}) string
	claim  func(a ...interface{}) string
	warn   func(a ...interface{}) string
	fail   func(a ...interface{}) string
	bold   func(a ...interface{}) string
}

// New creates a Renderer. colored toggles ANSI output.
func New(out io.Writer, colored bool) *Renderer {
	paint := func(attrs ...color.Attribute) func(a ...interface{}) string {
		if !colored {
			return fmt.Sprint
		}
		c := color.New(attrs...)
		return c.Sprint
	}
	return &Renderer{
		Out:    out,
		header: paint(color.FgMagenta),
		ok:     paint(color.FgGreen),
		info:   paint(color.FgCyan),
		claim:  paint(color.FgBlue),
		warn:   paint(color.FgYellow),
		fail:   paint(color.FgRed),
		bold:   paint(color.Bold),
	}
}

func (r *Renderer) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.Out, format, args...)
}

func (r *Renderer) println(args ...interface{}) {
	fmt.Fprintln(r.Out, args...)
}

func (r *Renderer) rule() {
	r.println(rule)
}

// orEmpty substitutes a placeholder for absent values.
func orEmpty(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// phaseColor picks the paint function for a phase string.
func (r *Renderer) phaseColor(phase string) func(a ...interface{}) string {
	switch phase {
	case "Succeeded", "Bound":
		return r.ok
	case "Running", "ImportInProgress", "CloneInProgress":
		return r.info
	case "Failed":
		return r.fail
	default:
		return r.warn
	}
}

func branch(last bool) string {
	if last {
		return "└─"
	}
	return "├─"
}

func childPrefix(base string, last bool) string {
	if last {
		return base + "   "
	}
	return base + "│  "
}
