package irasm

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
	"github.com/dataflow-ir/ptsflow/ir"
)

var irParser = participle.MustBuild[Program](
	participle.Lexer(irLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(4),
)

// ParseFile reads path and assembles it into an *ir.Module.
func ParseFile(path string) (*ir.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("irasm: read %s: %w", path, err)
	}
	return ParseString(path, string(src))
}

// ParseString assembles src (named filename for diagnostics) into an
// *ir.Module.
func ParseString(filename, src string) (*ir.Module, error) {
	prog, err := irParser.ParseString(filename, src)
	if err != nil {
		reportParseError(src, err)
		return nil, err
	}
	return assemble(prog)
}

// reportParseError prints a caret-style diagnostic for a participle syntax
// error.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("irasm: unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("irasm: syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(pos.Column-1, 0)) + "^"

	color.Red("irasm: syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Fprintln(os.Stderr, line)
	color.HiRed(caret)
	fmt.Fprintf(os.Stderr, "-> %s\n", pe.Message())
}
