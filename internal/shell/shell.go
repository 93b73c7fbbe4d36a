// Package shell builds bash scripts from statements and checks them with a
// real bash parser.
//
// Scripts are assembled as a tree of blocks and rendered in one pass, so
// indentation is uniform and no branch is ever emitted empty: a branch body
// without commands renders as ":" and an empty else is dropped.
package shell

import (
	"fmt"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/starford/componentkit/internal/apperr"
)

const indentUnit = "  "

type node interface {
	render(b *strings.Builder, depth int)
	command() bool
}

type line string

func (l line) render(b *strings.Builder, depth int) {
	writeIndented(b, depth, string(l))
}

func (line) command() bool { return true }

type comment string

func (c comment) render(b *strings.Builder, depth int) {
	writeIndented(b, depth, "# "+singleLine(string(c)))
}

func (comment) command() bool { return false }

type blank struct{}

func (blank) render(b *strings.Builder, _ int) { b.WriteByte('\n') }

func (blank) command() bool { return false }

func writeIndented(b *strings.Builder, depth int, text string) {
	b.WriteString(strings.Repeat(indentUnit, depth))
	b.WriteString(text)
	b.WriteByte('\n')
}

// Block is an ordered list of statements.
type Block struct {
	nodes []node
}

// Line appends a raw command line.
func (b *Block) Line(text string) *Block {
	b.nodes = append(b.nodes, line(text))
	return b
}

// Linef appends a formatted command line.
func (b *Block) Linef(format string, args ...any) *Block {
	return b.Line(fmt.Sprintf(format, args...))
}

// Comment appends a comment line.
func (b *Block) Comment(text string) *Block {
	b.nodes = append(b.nodes, comment(text))
	return b
}

// Blank appends an empty line.
func (b *Block) Blank() *Block {
	b.nodes = append(b.nodes, blank{})
	return b
}

// Echo prints text literally. Multi-line text becomes one echo per line.
func (b *Block) Echo(text string) *Block {
	for _, l := range strings.Split(text, "\n") {
		if l == "" {
			b.Line(`echo ""`)
			continue
		}
		b.Line("echo " + Quote(l))
	}
	return b
}

// Say prints text inside double quotes, so parameter expansions such as
// $TARGET_DIR are expanded at run time.
func (b *Block) Say(text string) *Block {
	return b.Line(`echo "` + EscapeDouble(text) + `"`)
}

// Sayf is Say with interpolated values. format may contain run-time
// expansions; every arg is inserted as literal text.
func (b *Block) Sayf(format string, args ...any) *Block {
	lits := make([]any, len(args))
	for i, a := range args {
		lits[i] = Literal(fmt.Sprint(a))
	}
	return b.Line(`echo "` + fmt.Sprintf(EscapeDouble(format), lits...) + `"`)
}

// If appends a conditional. cond is the command list between if and then.
func (b *Block) If(cond string, then func(*Block)) *IfStmt {
	stmt := &IfStmt{}
	stmt.branches = append(stmt.branches, branch{cond: cond, body: build(then)})
	b.nodes = append(b.nodes, stmt)
	return stmt
}

// Func appends a function definition.
func (b *Block) Func(name string, body func(*Block)) *Block {
	b.nodes = append(b.nodes, &compound{open: name + "() {", close: "}", body: build(body)})
	return b
}

// For appends a for loop over words.
func (b *Block) For(name, words string, body func(*Block)) *Block {
	b.nodes = append(b.nodes, &compound{open: "for " + name + " in " + words + "; do", close: "done", body: build(body)})
	return b
}

// Append adds the statements of other to b.
func (b *Block) Append(other *Block) *Block {
	if other != nil {
		b.nodes = append(b.nodes, other.nodes...)
	}
	return b
}

// Empty reports whether the block holds no statements at all.
func (b *Block) Empty() bool { return len(b.nodes) == 0 }

func (b *Block) hasCommand() bool {
	for _, n := range b.nodes {
		if n.command() {
			return true
		}
	}
	return false
}

func (b *Block) render(sb *strings.Builder, depth int) {
	for _, n := range b.nodes {
		n.render(sb, depth)
	}
}

// renderBody writes the block as the body of a compound command.
func (b *Block) renderBody(sb *strings.Builder, depth int) {
	b.render(sb, depth)
	if !b.hasCommand() {
		writeIndented(sb, depth, ":")
	}
}

// String renders the block at depth zero.
func (b *Block) String() string {
	var sb strings.Builder
	b.render(&sb, 0)
	return sb.String()
}

func build(fn func(*Block)) *Block {
	b := &Block{}
	if fn != nil {
		fn(b)
	}
	return b
}

type branch struct {
	cond string
	body *Block
}

// IfStmt is an if/elif/else chain.
type IfStmt struct {
	branches []branch
	orElse   *Block
}

// ElseIf adds an elif branch.
func (s *IfStmt) ElseIf(cond string, then func(*Block)) *IfStmt {
	s.branches = append(s.branches, branch{cond: cond, body: build(then)})
	return s
}

// Else sets the else branch. A body without commands is not rendered.
func (s *IfStmt) Else(body func(*Block)) *IfStmt {
	s.orElse = build(body)
	return s
}

func (s *IfStmt) render(sb *strings.Builder, depth int) {
	for i, br := range s.branches {
		kw := "elif"
		if i == 0 {
			kw = "if"
		}
		writeIndented(sb, depth, kw+" "+br.cond+"; then")
		br.body.renderBody(sb, depth+1)
	}
	if s.orElse != nil && s.orElse.hasCommand() {
		writeIndented(sb, depth, "else")
		s.orElse.render(sb, depth+1)
	}
	writeIndented(sb, depth, "fi")
}

func (*IfStmt) command() bool { return true }

type compound struct {
	open, close string
	body        *Block
}

func (c *compound) render(sb *strings.Builder, depth int) {
	writeIndented(sb, depth, c.open)
	c.body.renderBody(sb, depth+1)
	writeIndented(sb, depth, c.close)
}

func (*compound) command() bool { return true }

// Script is a bash program: a shebang followed by a body.
type Script struct {
	Body *Block
}

// NewScript returns an empty bash script.
func NewScript() *Script {
	return &Script{Body: &Block{}}
}

// String renders the script.
func (s *Script) String() string {
	var sb strings.Builder
	sb.WriteString("#!/bin/bash\n\n")
	s.Body.render(&sb, 0)
	return sb.String()
}

// Quote returns s as a single-quoted shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// EscapeDouble escapes the characters that end or alter a double-quoted
// string, leaving $ untouched so expansions still work.
func EscapeDouble(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`")
	return r.Replace(s)
}

// Literal escapes s for use inside a double-quoted string so that it
// expands to itself, with line breaks folded to spaces.
func Literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return r.Replace(singleLine(s))
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func singleLine(s string) string {
	return lineBreaks.Replace(s)
}

// Validate parses script as bash and reports the first syntax error.
func Validate(name, script string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := parser.Parse(strings.NewReader(script), name); err != nil {
		return fmt.Errorf("shell: %w: %w", apperr.ErrScriptSyntax, err)
	}
	return nil
}

var emptyBranch = regexp.MustCompile(`(?m)(?:\bthen|^[ \t]*else)[ \t]*\n(?:[ \t]*\n)*[ \t]*(?:elif|else|fi)\b`)

// HasEmptyBranch reports whether script contains a then or else branch with
// nothing in it.
func HasEmptyBranch(script string) bool {
	return emptyBranch.MatchString(script)
}
