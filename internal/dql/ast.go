package dql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	varPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	mathPattern = regexp.MustCompile(`^[A-Za-z0-9_.+\-*/()]+$`)
)

// Expr is a rendered query expression. Values are only produced by the
// constructors in this package, so every identifier and literal inside an
// Expr has already been validated or escaped.
type Expr struct{ s string }

func (e Expr) String() string { return e.s }

func (e Expr) empty() bool { return e.s == "" }

// Var is a query variable name.
type Var string

// MustVar panics when name is not a valid variable name.
func MustVar(name string) Var {
	if !varPattern.MatchString(name) {
		panic(fmt.Sprintf("dql: invalid variable name %q", name))
	}
	return Var(name)
}

// Pred references a predicate.
func Pred(i Ident) Expr { return Expr{i.name} }

// UIDPred is the built-in uid predicate.
func UIDPred() Expr { return Expr{"uid"} }

// Math wraps an arithmetic formula over query variables. It panics on any
// character outside variable names, numbers and operators.
func Math(formula string) Expr {
	if !mathPattern.MatchString(formula) {
		panic(fmt.Sprintf("dql: invalid math formula %q", formula))
	}
	return Expr{"math(" + formula + ")"}
}

func Count(i Ident) Expr { return Expr{"count(" + i.name + ")"} }

func Val(v Var) Expr { return Expr{"val(" + string(v) + ")"} }

func UID(v Var) Expr { return Expr{"uid(" + string(v) + ")"} }

func Eq(i Ident, lit Literal) Expr { return Expr{"eq(" + i.name + "," + lit.quoted + ")"} }

func Gt(e Expr, n int) Expr { return Expr{"gt(" + e.s + "," + strconv.Itoa(n) + ")"} }

func Not(e Expr) Expr { return Expr{"NOT " + e.s} }

func Uint(n uint32) Expr { return Expr{strconv.FormatUint(uint64(n), 10)} }

// Arg is a key:value pair inside a block's parentheses.
type Arg struct {
	Key   string
	Value Expr
}

// Stmt is anything that can appear inside a block body.
type Stmt interface {
	render(b *strings.Builder, depth int)
}

// Field is a single line in a block body:
//
//	[var as ][alias:]value
type Field struct {
	As    Var
	Alias string
	Value Expr
}

func (f *Field) render(b *strings.Builder, depth int) {
	indent(b, depth)
	if f.As != "" {
		b.WriteString(string(f.As))
		b.WriteString(" as ")
	}
	if f.Alias != "" {
		b.WriteString(f.Alias)
		b.WriteByte(':')
	}
	b.WriteString(f.Value.s)
	b.WriteByte('\n')
}

// Block is a query block or a nested edge traversal.
type Block struct {
	As     Var
	Name   string
	Args   []Arg
	Filter Expr
	Body   []Stmt
}

// Edge starts a nested block that traverses predicate p.
func Edge(p Ident, body ...Stmt) *Block {
	return &Block{Name: p.name, Body: body}
}

func (blk *Block) render(b *strings.Builder, depth int) {
	indent(b, depth)
	if blk.As != "" {
		b.WriteString(string(blk.As))
		b.WriteString(" as ")
	}
	b.WriteString(blk.Name)
	if len(blk.Args) > 0 {
		b.WriteByte('(')
		for i, a := range blk.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(a.Key)
			b.WriteByte(':')
			b.WriteString(a.Value.s)
		}
		b.WriteByte(')')
	}
	if !blk.Filter.empty() {
		b.WriteString(" @filter(")
		b.WriteString(blk.Filter.s)
		b.WriteByte(')')
	}
	b.WriteString(" {\n")
	for _, st := range blk.Body {
		st.render(b, depth+1)
	}
	indent(b, depth)
	b.WriteString("}\n")
}

// Query is a complete DQL request made of top-level blocks.
type Query struct {
	Blocks []*Block
}

// String renders the query. Output is deterministic for a given tree.
func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, blk := range q.Blocks {
		blk.render(&b, 1)
	}
	b.WriteString("}\n")
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}
