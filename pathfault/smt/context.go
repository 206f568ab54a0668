package smt

import "strings"

// Context accumulates variable declarations and assertions for one
// query. A Context is single-use: build it, call Solve, discard it.
// Nothing is shared across queries, matching spec.md §5's requirement
// that chain compilation hold no solver state between choices.
type Context struct {
	decls   []string
	asserts []string
}

// NewContext returns an empty query context.
func NewContext() *Context {
	return &Context{}
}

// DeclareString declares a fresh string-sorted constant and returns a
// reference to it.
func (c *Context) DeclareString(name string) Expr {
	c.decls = append(c.decls, "(declare-const "+name+" String)")
	return Var(name)
}

// DeclareInt declares a fresh int-sorted constant and returns a
// reference to it.
func (c *Context) DeclareInt(name string) IntExpr {
	c.decls = append(c.decls, "(declare-const "+name+" Int)")
	return IntVar(name)
}

// Assert adds a hard constraint to the query.
func (c *Context) Assert(b Bool) {
	c.asserts = append(c.asserts, "(assert "+b.smtBool()+")")
}

// ToSMTLIB2 serializes the accumulated declarations and assertions into
// a script ending in (check-sat) and (get-model), ready to feed to a
// solver subprocess on stdin.
func (c *Context) ToSMTLIB2() string {
	var b strings.Builder
	b.WriteString("(set-logic QF_S)\n")
	for _, d := range c.decls {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	for _, a := range c.asserts {
		b.WriteString(a)
		b.WriteByte('\n')
	}
	b.WriteString("(check-sat)\n(get-model)\n")
	return b.String()
}
