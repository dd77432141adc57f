// Package eval implements the Evaluator (spec §4.F): binding a parsed
// expression tree against the Registry, cost-ascending reordering, and
// short-circuit evaluation over a Context.
package eval

import (
	"sort"

	"github.com/standardbeagle/ff/internal/cache"
	"github.com/standardbeagle/ff/internal/errkit"
	"github.com/standardbeagle/ff/internal/evalctx"
	"github.com/standardbeagle/ff/internal/exprlang"
	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/valtype"
)

// Bound is a resolved, typed expression node ready for repeated
// evaluation across many Entries. Unlike exprlang.Expr, every Test's
// attribute is a concrete registry.Resolved and its value literal is
// already parsed to the attribute's Kind (spec §4.F, "Binding").
type Bound interface {
	boundNode()
	cost() int
}

// Test is a bound atom: a resolved attribute, an operator, and a typed
// comparison value.
type Test struct {
	Resolved registry.Resolved
	Op       valtype.Operator
	Value    valtype.Value
}

// And/Or mirror exprlang's n-ary nodes, children pre-sorted cheapest
// first (spec §4.F, "Optimization").
type And struct{ Children []Bound }
type Or struct{ Children []Bound }

// Not negates a single child. Its children are never reordered into a
// surrounding And/Or — a Not node is an opaque unit from the reorder
// pass's point of view (spec §4.F, "Not-wrapped children are not
// inlined").
type Not struct{ Child Bound }

func (*Test) boundNode() {}
func (*And) boundNode()  {}
func (*Or) boundNode()   {}
func (*Not) boundNode()  {}

func (t *Test) cost() int { return t.Resolved.Descriptor.Cost }
func (n *Not) cost() int  { return n.Child.cost() }
func (a *And) cost() int  { return sumCost(a.Children) }
func (o *Or) cost() int   { return sumCost(o.Children) }

func sumCost(children []Bound) int {
	total := 0
	for _, c := range children {
		total += c.cost()
	}
	return total
}

// Binder resolves attribute names and parses literal values; it carries
// the ambient state (the Registry, and the Cache/now needed to resolve a
// file-reference value's throw-away Context) binding needs.
type Binder struct {
	Registry *registry.Registry
	Now      valtype.ParseOptions
	// Cache backs the throw-away Context built to resolve a
	// {ref-attr}path file reference (spec §4.F). Pass cache.Disabled()
	// if the reference target's attribute need not be persisted.
	Cache *cache.Cache
}

// Bind resolves every Test in expr against b.Registry, parses literal
// values to the bound attribute's Kind, validates the operator is
// supported for that Kind, resolves any file-reference values, and
// reorders And/Or children cost-ascending. It returns a fatal
// errkit.KindAttribute or errkit.KindTestSyntax error — binding happens
// once, before any walking begins (spec §4.F, "Binding").
func (b *Binder) Bind(expr exprlang.Expr) (Bound, error) {
	switch e := expr.(type) {
	case *exprlang.Test:
		return b.bindTest(e)
	case *exprlang.And:
		children, err := b.bindAll(e.Children)
		if err != nil {
			return nil, err
		}
		sortByCost(children)
		return &And{Children: children}, nil
	case *exprlang.Or:
		children, err := b.bindAll(e.Children)
		if err != nil {
			return nil, err
		}
		sortByCost(children)
		return &Or{Children: children}, nil
	case *exprlang.Not:
		child, err := b.Bind(e.Child)
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil
	default:
		return nil, errkit.New(errkit.KindTestSyntax, "eval.Bind", "unrecognized expression node")
	}
}

func (b *Binder) bindAll(exprs []exprlang.Expr) ([]Bound, error) {
	out := make([]Bound, 0, len(exprs))
	for _, e := range exprs {
		bound, err := b.Bind(e)
		if err != nil {
			return nil, err
		}
		out = append(out, bound)
	}
	return out, nil
}

func (b *Binder) bindTest(t *exprlang.Test) (*Test, error) {
	resolved, err := b.Registry.Resolve(t.Plugin, t.Attr)
	if err != nil {
		return nil, err
	}
	if !operatorSupported(resolved.Descriptor.Kind, valtype.Canonicalize(t.Op)) {
		return nil, &errkit.Error{
			Kind: errkit.KindTestSyntax,
			Op:   "eval.Bind",
			Msg:  "operator not valid for attribute " + resolved.Provider + "." + resolved.Descriptor.Name,
		}
	}

	value, err := b.bindValue(resolved.Descriptor.Kind, resolved.Descriptor.Name, t.Value)
	if err != nil {
		return nil, err
	}

	return &Test{Resolved: resolved, Op: t.Op, Value: value}, nil
}

func (b *Binder) bindValue(kind valtype.Kind, testAttr string, ve exprlang.ValueExpr) (valtype.Value, error) {
	if !ve.IsFileRef {
		return valtype.Parse(kind, ve.Literal, b.Now)
	}

	entry, err := evalctx.StatEntry(ve.RefPath)
	if err != nil {
		return valtype.Value{}, errkit.WithPath(errkit.KindUsage, "eval.Bind", "file-reference path cannot be stat'ed", ve.RefPath, err)
	}

	// {ref-attr?}path defaults ref-attr to the attribute under test when
	// omitted (spec §3).
	refAttr := ve.RefAttr
	if refAttr == "" {
		refAttr = testAttr
	}
	resolved, err := b.Registry.Resolve("", refAttr)
	if err != nil {
		return valtype.Value{}, err
	}
	if resolved.Descriptor.Kind != kind {
		return valtype.Value{}, errkit.New(errkit.KindTestSyntax, "eval.Bind",
			"file-reference attribute "+refAttr+" has a different type than the attribute being tested")
	}

	c := b.Cache
	if c == nil {
		c = cache.Disabled()
	}
	ctx := evalctx.New(entry, b.Registry, c)
	v, err := ctx.GetResolved(resolved)
	if err != nil {
		return valtype.Value{}, errkit.WithPath(errkit.KindUsage, "eval.Bind", "could not compute reference value", ve.RefPath, err)
	}
	return v, nil
}

// operatorSupported mirrors valtype's own per-Kind operator table (spec
// §4.A/§6); Bind needs to reject an unsupported operator before any
// walking begins (spec §4.F), which valtype.Eval only catches per-Entry.
func operatorSupported(k valtype.Kind, op valtype.Operator) bool {
	for _, o := range valtype.Operators(k) {
		if o == op {
			return true
		}
	}
	return false
}

func sortByCost(children []Bound) {
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].cost() < children[j].cost()
	})
}
